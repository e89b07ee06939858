package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrause92/askwave/internal/domain"
)

// dialClient opens a real websocket pair: the returned conn is the attendee
// side, the returned Client is the registered server side.
func dialClient(t *testing.T, hub *Hub) (*websocket.Conn, *Client) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	clientCh := make(chan *Client, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		clientCh <- hub.Register(conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, <-clientCh
}

func readFrame(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame serverFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "expected no frame within the deadline")
}

func roomMessage(roomID string) domain.RoomMessage {
	return domain.RoomMessage{
		RoomID:    roomID,
		EventType: domain.EventQuestionCreated,
		Payload:   json.RawMessage(`{"text":"What is the roadmap?"}`),
	}
}

func TestHub_DeliverFansOutToRoomMembers(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	connA, clientA := dialClient(t, hub)
	connB, clientB := dialClient(t, hub)
	hub.Join(clientA, "event-1")
	hub.Join(clientB, "event-1")
	require.Equal(t, 2, hub.RoomCount("event-1"))

	hub.Deliver(roomMessage("event-1"))

	for _, conn := range []*websocket.Conn{connA, connB} {
		frame := readFrame(t, conn)
		assert.Equal(t, "event-1", frame.RoomID)
		assert.Equal(t, domain.EventQuestionCreated, frame.EventType)
		assert.JSONEq(t, `{"text":"What is the roadmap?"}`, string(frame.Payload))
	}
}

func TestHub_RoomIsolation(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	connA, clientA := dialClient(t, hub)
	connB, clientB := dialClient(t, hub)
	hub.Join(clientA, "event-1")
	hub.Join(clientB, "event-2")

	hub.Deliver(roomMessage("event-1"))

	frame := readFrame(t, connA)
	assert.Equal(t, "event-1", frame.RoomID)
	expectNoFrame(t, connB)
}

func TestHub_FreshClientBelongsToNoRoom(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	conn, client := dialClient(t, hub)
	assert.Empty(t, hub.ClientRooms(client))

	hub.Deliver(roomMessage("event-1"))
	expectNoFrame(t, conn)
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	conn, client := dialClient(t, hub)
	hub.Join(client, "event-1")
	hub.Join(client, "event-1")
	assert.Equal(t, 1, hub.RoomCount("event-1"))

	// A single delivery despite the double join.
	hub.Deliver(roomMessage("event-1"))
	readFrame(t, conn)
	expectNoFrame(t, conn)
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	conn, client := dialClient(t, hub)
	hub.Join(client, "event-1")
	hub.Leave(client, "event-1")
	assert.Equal(t, 0, hub.RoomCount("event-1"))

	hub.Deliver(roomMessage("event-1"))
	expectNoFrame(t, conn)
}

func TestHub_UnregisterRemovesFromAllRooms(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	_, client := dialClient(t, hub)
	hub.Join(client, "event-1")
	hub.Join(client, "event-2")
	require.ElementsMatch(t, []string{"event-1", "event-2"}, hub.ClientRooms(client))

	hub.Unregister(client)
	assert.Equal(t, 0, hub.RoomCount("event-1"))
	assert.Equal(t, 0, hub.RoomCount("event-2"))
	assert.Empty(t, hub.ClientRooms(client))
}

func TestHub_JoinAfterUnregisterIsNoOp(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	_, client := dialClient(t, hub)
	hub.Unregister(client)
	hub.Join(client, "event-1")
	assert.Equal(t, 0, hub.RoomCount("event-1"))
}

func TestHub_DeliverToUnknownRoomIsNoOp(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	conn, _ := dialClient(t, hub)
	hub.Deliver(roomMessage("never-joined"))
	expectNoFrame(t, conn)
}
