// Package ws holds the per-worker connection registry and the websocket
// endpoint. Registry state is owned by a single goroutine; the broadcast bus
// is the only cross-process coordination mechanism, so no cross-process
// locking exists here.
package ws

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tkrause92/askwave/internal/domain"
	"github.com/tkrause92/askwave/internal/metrics"
)

const (
	sendQueueSize = 16
	writeTimeout  = 5 * time.Second
)

// Client is one registered websocket connection with an opaque identity.
// A fresh client belongs to no room.
type Client struct {
	ID     uuid.UUID
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClient(conn *websocket.Conn) *Client {
	c := &Client{
		ID:     uuid.New(),
		conn:   conn,
		sendCh: make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *Client) writeLoop() {
	for {
		select {
		case msg, ok := <-c.sendCh:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// trySend queues a frame without blocking. Returns false when the client's
// queue is full.
func (c *Client) trySend(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		return false
	}
}

func (c *Client) stop() {
	close(c.done)
	_ = c.conn.Close()
}

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct{ client *Client }

func (cmdRegister) hubCmd() {}

type cmdUnregister struct{ client *Client }

func (cmdUnregister) hubCmd() {}

type cmdJoin struct {
	client *Client
	roomID string
}

func (cmdJoin) hubCmd() {}

type cmdLeave struct {
	client *Client
	roomID string
}

func (cmdLeave) hubCmd() {}

type cmdDeliver struct {
	roomID string
	data   []byte
}

func (cmdDeliver) hubCmd() {}

type cmdRoomCount struct {
	roomID  string
	replyCh chan int
}

func (cmdRoomCount) hubCmd() {}

type cmdClientRooms struct {
	client  *Client
	replyCh chan []string
}

func (cmdClientRooms) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// serverFrame is the room-scoped message shape written to clients.
type serverFrame struct {
	RoomID    string          `json:"roomId"`
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload"`
}

// Hub is the worker-local connection registry: room → clients plus the
// client → rooms reverse index used for disconnect cleanup. Membership is
// worker-local; no process has a global view of a room's subscribers.
type Hub struct {
	cmdCh   chan hubCmd
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}
}

func NewHub() *Hub {
	h := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]map[string]struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.clients[c.client] = make(map[string]struct{})
		case cmdUnregister:
			h.handleUnregister(c.client)
		case cmdJoin:
			h.handleJoin(c.client, c.roomID)
		case cmdLeave:
			h.handleLeave(c.client, c.roomID)
		case cmdDeliver:
			h.handleDeliver(c.roomID, c.data)
		case cmdRoomCount:
			c.replyCh <- len(h.rooms[c.roomID])
		case cmdClientRooms:
			rooms := make([]string, 0, len(h.clients[c.client]))
			for roomID := range h.clients[c.client] {
				rooms = append(rooms, roomID)
			}
			c.replyCh <- rooms
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleJoin(client *Client, roomID string) {
	joined, exists := h.clients[client]
	if !exists {
		// Already unregistered; a late join is a no-op.
		return
	}
	if _, member := joined[roomID]; member {
		// Re-joining the same room is a no-op.
		return
	}

	room, exists := h.rooms[roomID]
	if !exists {
		room = make(map[*Client]struct{})
		h.rooms[roomID] = room
	}
	room[client] = struct{}{}
	joined[roomID] = struct{}{}

	metrics.RoomJoins.Inc()
	slog.Debug("Client joined room", "client_id", client.ID, "room_id", roomID, "room_size", len(room))
}

func (h *Hub) handleLeave(client *Client, roomID string) {
	joined, exists := h.clients[client]
	if !exists {
		return
	}
	delete(joined, roomID)
	h.removeFromRoom(client, roomID)
}

func (h *Hub) removeFromRoom(client *Client, roomID string) {
	room, exists := h.rooms[roomID]
	if !exists {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) handleUnregister(client *Client) {
	joined, exists := h.clients[client]
	if !exists {
		return
	}
	for roomID := range joined {
		h.removeFromRoom(client, roomID)
	}
	delete(h.clients, client)
	client.stop()
	slog.Debug("Client unregistered", "client_id", client.ID)
}

func (h *Hub) handleDeliver(roomID string, data []byte) {
	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	var slow []*Client
	for client := range room {
		if client.trySend(data) {
			metrics.RoomDeliveries.Inc()
		} else {
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		slog.Warn("Disconnecting slow client", "client_id", client.ID, "room_id", roomID)
		h.handleUnregister(client)
	}
}

func (h *Hub) handleStop() {
	for client := range h.clients {
		client.stop()
	}
	h.clients = make(map[*Client]map[string]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
}

// --- Public API ---

// Register assigns an opaque identity to a new connection and places it in
// no room.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	client := newClient(conn)
	h.cmdCh <- cmdRegister{client: client}
	return client
}

// Unregister removes the connection from every room it belonged to and
// closes it. Safe to call for an already unregistered client.
func (h *Hub) Unregister(client *Client) {
	h.cmdCh <- cmdUnregister{client: client}
}

// Join adds the connection to a room. Idempotent.
func (h *Hub) Join(client *Client, roomID string) {
	h.cmdCh <- cmdJoin{client: client, roomID: roomID}
}

// Leave removes the connection from a room.
func (h *Hub) Leave(client *Client, roomID string) {
	h.cmdCh <- cmdLeave{client: client, roomID: roomID}
}

// Deliver forwards a bus message to every local connection in its room. It
// never re-publishes, so fanout cannot loop.
func (h *Hub) Deliver(msg domain.RoomMessage) {
	frame := serverFrame{RoomID: msg.RoomID, EventType: msg.EventType, Payload: msg.Payload}
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Error("Failed to marshal room frame", "room_id", msg.RoomID, "error", err)
		return
	}
	h.cmdCh <- cmdDeliver{roomID: msg.RoomID, data: data}
}

// RoomCount returns the number of local connections in a room.
func (h *Hub) RoomCount(roomID string) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdRoomCount{roomID: roomID, replyCh: replyCh}
	return <-replyCh
}

// ClientRooms returns the rooms a connection currently belongs to.
func (h *Hub) ClientRooms(client *Client) []string {
	replyCh := make(chan []string, 1)
	h.cmdCh <- cmdClientRooms{client: client, replyCh: replyCh}
	return <-replyCh
}

// Stop closes all connections and terminates the registry goroutine.
func (h *Hub) Stop() {
	h.cmdCh <- cmdStop{}
}
