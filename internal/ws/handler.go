package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/tkrause92/askwave/internal/metrics"
)

const (
	maxMessageSize = 4096

	// Join/leave commands per connection; bursts tolerate UI reconnect storms.
	messageRate  = 10
	messageBurst = 20
)

// clientCommand is what attendees send over the socket.
type clientCommand struct {
	Action string `json:"action"`
	RoomID string `json:"roomId"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// Handler upgrades websocket connections and drives the per-connection read
// loop. There is no session resumption: a client that reconnects must
// re-issue its join, and anything published while it was gone is lost to it.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, checkOrigin func(r *http.Request) bool) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Handle serves one websocket connection until the transport closes.
func (h *Handler) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		return nil
	}

	client := h.hub.Register(conn)
	metrics.ActiveConnections.Inc()
	slog.Debug("Client connected", "client_id", client.ID, "remote_addr", conn.RemoteAddr())

	defer func() {
		h.hub.Unregister(client)
		metrics.ActiveConnections.Dec()
		slog.Debug("Client disconnected", "client_id", client.ID)
	}()

	conn.SetReadLimit(maxMessageSize)
	limiter := rate.NewLimiter(messageRate, messageBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Transport close, explicit or abrupt; cleanup runs either way.
			return nil
		}

		if !limiter.Allow() {
			h.sendError(client, "rate limit exceeded")
			continue
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.sendError(client, "malformed message")
			continue
		}

		switch cmd.Action {
		case "joinEvent":
			if cmd.RoomID == "" {
				h.sendError(client, "roomId is required")
				continue
			}
			h.hub.Join(client, cmd.RoomID)
		case "leaveEvent":
			if cmd.RoomID == "" {
				h.sendError(client, "roomId is required")
				continue
			}
			h.hub.Leave(client, cmd.RoomID)
		default:
			h.sendError(client, "unknown action")
		}
	}
}

func (h *Handler) sendError(client *Client, message string) {
	data, err := json.Marshal(errorFrame{Error: message})
	if err != nil {
		return
	}
	// Dropped when the client's queue is full; the error is advisory.
	client.trySend(data)
}
