package domain

import (
	"context"
	"encoding/json"
)

// Event types carried in room messages.
const (
	EventQuestionCreated = "question:created"
	EventQuestionUpvoted = "question:upvoted"
)

// RoomMessage is the transient envelope fanned out across worker processes.
// It exists only in flight on the bus and is never persisted. OriginWorkerID
// identifies the publishing worker for logging; receivers must not use it to
// filter self-originated messages.
type RoomMessage struct {
	RoomID         string          `json:"roomId"`
	EventType      string          `json:"eventType"`
	Payload        json.RawMessage `json:"payload"`
	OriginWorkerID string          `json:"originWorkerId,omitempty"`
}

// RoomPublisher hands a room-scoped message to the broadcast bus exactly once.
// Handlers receive a publisher at construction time; there is no package-level
// broadcast handle.
type RoomPublisher interface {
	Publish(ctx context.Context, roomID, eventType string, payload any) error
}
