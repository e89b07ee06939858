package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tkrause92/askwave/internal/domain"
	"github.com/tkrause92/askwave/internal/metrics"
)

const roomChannelPrefix = "askwave:room:"

func roomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// Bus is the cross-process broadcast transport. Delivery is at-least-once to
// every currently subscribed worker with FIFO order per room channel; there
// is no durability, so a worker that is down at publish time never sees the
// message. The publishing worker receives its own messages through its
// subscription like any other worker.
type Bus struct {
	rdb      *goredis.Client
	workerID string
}

// NewBus creates a bus bound to one worker's identity. Publishing uses the
// shared client; subscribing takes a dedicated connection (go-redis keeps a
// connection in subscriber mode, which cannot issue other commands).
func NewBus(rdb *goredis.Client, workerID string) *Bus {
	return &Bus{rdb: rdb, workerID: workerID}
}

// Publish hands a room-scoped message to the bus exactly once.
func (b *Bus) Publish(ctx context.Context, roomID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := domain.RoomMessage{
		RoomID:         roomID,
		EventType:      eventType,
		Payload:        data,
		OriginWorkerID: b.workerID,
	}
	envelope, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal room message: %w", err)
	}

	if err := b.rdb.Publish(ctx, roomChannel(roomID), envelope).Err(); err != nil {
		return fmt.Errorf("failed to publish to room %s: %w", roomID, err)
	}
	metrics.BusMessagesPublished.WithLabelValues(eventType).Inc()
	return nil
}

// DeliverFunc receives each decoded room message. It must not re-publish the
// message, or every worker would amplify it indefinitely.
type DeliverFunc func(msg domain.RoomMessage)

// Subscription is an active subscriber loop. Close unsubscribes and stops it.
type Subscription struct {
	sub    *goredis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// Close unsubscribes and waits for the consumer goroutine to exit.
func (s *Subscription) Close() {
	s.cancel()
	_ = s.sub.Close()
	<-s.done
}

// Subscribe registers this worker for all room channels and invokes deliver
// for each message. It confirms the subscription with the server before
// returning, so a worker only starts accepting traffic once it is wired into
// the fanout.
func (b *Bus) Subscribe(ctx context.Context, deliver DeliverFunc) (*Subscription, error) {
	sub := b.rdb.PSubscribe(ctx, roomChannelPrefix+"*")

	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to confirm bus subscription: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{sub: sub, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		msgCh := sub.Channel()
		for {
			select {
			case raw, ok := <-msgCh:
				if !ok {
					return
				}
				var msg domain.RoomMessage
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					slog.Warn("Dropping undecodable bus message", "channel", raw.Channel, "error", err)
					continue
				}
				metrics.BusMessagesReceived.WithLabelValues(msg.EventType).Inc()
				deliver(msg)
			case <-subCtx.Done():
				return
			}
		}
	}()

	return s, nil
}
