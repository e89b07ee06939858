// Package cache implements the read-through event lookup with time-bounded
// staleness. Only positive, visible results are cached; staleness after a
// write is bounded by the TTL alone, never by write-triggered invalidation.
// That window is a documented contract of the lookup path.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tkrause92/askwave/internal/domain"
	"github.com/tkrause92/askwave/internal/metrics"
)

const eventKeyPrefix = "event:"

// Store is the cache backend. The redis-backed implementation enforces TTL
// server-side; the in-memory one uses a clock.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EventCache is the cache-aside accessor for the hot join-code lookup.
type EventCache struct {
	store  Store
	events domain.EventRepository
	ttl    time.Duration
	group  singleflight.Group
}

var _ domain.EventLookup = (*EventCache)(nil)

func NewEventCache(store Store, events domain.EventRepository, ttl time.Duration) *EventCache {
	return &EventCache{store: store, events: events, ttl: ttl}
}

// GetByJoinCode normalizes the code, checks the cache, and on a miss queries
// the store. A found, active event is cached with the fixed TTL before being
// returned. Not-found and closed results pass through uncached. Cache backend
// errors degrade to a store read.
func (c *EventCache) GetByJoinCode(ctx context.Context, rawCode string) (*domain.Event, error) {
	code := domain.NormalizeJoinCode(rawCode)
	key := eventKeyPrefix + code

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Warn("Event cache read failed, falling through to store", "join_code", code, "error", err)
	} else if ok {
		var event domain.Event
		if err := json.Unmarshal(data, &event); err != nil {
			slog.Warn("Dropping undecodable cache entry", "join_code", code, "error", err)
		} else {
			metrics.EventCacheHits.Inc()
			return &event, nil
		}
	}

	metrics.EventCacheMisses.Inc()

	// Concurrent misses for the same code collapse into one store query.
	v, err, _ := c.group.Do(code, func() (any, error) {
		return c.lookupAndPopulate(ctx, code, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Event), nil
}

func (c *EventCache) lookupAndPopulate(ctx context.Context, code, key string) (*domain.Event, error) {
	event, err := c.events.GetByJoinCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return nil, domain.ErrEventClosed
	}

	// Best-effort populate; a failed write just means the next read misses.
	if encoded, err := json.Marshal(event); err == nil {
		if err := c.store.Set(ctx, key, encoded, c.ttl); err != nil {
			slog.Warn("Failed to populate event cache", "join_code", code, "error", err)
		}
	}
	return event, nil
}
