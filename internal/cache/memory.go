package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store with clock-driven expiry. Workers use
// the redis store; this one serves tests and embedded setups where expiry
// must be controllable.
type MemoryStore struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	entries map[string]memoryEntry
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the entry unless it is absent or expired. An entry is expired
// once now >= expiry, so it is never returned past its TTL.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !s.clock.Now().Before(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.clock.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// StartEvictionTimer prunes expired entries on the given interval so the map
// does not grow with dead keys. Returns a stop function.
func (s *MemoryStore) StartEvictionTimer(interval time.Duration) func() {
	done := make(chan struct{})
	ticker := s.clock.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				s.evictExpired()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (s *MemoryStore) evictExpired() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
