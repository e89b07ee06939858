package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrause92/askwave/internal/domain"
)

type stubEventRepo struct {
	mu     sync.Mutex
	events map[string]*domain.Event
	calls  int
}

func newStubEventRepo(events ...*domain.Event) *stubEventRepo {
	repo := &stubEventRepo{events: make(map[string]*domain.Event)}
	for _, e := range events {
		repo.events[e.JoinCode] = e
	}
	return repo
}

func (r *stubEventRepo) Create(_ context.Context, title, joinCode string, isActive bool) (*domain.Event, error) {
	event := &domain.Event{ID: uuid.New(), Title: title, JoinCode: joinCode, IsActive: isActive}
	r.mu.Lock()
	r.events[joinCode] = event
	r.mu.Unlock()
	return event, nil
}

func (r *stubEventRepo) GetByJoinCode(_ context.Context, joinCode string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if event, ok := r.events[joinCode]; ok {
		copied := *event
		return &copied, nil
	}
	return nil, domain.ErrEventNotFound
}

func (r *stubEventRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.ID == id {
			copied := *event
			return &copied, nil
		}
	}
	return nil, domain.ErrEventNotFound
}

func (r *stubEventRepo) storeCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend unavailable")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend unavailable")
}

func activeEvent(code string) *domain.Event {
	return &domain.Event{ID: uuid.New(), Title: "Town Hall", JoinCode: code, IsActive: true}
}

func TestEventCache_MissThenHit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := newStubEventRepo(activeEvent("ABC123"))
	eventCache := NewEventCache(NewMemoryStore(clock), repo, 60*time.Second)

	first, err := eventCache.GetByJoinCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.storeCalls())

	// Second read is served from cache without touching the store.
	second, err := eventCache.GetByJoinCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.storeCalls())
	assert.Equal(t, first.ID, second.ID)
}

func TestEventCache_NormalizedVariantsShareOneEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := newStubEventRepo(activeEvent("ABC123"))
	eventCache := NewEventCache(NewMemoryStore(clock), repo, 60*time.Second)

	for _, code := range []string{" abc123 ", "ABC123", "abc123", " Abc123"} {
		event, err := eventCache.GetByJoinCode(context.Background(), code)
		require.NoError(t, err)
		assert.Equal(t, "ABC123", event.JoinCode)
	}

	assert.Equal(t, 1, repo.storeCalls())
}

func TestEventCache_EntryExpiresAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := newStubEventRepo(activeEvent("ABC123"))
	eventCache := NewEventCache(NewMemoryStore(clock), repo, 60*time.Second)

	_, err := eventCache.GetByJoinCode(context.Background(), "ABC123")
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = eventCache.GetByJoinCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.storeCalls(), "entry inside TTL must be served from cache")

	clock.Advance(2 * time.Second)
	_, err = eventCache.GetByJoinCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.storeCalls(), "entry past TTL must be refetched")
}

func TestEventCache_StalenessBoundedByTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := newStubEventRepo(activeEvent("ABC123"))
	eventCache := NewEventCache(NewMemoryStore(clock), repo, 60*time.Second)

	cached, err := eventCache.GetByJoinCode(context.Background(), "ABC123")
	require.NoError(t, err)

	// Update the stored title; no invalidation happens on write.
	repo.mu.Lock()
	repo.events["ABC123"].Title = "Town Hall (renamed)"
	repo.mu.Unlock()

	stale, err := eventCache.GetByJoinCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, cached.Title, stale.Title, "reads within the TTL may serve the old value")

	clock.Advance(61 * time.Second)
	fresh, err := eventCache.GetByJoinCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "Town Hall (renamed)", fresh.Title, "reads past the TTL must see the update")
}

func TestEventCache_NotFoundIsNotCached(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := newStubEventRepo()
	eventCache := NewEventCache(NewMemoryStore(clock), repo, 60*time.Second)

	_, err := eventCache.GetByJoinCode(context.Background(), "NOPE42")
	require.ErrorIs(t, err, domain.ErrEventNotFound)

	// The event appears; the next lookup must find it immediately.
	created, err := repo.Create(context.Background(), "Late Event", "NOPE42", true)
	require.NoError(t, err)

	found, err := eventCache.GetByJoinCode(context.Background(), "NOPE42")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestEventCache_ClosedEventIsNotCached(t *testing.T) {
	clock := clockwork.NewFakeClock()
	event := activeEvent("ABC123")
	event.IsActive = false
	repo := newStubEventRepo(event)
	eventCache := NewEventCache(NewMemoryStore(clock), repo, 60*time.Second)

	_, err := eventCache.GetByJoinCode(context.Background(), "ABC123")
	require.ErrorIs(t, err, domain.ErrEventClosed)

	// Reopening takes effect on the very next lookup.
	repo.mu.Lock()
	repo.events["ABC123"].IsActive = true
	repo.mu.Unlock()

	found, err := eventCache.GetByJoinCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.True(t, found.IsActive)
}

func TestEventCache_BackendErrorFallsThroughToStore(t *testing.T) {
	repo := newStubEventRepo(activeEvent("ABC123"))
	eventCache := NewEventCache(failingStore{}, repo, 60*time.Second)

	event, err := eventCache.GetByJoinCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", event.JoinCode)
	assert.Equal(t, 1, repo.storeCalls())
}

func TestMemoryStore_EvictionTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewMemoryStore(clock)
	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), 30*time.Second))

	stop := store.StartEvictionTimer(10 * time.Second)
	defer stop()

	clock.BlockUntilContext(context.Background(), 1)
	clock.Advance(40 * time.Second)

	assert.Eventually(t, func() bool {
		store.mu.RLock()
		defer store.mu.RUnlock()
		return len(store.entries) == 0
	}, time.Second, 10*time.Millisecond)
}
