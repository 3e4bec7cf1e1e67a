package userdata

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nfrund/roster/internal/pubsub"
)

// Manager owns one Cache per browser session.
type Manager struct {
	source   Source
	sessions SessionLookup
	stores   StoreFactory
	opts     []Option
	logger   *slog.Logger

	mu         sync.Mutex
	caches     map[string]*Cache
	subscribed bool
}

// NewManager creates a Manager. opts are applied to every cache it creates.
func NewManager(source Source, sessions SessionLookup, stores StoreFactory, opts ...Option) *Manager {
	return &Manager{
		source:   source,
		sessions: sessions,
		stores:   stores,
		opts:     opts,
		logger:   slog.Default().With("component", "userdata"),
		caches:   make(map[string]*Cache),
	}
}

// Cache returns the cache of sessionID, creating it on first use.
func (m *Manager) Cache(sessionID string) (*Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.caches[sessionID]; ok {
		return c, nil
	}
	store, err := m.stores(sessionID)
	if err != nil {
		return nil, err
	}
	c := New(m.source, m.sessions(sessionID), store, m.opts...)
	m.caches[sessionID] = c
	return c, nil
}

// Forget drops the cache of sessionID and removes its persisted entry.
func (m *Manager) Forget(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	c, ok := m.caches[sessionID]
	delete(m.caches, sessionID)
	m.mu.Unlock()

	if ok {
		return c.retire(ctx)
	}
	store, err := m.stores(sessionID)
	if err != nil {
		return err
	}
	return store.Clear(ctx)
}

// Evict drops caches that have not been used for idle. Persisted entries are
// kept so the session can pick them up again. It returns the number dropped.
func (m *Manager) Evict(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for sid, c := range m.caches {
		if c.LastUsed().Before(cutoff) {
			delete(m.caches, sid)
			n++
		}
	}
	return n
}

// Has reports whether sessionID has a live cache.
func (m *Manager) Has(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.caches[sessionID]
	return ok
}

// Len is the number of live caches.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.caches)
}

// SessionIDs lists the sessions with a live cache, sorted.
func (m *Manager) SessionIDs() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.caches))
	for sid := range m.caches {
		ids = append(ids, sid)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// cachesFor returns the caches whose last fetch was for userID.
func (m *Manager) cachesFor(userID string) []*Cache {
	m.mu.Lock()
	all := make([]*Cache, 0, len(m.caches))
	for _, c := range m.caches {
		all = append(all, c)
	}
	m.mu.Unlock()

	var out []*Cache
	for _, c := range all {
		if c.Principal() == userID {
			out = append(out, c)
		}
	}
	return out
}

// Subscribe refetches the caches of a user whenever ChangedEvent names them.
// It may be called once.
func (m *Manager) Subscribe(ctx context.Context, sub pubsub.Subscriber) error {
	m.mu.Lock()
	if m.subscribed {
		m.mu.Unlock()
		return ErrAlreadySubscribed
	}
	m.subscribed = true
	m.mu.Unlock()

	err := pubsub.Subscribe(ctx, sub, ChangedEvent, m.handleChanged)
	if err != nil {
		m.mu.Lock()
		m.subscribed = false
		m.mu.Unlock()
	}
	return err
}

func (m *Manager) handleChanged(ctx context.Context, payload ChangedPayload) error {
	if payload.UserID == "" {
		return nil
	}
	caches := m.cachesFor(payload.UserID)
	if len(caches) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, c := range caches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Refetch(ctx); err != nil {
				m.logger.WarnContext(ctx, "Refetch after change failed", "user_id", payload.UserID, "error", err)
			}
		}()
	}
	wg.Wait()

	m.logger.DebugContext(ctx, "Refetched user data after change", "user_id", payload.UserID, "caches", len(caches))
	return nil
}
