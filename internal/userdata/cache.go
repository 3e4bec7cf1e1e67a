package userdata

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	fetchKey = "fetch"

	defaultFetchTimeout = 30 * time.Second
	defaultStoreTimeout = 5 * time.Second
)

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.clock = now }
}

// WithFetchTimeout bounds a shared fetch. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) { c.fetchTimeout = d }
}

// WithStoreTimeout bounds store reads done on behalf of Read.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Cache) { c.storeTimeout = d }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// Cache holds the user data of one browser session.
//
// Reads are served from the persisted envelope while it is fresh. A miss or an
// expired entry starts a background fetch. At most one fetch runs at a time;
// Read, Load and Refetch calls made while it runs all share it.
type Cache struct {
	source  Source
	session SessionSource
	store   Store
	logger  *slog.Logger

	clock        func() time.Time
	fetchTimeout time.Duration
	storeTimeout time.Duration

	group singleflight.Group

	// storeMu orders store writes against retire.
	storeMu sync.Mutex
	retired atomic.Bool

	mu        sync.Mutex
	state     State
	principal string
	running   chan struct{} // closed when the running fetch has applied its result
	gen       uint64        // bumped by every applied fetch
	lastUsed  time.Time
}

// New creates a cache in the Empty state.
func New(source Source, session SessionSource, store Store, opts ...Option) *Cache {
	c := &Cache{
		source:       source,
		session:      session,
		store:        store,
		logger:       slog.Default(),
		clock:        time.Now,
		fetchTimeout: defaultFetchTimeout,
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{Bundle: EmptyBundle(), Status: StatusEmpty}
	c.lastUsed = c.clock()
	return c
}

// Read returns the current state without waiting on the network.
//
// A fresh persisted entry is adopted as is. A missing or expired one starts a
// fetch unless one is already running, and the returned state reports
// IsLoading.
func (c *Cache) Read() State {
	st, _ := c.read()
	return st
}

// Load is Read followed by waiting for any fetch it started or found running.
// It returns early with ctx's error, leaving the fetch to finish on its own.
func (c *Cache) Load(ctx context.Context) (State, error) {
	st, wait := c.read()
	if wait == nil {
		return st, nil
	}
	select {
	case <-wait:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return st, ctx.Err()
	}
}

// Refetch runs a fresh aggregate fetch and waits for it. If a fetch is already
// running the call joins it. The fetch itself is not cancelled with ctx.
//
// The returned error is the fetch error, if any. It is also recorded in the
// state.
func (c *Cache) Refetch(ctx context.Context) error {
	ch := c.group.DoChan(fetchKey, c.fetchFn(ctx))
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClearCache removes the persisted entry. The in-memory state is left as is
// until the next read or fetch.
func (c *Cache) ClearCache(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.WarnContext(ctx, "Failed to clear user data cache", "error", err)
		return err
	}
	return nil
}

// Snapshot returns the current state without consulting the store.
func (c *Cache) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Principal is the user id of the last successful fetch, or "" if there is
// none.
func (c *Cache) Principal() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal
}

// LastUsed is when the cache was last read or fetched.
func (c *Cache) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

func (c *Cache) read() (State, <-chan struct{}) {
	now := c.clock()

	c.mu.Lock()
	c.lastUsed = now
	if c.running != nil {
		defer c.mu.Unlock()
		return c.state.clone(), c.running
	}
	gen := c.gen
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
	env := c.storedEntry(ctx, now)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	// A fetch started or finished while the store was read.
	if c.running != nil {
		return c.state.clone(), c.running
	}
	if c.gen != gen {
		return c.state.clone(), nil
	}

	if env != nil {
		data := env.Data
		data.normalize()
		c.state.Bundle = data
		c.state.IsLoading = false
		c.state.Err = nil
		c.state.Status = StatusReady
		c.state.ExpiresAt = env.ExpiresTime()
		c.principal = data.User.ID
		return c.state.clone(), nil
	}

	// DoChan runs the fetch on its own goroutine, so holding mu here is safe.
	// The fetch marks itself running once it holds mu.
	ch := c.group.DoChan(fetchKey, c.fetchFn(context.Background()))
	wait := make(chan struct{})
	go func() {
		<-ch
		close(wait)
	}()

	st := c.state.clone()
	st.IsLoading = true
	st.Err = nil
	if st.Status != StatusReady {
		st.Status = StatusLoading
	}
	return st, wait
}

// storedEntry returns the persisted envelope if it can be served: readable,
// unexpired and owned by the user signed in to the session. Anything else is
// removed and nil is returned.
func (c *Cache) storedEntry(ctx context.Context, now time.Time) *Envelope {
	env, err := c.store.Get(ctx)
	switch {
	case err != nil:
		if errors.Is(err, ErrCorruptEntry) {
			c.logger.Warn("Discarding unreadable user data cache entry", "error", err)
			c.clearStale(ctx)
		} else {
			c.logger.Warn("Failed to read user data cache", "error", err)
		}
		return nil
	case env == nil:
		return nil
	case env.Expired(now):
		c.logger.Debug("User data cache entry expired", "expires_at", env.ExpiresTime())
		c.clearStale(ctx)
		return nil
	}

	owner := ""
	if env.Data.User != nil {
		owner = env.Data.User.ID
	}
	user, err := c.session.GetUser(ctx)
	if err != nil || user == nil || owner == "" || user.UserID != owner {
		c.logger.Warn("Discarding user data cache entry not owned by the signed-in user", "owner", owner)
		c.clearStale(ctx)
		return nil
	}
	return env
}

func (c *Cache) clearStale(ctx context.Context) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("Failed to remove stale user data cache entry", "error", err)
	}
}

// persist writes env unless the cache has been retired.
func (c *Cache) persist(ctx context.Context, env *Envelope) (bool, error) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if c.retired.Load() {
		return false, nil
	}
	return true, c.store.Set(ctx, env)
}

// retire removes the persisted entry and stops any running fetch from writing
// it or updating the state. The cache must not be handed out afterwards.
func (c *Cache) retire(ctx context.Context) error {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	c.retired.Store(true)
	if err := c.store.Clear(ctx); err != nil {
		c.logger.WarnContext(ctx, "Failed to clear user data cache", "error", err)
		return err
	}
	return nil
}

// fetchFn builds the function shared through the singleflight group. base
// supplies values such as trace spans; its cancellation is ignored.
func (c *Cache) fetchFn(base context.Context) func() (any, error) {
	return func() (any, error) {
		done := make(chan struct{})

		c.mu.Lock()
		c.running = done
		c.state.IsLoading = true
		c.state.Err = nil
		c.state.Status = StatusLoading
		c.mu.Unlock()

		ctx := context.WithoutCancel(base)
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
			defer cancel()
		}

		out := c.fetch(ctx)

		c.mu.Lock()
		if c.retired.Load() {
			c.state.IsLoading = false
		} else {
			c.applyLocked(out)
		}
		c.running = nil
		c.lastUsed = c.clock()
		c.mu.Unlock()
		close(done)

		return nil, out.err
	}
}

func (c *Cache) applyLocked(out fetchOutcome) {
	c.gen++
	c.state.IsLoading = false
	c.state.Status = out.status

	switch out.status {
	case StatusUnauthenticated:
		c.state.Bundle = EmptyBundle()
		c.state.Err = nil
		c.state.ExpiresAt = time.Time{}
		c.principal = ""
	case StatusError:
		// The previous bundle stays visible next to the error.
		c.state.Err = out.err
	case StatusReady:
		c.state.Bundle = out.bundle
		c.state.Err = nil
		c.state.ExpiresAt = out.expiresAt
		c.state.Persistence = out.persist
		c.principal = out.principal
	}
}
