package auth

import (
	"context"
	"sync"
	"time"

	"github.com/nfrund/roster/internal/domain"
)

// SessionState is the authentication state of one browser session. The
// session middleware refreshes it from the cookie on every request, so a
// background fetch started by an earlier request still sees a logout.
type SessionState struct {
	mu        sync.RWMutex
	userID    string
	expiresAt time.Time
	now       func() time.Time
}

// NewSessionState returns an unauthenticated state.
func NewSessionState() *SessionState {
	return &SessionState{now: time.Now}
}

// Set records the signed-in user and the backend session expiry.
func (s *SessionState) Set(userID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.expiresAt = expiresAt
}

// Clear forgets the signed-in user.
func (s *SessionState) Clear() {
	s.Set("", time.Time{})
}

// GetUser returns the principal, or nil when nobody is signed in or the
// backend session has expired.
func (s *SessionState) GetUser(_ context.Context) (*domain.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == "" {
		return nil, nil
	}
	if (&domain.Session{UserID: s.userID, ExpiresAt: s.expiresAt}).Expired(s.now()) {
		return nil, nil
	}
	return &domain.Principal{UserID: s.userID}, nil
}

// GetSession returns the backend session of the signed-in user.
func (s *SessionState) GetSession(_ context.Context) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return &domain.Session{UserID: s.userID, ExpiresAt: s.expiresAt}, nil
}

// Registry hands out one SessionState per browser session id. Every
// request touches its session's state, so states that go untouched for long
// belong to browsers that went away and can be evicted.
type Registry struct {
	mu     sync.Mutex
	states map[string]*SessionState
	seen   map[string]time.Time
	now    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		states: make(map[string]*SessionState),
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// State returns the state for sessionID, creating it on first use.
func (r *Registry) State(sessionID string) *SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[sessionID]
	if !ok {
		st = NewSessionState()
		r.states[sessionID] = st
	}
	r.seen[sessionID] = r.now()
	return st
}

// Forget drops the state of sessionID.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, sessionID)
	delete(r.seen, sessionID)
}

// Evict drops the states not handed out for idle. States for which keep
// reports true stay. keep is called without the registry lock held and may be
// nil. It returns the number of states dropped.
func (r *Registry) Evict(idle time.Duration, keep func(sessionID string) bool) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []string
	for sid, seen := range r.seen {
		if seen.Before(cutoff) {
			stale = append(stale, sid)
		}
	}
	r.mu.Unlock()

	n := 0
	for _, sid := range stale {
		if keep != nil && keep(sid) {
			continue
		}
		r.mu.Lock()
		// The state may have been handed out again since the scan.
		if seen, ok := r.seen[sid]; ok && seen.Before(cutoff) {
			delete(r.states, sid)
			delete(r.seen, sid)
			n++
		}
		r.mu.Unlock()
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
