package domain

import "time"

// Principal identifies the authenticated user behind a browser session.
type Principal struct {
	UserID string
}

// Session is the backend session of a principal. ExpiresAt is zero when the
// backend did not report an expiry.
type Session struct {
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the session has a known expiry that lies before now.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
