package userdata

import (
	"context"

	"github.com/nfrund/roster/internal/domain"
)

// Source performs the six reads that make up a bundle. Every read is keyed by
// the signed-in user's id.
type Source interface {
	Profile(ctx context.Context, userID string) (*domain.Profile, error)
	Pictures(ctx context.Context, userID string) ([]domain.Picture, error)
	Rates(ctx context.Context, userID string) ([]domain.Rate, error)
	Testimonials(ctx context.Context, userID string) ([]domain.Testimonial, error)
	Stories(ctx context.Context, userID string) ([]domain.Story, error)
	Bookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error)
}

// SessionSource answers who is signed in. GetUser returns nil when nobody is.
type SessionSource interface {
	GetUser(ctx context.Context) (*domain.Principal, error)
	GetSession(ctx context.Context) (*domain.Session, error)
}

// SessionLookup resolves the SessionSource of a browser session.
type SessionLookup func(sessionID string) SessionSource
