package userdata

import (
	"cmp"
	"slices"
	"time"

	"github.com/nfrund/roster/internal/domain"
)

// Bundle is the cached aggregate of the signed-in user's profile data. It is
// only ever stored or served as a whole.
type Bundle struct {
	User         *domain.Profile      `json:"user"`
	Pictures     []domain.Picture     `json:"pictures"`
	Rates        []domain.Rate        `json:"rates"`
	Testimonials []domain.Testimonial `json:"testimonials"`
	Stories      []domain.Story       `json:"stories"`
	Bookmarks    []domain.Bookmark    `json:"bookmarks"`
}

// EmptyBundle has no user and empty, non-nil collections.
func EmptyBundle() Bundle {
	return Bundle{
		Pictures:     []domain.Picture{},
		Rates:        []domain.Rate{},
		Testimonials: []domain.Testimonial{},
		Stories:      []domain.Story{},
		Bookmarks:    []domain.Bookmark{},
	}
}

// normalize replaces nil collections with empty ones and orders pictures and
// stories newest first. Equal timestamps keep their relative order.
func (b *Bundle) normalize() {
	if b.Pictures == nil {
		b.Pictures = []domain.Picture{}
	}
	if b.Rates == nil {
		b.Rates = []domain.Rate{}
	}
	if b.Testimonials == nil {
		b.Testimonials = []domain.Testimonial{}
	}
	if b.Stories == nil {
		b.Stories = []domain.Story{}
	}
	if b.Bookmarks == nil {
		b.Bookmarks = []domain.Bookmark{}
	}
	slices.SortStableFunc(b.Pictures, func(x, y domain.Picture) int {
		return newestFirst(x.CreatedAt, y.CreatedAt)
	})
	slices.SortStableFunc(b.Stories, func(x, y domain.Story) int {
		return newestFirst(x.CreatedAt, y.CreatedAt)
	})
}

func newestFirst(a, b time.Time) int {
	return cmp.Compare(b.UnixNano(), a.UnixNano())
}

// Envelope is the persisted form of a bundle. ExpiresAt is in Unix
// milliseconds.
type Envelope struct {
	Data      Bundle `json:"data"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Expired reports whether the envelope is no longer usable at now. An entry
// is fresh only while its expiry lies strictly in the future.
func (e *Envelope) Expired(now time.Time) bool {
	return e.ExpiresAt <= now.UnixMilli()
}

// ExpiresTime returns ExpiresAt as a time.
func (e *Envelope) ExpiresTime() time.Time {
	return time.UnixMilli(e.ExpiresAt)
}

// Status is the position of a cache in its state machine.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
	StatusError
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// PersistResult reports the outcome of the last attempt to write the bundle
// to the store. A failed write does not fail the fetch.
type PersistResult struct {
	Attempted bool
	At        time.Time
	Err       error
}

// OK is true when nothing was attempted or the write succeeded.
func (p PersistResult) OK() bool { return p.Err == nil }

// State is a snapshot of a cache as seen by a consumer.
type State struct {
	Bundle

	IsLoading bool
	// Err is the last fetch failure. The bundle keeps its previous contents.
	Err       error
	Status    Status
	ExpiresAt time.Time

	Persistence PersistResult
}

func (s State) clone() State {
	out := s
	out.Pictures = slices.Clone(s.Pictures)
	out.Rates = slices.Clone(s.Rates)
	out.Testimonials = slices.Clone(s.Testimonials)
	out.Stories = slices.Clone(s.Stories)
	out.Bookmarks = slices.Clone(s.Bookmarks)
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}
