package userdata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nfrund/roster/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: baseTime} }

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// fakeSource answers the six reads from fixed data and counts profile reads,
// one per aggregate fetch.
type fakeSource struct {
	mu       sync.Mutex
	profile  *domain.Profile
	pictures []domain.Picture
	stories  []domain.Story
	errs     map[string]error

	fetches atomic.Int32
	gate    chan struct{}
}

func newFakeSource(userID string) *fakeSource {
	return &fakeSource{
		profile: &domain.Profile{ID: userID, Username: "ada", UserType: domain.UserTypeEscort},
		errs:    map[string]error{},
	}
}

func (f *fakeSource) fail(read string, err error) {
	f.mu.Lock()
	f.errs[read] = err
	f.mu.Unlock()
}

func (f *fakeSource) setProfile(p *domain.Profile) {
	f.mu.Lock()
	f.profile = p
	f.mu.Unlock()
}

func (f *fakeSource) errFor(read string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[read]
}

func (f *fakeSource) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	f.fetches.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errFor(ReadProfile); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profile == nil {
		return nil, nil
	}
	p := *f.profile
	p.ID = userID
	return &p, nil
}

func (f *fakeSource) Pictures(context.Context, string) ([]domain.Picture, error) {
	if err := f.errFor(ReadPictures); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Picture(nil), f.pictures...), nil
}

func (f *fakeSource) Rates(context.Context, string) ([]domain.Rate, error) {
	return nil, f.errFor(ReadRates)
}

func (f *fakeSource) Testimonials(context.Context, string) ([]domain.Testimonial, error) {
	return nil, f.errFor(ReadTestimonials)
}

func (f *fakeSource) Stories(context.Context, string) ([]domain.Story, error) {
	if err := f.errFor(ReadStories); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Story(nil), f.stories...), nil
}

func (f *fakeSource) Bookmarks(context.Context, string) ([]domain.Bookmark, error) {
	return nil, f.errFor(ReadBookmarks)
}

// fakeSession is a fixed SessionSource.
type fakeSession struct {
	mu        sync.Mutex
	userID    string
	expiresAt time.Time
	userErr   error
}

func (f *fakeSession) set(userID string, expiresAt time.Time) {
	f.mu.Lock()
	f.userID, f.expiresAt = userID, expiresAt
	f.mu.Unlock()
}

func (f *fakeSession) GetUser(context.Context) (*domain.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userErr != nil {
		return nil, f.userErr
	}
	if f.userID == "" {
		return nil, nil
	}
	return &domain.Principal{UserID: f.userID}, nil
}

func (f *fakeSession) GetSession(context.Context) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return &domain.Session{UserID: f.userID, ExpiresAt: f.expiresAt}, nil
}

// failingStore rejects writes.
type failingStore struct{ MemoryStore }

var errQuota = errors.New("quota exceeded")

func (f *failingStore) Set(context.Context, *Envelope) error { return errQuota }

// blockingStore holds Get until release is closed.
type blockingStore struct {
	MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingStore() *blockingStore {
	return &blockingStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingStore) Get(ctx context.Context) (*Envelope, error) {
	b.once.Do(func() { close(b.entered) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.MemoryStore.Get(ctx)
}
