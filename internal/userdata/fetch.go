package userdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type fetchOutcome struct {
	status    Status
	bundle    Bundle
	expiresAt time.Time
	principal string
	persist   PersistResult
	err       error
}

// fetch resolves the principal, runs the six reads concurrently and persists
// the result. It never returns a partial bundle.
func (c *Cache) fetch(ctx context.Context) fetchOutcome {
	user, err := c.session.GetUser(ctx)
	if err != nil || user == nil || user.UserID == "" {
		if err != nil {
			c.logger.DebugContext(ctx, "No signed-in user", "error", err)
		}
		return fetchOutcome{status: StatusUnauthenticated, bundle: EmptyBundle()}
	}

	sess, err := c.session.GetSession(ctx)
	if err != nil {
		return fetchOutcome{status: StatusError, err: fmt.Errorf("failed to get session: %w", err)}
	}

	bundle, err := c.readAll(ctx, user.UserID)
	if err != nil {
		return fetchOutcome{status: StatusError, principal: user.UserID, err: err}
	}

	now := c.clock()
	expiresAt := now
	if sess != nil && !sess.ExpiresAt.IsZero() {
		expiresAt = sess.ExpiresAt
	}

	out := fetchOutcome{status: StatusReady, bundle: bundle, expiresAt: expiresAt, principal: user.UserID}
	attempted, err := c.persist(ctx, &Envelope{Data: bundle, ExpiresAt: expiresAt.UnixMilli()})
	if !attempted {
		c.logger.DebugContext(ctx, "Dropping user data fetched for a retired cache", "user_id", user.UserID)
		return out
	}
	out.persist = PersistResult{Attempted: true, At: now, Err: err}
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to persist user data", "user_id", user.UserID, "error", err)
	}
	return out
}

// readAll issues the six reads at once and waits for all of them. Failures
// are reported together in read order.
func (c *Cache) readAll(ctx context.Context, userID string) (Bundle, error) {
	var (
		wg     sync.WaitGroup
		b      Bundle
		errs   [6]error
		start  = time.Now()
		reads  = [6]string{ReadProfile, ReadPictures, ReadRates, ReadTestimonials, ReadStories, ReadBookmarks}
		runOne = func(i int, f func() error) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = f()
			}()
		}
	)

	runOne(0, func() (err error) { b.User, err = c.source.Profile(ctx, userID); return })
	runOne(1, func() (err error) { b.Pictures, err = c.source.Pictures(ctx, userID); return })
	runOne(2, func() (err error) { b.Rates, err = c.source.Rates(ctx, userID); return })
	runOne(3, func() (err error) { b.Testimonials, err = c.source.Testimonials(ctx, userID); return })
	runOne(4, func() (err error) { b.Stories, err = c.source.Stories(ctx, userID); return })
	runOne(5, func() (err error) { b.Bookmarks, err = c.source.Bookmarks(ctx, userID); return })
	wg.Wait()

	var failed []*ReadError
	for i, err := range errs {
		if err != nil {
			failed = append(failed, &ReadError{Read: reads[i], Err: err})
		}
	}
	if len(failed) > 0 {
		perr := newPartialFetchError(failed)
		c.logger.WarnContext(ctx, "User data fetch failed",
			"user_id", userID, "failed", perr.Failed(), "duration", time.Since(start), "error", perr)
		return Bundle{}, perr
	}
	if b.User == nil {
		return Bundle{}, ErrProfileNotFound
	}

	b.normalize()
	c.logger.DebugContext(ctx, "User data fetched",
		slog.String("user_id", userID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("pictures", len(b.Pictures)),
		slog.Int("stories", len(b.Stories)))
	return b, nil
}
