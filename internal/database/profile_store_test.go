package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nfrund/roster/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type profileStoreFixture struct {
	store        *ProfileStore
	profiles     *fakeExecutor[profileRow]
	pictures     *fakeExecutor[pictureRow]
	rates        *fakeExecutor[rateRow]
	testimonials *fakeExecutor[testimonialRow]
	stories      *fakeExecutor[storyRow]
	bookmarks    *fakeExecutor[bookmarkRow]
}

func newProfileStoreFixture(t *testing.T) *profileStoreFixture {
	t.Helper()
	f := &profileStoreFixture{
		profiles:     &fakeExecutor[profileRow]{},
		pictures:     &fakeExecutor[pictureRow]{},
		rates:        &fakeExecutor[rateRow]{},
		testimonials: &fakeExecutor[testimonialRow]{},
		stories:      &fakeExecutor[storyRow]{},
		bookmarks:    &fakeExecutor[bookmarkRow]{},
	}
	f.store = NewProfileStoreWithClients(
		newTestClient(t, f.profiles),
		newTestClient(t, f.pictures),
		newTestClient(t, f.rates),
		newTestClient(t, f.testimonials),
		newTestClient(t, f.stories),
		newTestClient(t, f.bookmarks),
	)
	return f
}

func rid(table, id string) *surrealmodels.RecordID {
	r := surrealmodels.NewRecordID(table, id)
	return &r
}

func dt(t time.Time) *surrealmodels.CustomDateTime {
	return &surrealmodels.CustomDateTime{Time: t}
}

func TestProfileStore_Profile(t *testing.T) {
	ctx := context.Background()

	t.Run("missing row is not an error", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		p, err := f.store.Profile(ctx, "users:ada")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("maps record links and datetimes", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		until := time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC)
		f.profiles.rows = []profileRow{{
			ID:           rid("users", "ada"),
			Username:     "ada",
			UserType:     domain.UserTypeEscort,
			IsAvailable:  true,
			Availability: dt(until),
			CurrentOffer: rid("offers", "gold"),
		}}

		p, err := f.store.Profile(ctx, "users:ada")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "users:ada", p.ID)
		assert.Equal(t, "offers:gold", p.CurrentOffer)
		require.NotNil(t, p.AvailableUntil)
		assert.True(t, until.Equal(*p.AvailableUntil))
	})

	t.Run("rejects ids from other tables", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		_, err := f.store.Profile(ctx, "pictures:ada")
		assert.ErrorIs(t, err, ErrInvalidID)
		assert.Empty(t, f.profiles.calls)
	})
}

func TestProfileStore_Reads(t *testing.T) {
	ctx := context.Background()
	f := newProfileStoreFixture(t)
	owner := rid("users", "ada")
	author := rid("users", "bob")
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	f.pictures.rows = []pictureRow{{ID: rid("pictures", "p1"), Owner: owner, Picture: "https://cdn.example.com/p1.jpg", CreatedAt: dt(created)}}
	f.rates.rows = []rateRow{{ID: rid("rates", "r1"), Owner: owner, Reason: "Dinner", Price: "300", Duration: "2h"}}
	f.testimonials.rows = []testimonialRow{{
		ID:        rid("testimonials", "t1"),
		Recipient: owner,
		Comment:   "Wonderful",
		Owner:     authorRow{ID: author, Username: "bob", ProfilePicture: "https://cdn.example.com/bob.jpg"},
	}}
	f.stories.rows = []storyRow{{ID: rid("story", "s1"), Owner: owner, URL: "https://cdn.example.com/s1.mp4", IsVideo: true}}
	f.bookmarks.rows = []bookmarkRow{{ID: rid("bookmarks", "b1"), Owner: owner, Target: author}}

	pictures, err := f.store.Pictures(ctx, "users:ada")
	require.NoError(t, err)
	assert.Equal(t, []domain.Picture{{ID: "pictures:p1", Owner: "users:ada", URL: "https://cdn.example.com/p1.jpg", CreatedAt: created}}, pictures)
	assert.Equal(t, selectPictures, f.pictures.calls[0].query)
	assert.Equal(t, surrealmodels.NewRecordID("users", "ada"), f.pictures.calls[0].params["owner"])

	rates, err := f.store.Rates(ctx, "users:ada")
	require.NoError(t, err)
	assert.Equal(t, "Dinner", rates[0].Reason)

	testimonials, err := f.store.Testimonials(ctx, "users:ada")
	require.NoError(t, err)
	require.Len(t, testimonials, 1)
	assert.Equal(t, "users:ada", testimonials[0].To)
	assert.Equal(t, domain.AuthorSnapshot{ID: "users:bob", Username: "bob", ProfilePicture: "https://cdn.example.com/bob.jpg"}, testimonials[0].Owner)

	stories, err := f.store.Stories(ctx, "users:ada")
	require.NoError(t, err)
	assert.True(t, stories[0].IsVideo)

	bookmarks, err := f.store.Bookmarks(ctx, "users:ada")
	require.NoError(t, err)
	assert.Equal(t, "users:bob", bookmarks[0].To)
}

func TestProfileStore_ReadErrorsAreWrapped(t *testing.T) {
	f := newProfileStoreFixture(t)
	boom := errors.New("socket closed")
	f.rates.err = boom

	_, err := f.store.Rates(context.Background(), "users:ada")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to load rates")
}

func TestProfileStore_EmptyReadsAreEmptySlices(t *testing.T) {
	f := newProfileStoreFixture(t)
	pictures, err := f.store.Pictures(context.Background(), "users:ada")
	require.NoError(t, err)
	assert.NotNil(t, pictures)
	assert.Empty(t, pictures)
}

func TestProfileStore_AddService(t *testing.T) {
	ctx := context.Background()

	t.Run("general users cannot publish services", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		f.profiles.rows = []profileRow{{ID: rid("users", "ada"), UserType: domain.UserTypeGeneral, CurrentOffer: rid("offers", "gold")}}

		_, err := f.store.AddService(ctx, "users:ada", domain.NewService{Service: "dinner dates"})
		assert.ErrorIs(t, err, domain.ErrOfferRequired)
		assert.Len(t, f.profiles.calls, 1, "only the profile lookup runs")
	})

	t.Run("users with an offer add to the set", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		f.profiles.rows = []profileRow{{ID: rid("users", "ada"), UserType: domain.UserTypeEscort, CurrentOffer: rid("offers", "gold"), Services: []string{"dinner dates"}}}

		p, err := f.store.AddService(ctx, "users:ada", domain.NewService{Service: "dinner dates"})
		require.NoError(t, err)
		assert.Equal(t, []string{"dinner dates"}, p.Services)
		require.Len(t, f.profiles.calls, 2)
		assert.Contains(t, f.profiles.calls[1].query, "array::union")
		assert.Equal(t, "dinner dates", f.profiles.calls[1].params["service"])
	})

	t.Run("missing profile", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		_, err := f.store.AddService(ctx, "users:ghost", domain.NewService{Service: "x"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestProfileStore_SetAvailability(t *testing.T) {
	ctx := context.Background()
	until := time.Now().Add(3 * time.Hour)

	f := newProfileStoreFixture(t)
	f.profiles.rows = []profileRow{{ID: rid("users", "ada"), IsAvailable: true, Availability: dt(until)}}

	_, err := f.store.SetAvailability(ctx, "users:ada", domain.AvailabilityUpdate{IsAvailable: true, Until: &until, LocationName: "Lisbon"})
	require.NoError(t, err)
	call := f.profiles.calls[0]
	assert.Contains(t, call.query, "is_available = true")
	assert.Contains(t, call.query, "location_name = $location")
	assert.Equal(t, "Lisbon", call.params["location"])

	_, err = f.store.SetAvailability(ctx, "users:ada", domain.AvailabilityUpdate{IsAvailable: false})
	require.NoError(t, err)
	assert.Contains(t, f.profiles.calls[1].query, "availability = NONE")

	_, err = f.store.SetAvailability(ctx, "users:ada", domain.AvailabilityUpdate{IsAvailable: true})
	assert.Error(t, err, "an open window needs an end")
}

func TestProfileStore_DeleteOwned(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing deleted means not found", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		err := f.store.DeletePicture(ctx, "users:ada", "pictures:p1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		call := f.pictures.calls[0]
		assert.Contains(t, call.query, "WHERE owner = $owner")
		assert.Equal(t, surrealmodels.NewRecordID("users", "ada"), call.params["owner"])
	})

	t.Run("deletes an owned record", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		f.stories.rows = []storyRow{{ID: rid("story", "s1")}}
		assert.NoError(t, f.store.DeleteStory(ctx, "users:ada", "story:s1"))
	})

	t.Run("ids from another table never reach the database", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		err := f.store.DeleteRate(ctx, "users:ada", "users:bob")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, f.rates.calls)
	})
}

func TestProfileStore_ToggleBookmark(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when absent", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		exists, err := f.store.ToggleBookmark(ctx, "users:ada", "users:bob")
		require.NoError(t, err)
		assert.True(t, exists)
		require.Len(t, f.bookmarks.calls, 2)
		assert.Contains(t, f.bookmarks.calls[1].query, "CREATE")
	})

	t.Run("removes when present", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		f.bookmarks.rows = []bookmarkRow{{ID: rid("bookmarks", "b1")}}
		exists, err := f.store.ToggleBookmark(ctx, "users:ada", "users:bob")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Equal(t, "DELETE $id", f.bookmarks.calls[1].query)
	})

	t.Run("cannot bookmark yourself", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		_, err := f.store.ToggleBookmark(ctx, "users:ada", "users:ada")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestProfileStore_AddTestimonial(t *testing.T) {
	ctx := context.Background()

	t.Run("cannot review yourself", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		_, err := f.store.AddTestimonial(ctx, "users:ada", domain.NewTestimonial{To: "users:ada", Comment: "me"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("recipient must exist", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		_, err := f.store.AddTestimonial(ctx, "users:bob", domain.NewTestimonial{To: "users:ghost", Comment: "hi"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, f.testimonials.calls)
	})

	t.Run("returns the author snapshot", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		f.profiles.rows = []profileRow{{ID: rid("users", "ada")}}
		f.testimonials.rows = []testimonialRow{{
			ID:        rid("testimonials", "t1"),
			Recipient: rid("users", "ada"),
			Comment:   "Wonderful",
			Owner:     authorRow{ID: rid("users", "bob"), Username: "bob"},
		}}

		got, err := f.store.AddTestimonial(ctx, "users:bob", domain.NewTestimonial{To: "users:ada", Comment: "Wonderful"})
		require.NoError(t, err)
		assert.Equal(t, "bob", got.Owner.Username)
		assert.Equal(t, "users:ada", got.To)
		require.Len(t, f.testimonials.calls, 2)
		assert.Equal(t, selectTestimonial, f.testimonials.calls[1].query)
	})
}

func TestProfileStore_AddPlacesOfService(t *testing.T) {
	ctx := context.Background()
	in := domain.NewPlacesOfService{Places: []string{"Hotel", "Incall"}}

	t.Run("general users have no quota", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		f.profiles.rows = []profileRow{{ID: rid("users", "ada"), UserType: domain.UserTypeGeneral, CurrentOffer: rid("offers", "gold"), MaxPlaces: 5}}

		_, err := f.store.AddPlacesOfService(ctx, "users:ada", in)
		assert.ErrorIs(t, err, domain.ErrOfferRequired)
	})

	t.Run("quota counts places already listed", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		f.profiles.rows = []profileRow{{
			ID:              rid("users", "ada"),
			UserType:        domain.UserTypeEscort,
			CurrentOffer:    rid("offers", "gold"),
			PlaceOfServices: []string{"Outcall", "Dinner"},
			MaxPlaces:       3,
		}}

		_, err := f.store.AddPlacesOfService(ctx, "users:ada", in)
		assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
		assert.Contains(t, err.Error(), "1 left, 2 requested")
		require.Len(t, f.profiles.calls, 1, "nothing written")
		assert.Equal(t, selectPlaceQuota, f.profiles.calls[0].query)
	})

	t.Run("adds within quota", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		f.profiles.rows = []profileRow{{ID: rid("users", "ada"), UserType: domain.UserTypeEscort, CurrentOffer: rid("offers", "gold"), MaxPlaces: 2}}

		_, err := f.store.AddPlacesOfService(ctx, "users:ada", in)
		require.NoError(t, err)
		require.Len(t, f.profiles.calls, 2)
		assert.Equal(t, addPlaces, f.profiles.calls[1].query)
		assert.Equal(t, in.Places, f.profiles.calls[1].params["places"])
	})

	t.Run("missing profile", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		_, err := f.store.AddPlacesOfService(ctx, "users:ghost", in)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestProfileStore_RateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("increments the target", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		f.profiles.rows = []profileRow{{ID: rid("users", "ada"), Ratings: 4}}

		p, err := f.store.RateProfile(ctx, "users:bob", "users:ada")
		require.NoError(t, err)
		assert.Equal(t, 4, p.Ratings)
		assert.Equal(t, incrementRatings, f.profiles.calls[0].query)
		assert.Equal(t, surrealmodels.NewRecordID("users", "ada"), f.profiles.calls[0].params["id"])
	})

	t.Run("cannot rate yourself", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		_, err := f.store.RateProfile(ctx, "users:ada", "users:ada")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Empty(t, f.profiles.calls)
	})

	t.Run("unknown target", func(t *testing.T) {
		f := newProfileStoreFixture(t)
		_, err := f.store.RateProfile(ctx, "users:bob", "users:ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
