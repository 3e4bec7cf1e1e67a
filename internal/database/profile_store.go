package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/nfrund/roster/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ domain.ProfileRepository = (*ProfileStore)(nil)

const (
	selectPictures  = "SELECT * FROM pictures WHERE owner = $owner ORDER BY created_at DESC"
	selectRates     = "SELECT * FROM rates WHERE owner = $owner ORDER BY created_at ASC"
	selectStories   = "SELECT * FROM story WHERE owner = $owner ORDER BY created_at DESC"
	selectBookmarks = "SELECT * FROM bookmarks WHERE owner = $owner ORDER BY created_at DESC"

	// The author is projected down to the public snapshot; the full user
	// record would carry the password hash.
	testimonialFields  = "id, recipient, comment, created_at, owner.{id, username, profile_picture} AS owner"
	selectTestimonials = "SELECT " + testimonialFields + " FROM testimonials WHERE recipient = $user ORDER BY created_at DESC"
	selectTestimonial  = "SELECT " + testimonialFields + " FROM $id"

	selectPlaceQuota = "SELECT *, current_offer.max_places AS max_places FROM $id"
	addPlaces        = "UPDATE $id SET place_of_services = array::union(place_of_services ?? [], $places)"
	incrementRatings = "UPDATE $id SET ratings = (ratings ?? 0) + 1"
)

// ProfileStore reads and writes the records that make up a user's profile
// bundle: the users row, pictures, rates, testimonials, stories and bookmarks.
type ProfileStore struct {
	profiles     Client[profileRow]
	pictures     Client[pictureRow]
	rates        Client[rateRow]
	testimonials Client[testimonialRow]
	stories      Client[storyRow]
	bookmarks    Client[bookmarkRow]
}

// NewProfileStore builds a ProfileStore over a managed connection.
func NewProfileStore(conn DBConnection) (*ProfileStore, error) {
	profiles, err := NewClient[profileRow](conn)
	if err != nil {
		return nil, err
	}
	pictures, err := NewClient[pictureRow](conn)
	if err != nil {
		return nil, err
	}
	rates, err := NewClient[rateRow](conn)
	if err != nil {
		return nil, err
	}
	testimonials, err := NewClient[testimonialRow](conn)
	if err != nil {
		return nil, err
	}
	stories, err := NewClient[storyRow](conn)
	if err != nil {
		return nil, err
	}
	bookmarks, err := NewClient[bookmarkRow](conn)
	if err != nil {
		return nil, err
	}
	return NewProfileStoreWithClients(profiles, pictures, rates, testimonials, stories, bookmarks), nil
}

// NewProfileStoreWithClients wires explicit clients, mainly for tests.
func NewProfileStoreWithClients(
	profiles Client[profileRow],
	pictures Client[pictureRow],
	rates Client[rateRow],
	testimonials Client[testimonialRow],
	stories Client[storyRow],
	bookmarks Client[bookmarkRow],
) *ProfileStore {
	return &ProfileStore{
		profiles:     profiles,
		pictures:     pictures,
		rates:        rates,
		testimonials: testimonials,
		stories:      stories,
		bookmarks:    bookmarks,
	}
}

// Profile returns the users row of userID, or (nil, nil) when there is none.
func (s *ProfileStore) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	rid, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return nil, err
	}
	row, err := s.profiles.QueryOne(ctx, "SELECT * FROM $id", map[string]any{"id": rid})
	if err != nil {
		return nil, WrapError(err, "failed to load profile")
	}
	if row == nil {
		return nil, nil
	}
	return row.toDomain(), nil
}

// Pictures returns the pictures owned by userID, newest first.
func (s *ProfileStore) Pictures(ctx context.Context, userID string) ([]domain.Picture, error) {
	rows, err := ownedRows(ctx, s.pictures, selectPictures, userID)
	if err != nil {
		return nil, WrapError(err, "failed to load pictures")
	}
	return mapRows(rows, pictureRow.toDomain), nil
}

func (s *ProfileStore) Rates(ctx context.Context, userID string) ([]domain.Rate, error) {
	rows, err := ownedRows(ctx, s.rates, selectRates, userID)
	if err != nil {
		return nil, WrapError(err, "failed to load rates")
	}
	return mapRows(rows, rateRow.toDomain), nil
}

// Testimonials returns the testimonials written about userID.
func (s *ProfileStore) Testimonials(ctx context.Context, userID string) ([]domain.Testimonial, error) {
	rid, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.testimonials.Query(ctx, selectTestimonials, map[string]any{"user": rid})
	if err != nil {
		return nil, WrapError(err, "failed to load testimonials")
	}
	return mapRows(rows, testimonialRow.toDomain), nil
}

// Stories returns the stories owned by userID, newest first.
func (s *ProfileStore) Stories(ctx context.Context, userID string) ([]domain.Story, error) {
	rows, err := ownedRows(ctx, s.stories, selectStories, userID)
	if err != nil {
		return nil, WrapError(err, "failed to load stories")
	}
	return mapRows(rows, storyRow.toDomain), nil
}

func (s *ProfileStore) Bookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	rows, err := ownedRows(ctx, s.bookmarks, selectBookmarks, userID)
	if err != nil {
		return nil, WrapError(err, "failed to load bookmarks")
	}
	return mapRows(rows, bookmarkRow.toDomain), nil
}

func ownedRows[T any](ctx context.Context, c Client[T], query, userID string) ([]T, error) {
	owner, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, query, map[string]any{"owner": owner})
}

// UpdateProfile merges the non-nil fields of update into the users row.
func (s *ProfileStore) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed for profile update: %w", err)
	}
	fields := update.Fields()
	if len(fields) == 0 {
		return s.requireProfile(ctx, userID)
	}

	row, err := s.profiles.Update(ctx, userID, fields)
	if err != nil {
		return nil, translateNotFound(WrapError(err, "failed to update profile"))
	}
	return row.toDomain(), nil
}

// SetAvailability opens or closes the availability window.
func (s *ProfileStore) SetAvailability(ctx context.Context, userID string, update domain.AvailabilityUpdate) (*domain.Profile, error) {
	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed for availability update: %w", err)
	}
	rid, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return nil, err
	}

	query := "UPDATE $id SET is_available = false, availability = NONE"
	params := map[string]any{"id": rid}
	if update.IsAvailable {
		query = "UPDATE $id SET is_available = true, availability = $until"
		params["until"] = surrealmodels.CustomDateTime{Time: update.Until.UTC()}
	}
	if update.LocationName != "" {
		query += ", location_name = $location"
		params["location"] = update.LocationName
	}

	row, err := s.profiles.QueryOne(ctx, query, params)
	if err != nil {
		return nil, WrapError(err, "failed to update availability")
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	return row.toDomain(), nil
}

func (s *ProfileStore) AddPicture(ctx context.Context, userID string, in domain.NewPicture) (*domain.Picture, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed for picture: %w", err)
	}
	owner, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return nil, err
	}

	if in.IsMain {
		// Only one main picture per owner.
		if err := s.pictures.Execute(ctx,
			"UPDATE pictures SET is_main = false WHERE owner = $owner AND is_main = true",
			map[string]any{"owner": owner}); err != nil {
			return nil, WrapError(err, "failed to demote main picture")
		}
	}

	row, err := s.pictures.Create(ctx, picturesTable, map[string]any{
		"owner":      owner,
		"picture":    in.URL,
		"title":      in.Title,
		"is_main":    in.IsMain,
		"likes":      0,
		"ranking":    0,
		"created_at": now(),
	})
	if err != nil {
		return nil, WrapError(err, "failed to create picture")
	}
	p := row.toDomain()
	return &p, nil
}

func (s *ProfileStore) DeletePicture(ctx context.Context, userID, pictureID string) error {
	return deleteOwned(ctx, s.pictures, picturesTable, userID, pictureID)
}

func (s *ProfileStore) AddRate(ctx context.Context, userID string, in domain.NewRate) (*domain.Rate, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed for rate: %w", err)
	}
	owner, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return nil, err
	}

	row, err := s.rates.Create(ctx, ratesTable, map[string]any{
		"owner":      owner,
		"reason":     in.Reason,
		"price":      in.Price,
		"duration":   in.Duration,
		"outcall":    in.Outcall,
		"discounts":  in.Discounts,
		"created_at": now(),
	})
	if err != nil {
		return nil, WrapError(err, "failed to create rate")
	}
	r := row.toDomain()
	return &r, nil
}

func (s *ProfileStore) DeleteRate(ctx context.Context, userID, rateID string) error {
	return deleteOwned(ctx, s.rates, ratesTable, userID, rateID)
}

// AddService adds a service to the profile's services set. Only users with a
// current offer who are not general users may publish services.
func (s *ProfileStore) AddService(ctx context.Context, userID string, in domain.NewService) (*domain.Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed for service: %w", err)
	}
	profile, err := s.requireProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.CanPublishServices() {
		return nil, domain.ErrOfferRequired
	}
	return s.updateServices(ctx, userID,
		"UPDATE $id SET services = array::union(services ?? [], [$service])", in.Service)
}

func (s *ProfileStore) DeleteService(ctx context.Context, userID, service string) (*domain.Profile, error) {
	if service == "" {
		return nil, NewDBError(ErrInvalidInput, "service cannot be empty")
	}
	return s.updateServices(ctx, userID, "UPDATE $id SET services -= $service", service)
}

func (s *ProfileStore) updateServices(ctx context.Context, userID, query, service string) (*domain.Profile, error) {
	rid, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return nil, err
	}
	row, err := s.profiles.QueryOne(ctx, query, map[string]any{"id": rid, "service": service})
	if err != nil {
		return nil, WrapError(err, "failed to update services")
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	return row.toDomain(), nil
}

// AddPlacesOfService adds places to the profile's place_of_services. The
// places already listed plus the new ones may not exceed the max_places of
// the user's current offer.
func (s *ProfileStore) AddPlacesOfService(ctx context.Context, userID string, in domain.NewPlacesOfService) (*domain.Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed for places of service: %w", err)
	}
	rid, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return nil, err
	}

	row, err := s.profiles.QueryOne(ctx, selectPlaceQuota, map[string]any{"id": rid})
	if err != nil {
		return nil, WrapError(err, "failed to load place quota")
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	if !row.toDomain().CanPublishServices() {
		return nil, domain.ErrOfferRequired
	}
	left := max(row.MaxPlaces-len(row.PlaceOfServices), 0)
	if len(in.Places) > left {
		return nil, fmt.Errorf("%w: %d left, %d requested", domain.ErrQuotaExceeded, left, len(in.Places))
	}

	row, err = s.profiles.QueryOne(ctx, addPlaces, map[string]any{"id": rid, "places": in.Places})
	if err != nil {
		return nil, WrapError(err, "failed to add places of service")
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	return row.toDomain(), nil
}

// RateProfile adds one to the ratings of targetID. Users cannot rate
// themselves.
func (s *ProfileStore) RateProfile(ctx context.Context, raterID, targetID string) (*domain.Profile, error) {
	if raterID == targetID {
		return nil, domain.ErrForbidden
	}
	rid, err := parseRecordIDIn(usersTable, targetID)
	if err != nil {
		return nil, err
	}
	row, err := s.profiles.QueryOne(ctx, incrementRatings, map[string]any{"id": rid})
	if err != nil {
		return nil, WrapError(err, "failed to update rating")
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	return row.toDomain(), nil
}

// AddTestimonial records a testimonial by authorID about in.To.
func (s *ProfileStore) AddTestimonial(ctx context.Context, authorID string, in domain.NewTestimonial) (*domain.Testimonial, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed for testimonial: %w", err)
	}
	if in.To == authorID {
		return nil, domain.ErrForbidden
	}
	author, err := parseRecordIDIn(usersTable, authorID)
	if err != nil {
		return nil, err
	}
	recipient, err := parseRecordIDIn(usersTable, in.To)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireProfile(ctx, in.To); err != nil {
		return nil, err
	}

	created, err := s.testimonials.Create(ctx, testimonialsTable, map[string]any{
		"owner":      author,
		"recipient":  recipient,
		"comment":    in.Comment,
		"created_at": now(),
	})
	if err != nil {
		return nil, WrapError(err, "failed to create testimonial")
	}

	// Re-read to pick up the projected author snapshot.
	row, err := s.testimonials.QueryOne(ctx, selectTestimonial, map[string]any{"id": created.ID})
	if err != nil {
		return nil, WrapError(err, "failed to load testimonial")
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	t := row.toDomain()
	return &t, nil
}

// ToggleBookmark adds the bookmark userID -> targetID when absent and
// removes it otherwise.
func (s *ProfileStore) ToggleBookmark(ctx context.Context, userID, targetID string) (bool, error) {
	owner, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return false, err
	}
	target, err := parseRecordIDIn(usersTable, targetID)
	if err != nil {
		return false, err
	}
	if userID == targetID {
		return false, domain.ErrForbidden
	}

	params := map[string]any{"owner": owner, "target": target}
	existing, err := s.bookmarks.QueryOne(ctx,
		"SELECT * FROM bookmarks WHERE owner = $owner AND target = $target", params)
	if err != nil {
		return false, WrapError(err, "failed to look up bookmark")
	}
	if existing != nil {
		if err := s.bookmarks.Execute(ctx, "DELETE $id", map[string]any{"id": existing.ID}); err != nil {
			return false, WrapError(err, "failed to remove bookmark")
		}
		return false, nil
	}

	if _, err := s.bookmarks.Create(ctx, bookmarksTable, map[string]any{
		"owner":      owner,
		"target":     target,
		"created_at": now(),
	}); err != nil {
		return false, WrapError(err, "failed to create bookmark")
	}
	return true, nil
}

func (s *ProfileStore) AddStory(ctx context.Context, userID string, in domain.NewStory) (*domain.Story, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed for story: %w", err)
	}
	owner, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return nil, err
	}

	row, err := s.stories.Create(ctx, storiesTable, map[string]any{
		"owner":      owner,
		"url":        in.URL,
		"thumbnail":  in.Thumbnail,
		"title":      in.Title,
		"isvideo":    in.IsVideo,
		"likes":      0,
		"created_at": now(),
	})
	if err != nil {
		return nil, WrapError(err, "failed to create story")
	}
	st := row.toDomain()
	return &st, nil
}

func (s *ProfileStore) DeleteStory(ctx context.Context, userID, storyID string) error {
	return deleteOwned(ctx, s.stories, storiesTable, userID, storyID)
}

func (s *ProfileStore) requireProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrNotFound
	}
	return profile, nil
}

// deleteOwned deletes id from table only when userID owns it. A record that
// does not exist and one owned by someone else look the same to the caller.
func deleteOwned[T any](ctx context.Context, c Client[T], table, userID, id string) error {
	owner, err := parseRecordIDIn(usersTable, userID)
	if err != nil {
		return err
	}
	rid, err := parseRecordIDIn(table, id)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}

	deleted, err := c.QueryOne(ctx, "DELETE $id WHERE owner = $owner RETURN BEFORE",
		map[string]any{"id": rid, "owner": owner})
	if err != nil {
		return WrapError(err, fmt.Sprintf("failed to delete from %s", table))
	}
	if deleted == nil {
		return domain.ErrNotFound
	}
	return nil
}

func translateNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return err
}
