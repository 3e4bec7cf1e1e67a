package database

import (
	"github.com/nfrund/roster/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Row types mirror the stored records. Record links and datetimes keep their
// SurrealDB types here and become plain strings and times in the domain.

type profileRow struct {
	ID       *surrealmodels.RecordID `json:"id,omitempty"`
	Username string                  `json:"username"`
	Email    string                  `json:"email"`
	Name     string                  `json:"name,omitempty"`
	About    string                  `json:"about,omitempty"`
	UserType string                  `json:"user_type,omitempty"`

	Age       int    `json:"age,omitempty"`
	Gender    string `json:"gender,omitempty"`
	BodyType  string `json:"body_type,omitempty"`
	HairColor string `json:"hair_color,omitempty"`
	EyeColor  string `json:"eye_color,omitempty"`
	Height    int    `json:"height,omitempty"`
	DressSize int    `json:"dress_size,omitempty"`

	Location          string   `json:"location,omitempty"`
	LocationName      string   `json:"location_name,omitempty"`
	Categories        []string `json:"categories,omitempty"`
	Services          []string `json:"services,omitempty"`
	PlaceOfServices   []string `json:"place_of_services,omitempty"`
	ProfilePicture    string   `json:"profile_picture,omitempty"`
	CoverImage        string   `json:"cover_image,omitempty"`
	IsTraveling       bool     `json:"is_traveling"`
	TravelingLocation string   `json:"traveling_location,omitempty"`

	IsAvailable  bool                          `json:"is_available"`
	Availability *surrealmodels.CustomDateTime `json:"availability,omitempty"`

	IsVerified   bool                          `json:"is_verified"`
	IsVIP        bool                          `json:"is_vip"`
	CurrentOffer *surrealmodels.RecordID       `json:"current_offer,omitempty"`
	Ratings      int                           `json:"ratings"`
	TotalMedia   int                           `json:"total_media"`
	CreatedAt    *surrealmodels.CustomDateTime `json:"created_at,omitempty"`

	// MaxPlaces is only set by selectPlaceQuota.
	MaxPlaces int `json:"max_places,omitempty"`
}

func (r profileRow) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:                recordIDString(r.ID),
		Username:          r.Username,
		Email:             r.Email,
		Name:              r.Name,
		About:             r.About,
		UserType:          r.UserType,
		Age:               r.Age,
		Gender:            r.Gender,
		BodyType:          r.BodyType,
		HairColor:         r.HairColor,
		EyeColor:          r.EyeColor,
		Height:            r.Height,
		DressSize:         r.DressSize,
		Location:          r.Location,
		LocationName:      r.LocationName,
		Categories:        r.Categories,
		Services:          r.Services,
		PlaceOfServices:   r.PlaceOfServices,
		ProfilePicture:    r.ProfilePicture,
		CoverImage:        r.CoverImage,
		IsTraveling:       r.IsTraveling,
		TravelingLocation: r.TravelingLocation,
		IsAvailable:       r.IsAvailable,
		AvailableUntil:    dateTimePtr(r.Availability),
		IsVerified:        r.IsVerified,
		IsVIP:             r.IsVIP,
		CurrentOffer:      recordIDString(r.CurrentOffer),
		Ratings:           r.Ratings,
		TotalMedia:        r.TotalMedia,
		CreatedAt:         dateTime(r.CreatedAt),
	}
}

type pictureRow struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Owner     *surrealmodels.RecordID       `json:"owner,omitempty"`
	Picture   string                        `json:"picture"`
	Title     string                        `json:"title,omitempty"`
	IsMain    bool                          `json:"is_main"`
	Likes     int                           `json:"likes"`
	Ranking   int                           `json:"ranking"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

func (r pictureRow) toDomain() domain.Picture {
	return domain.Picture{
		ID:        recordIDString(r.ID),
		Owner:     recordIDString(r.Owner),
		URL:       r.Picture,
		Title:     r.Title,
		IsMain:    r.IsMain,
		Likes:     r.Likes,
		Ranking:   r.Ranking,
		CreatedAt: dateTime(r.CreatedAt),
	}
}

type rateRow struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Owner     *surrealmodels.RecordID       `json:"owner,omitempty"`
	Reason    string                        `json:"reason"`
	Price     string                        `json:"price"`
	Duration  string                        `json:"duration"`
	Outcall   bool                          `json:"outcall"`
	Discounts int                           `json:"discounts,omitempty"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

func (r rateRow) toDomain() domain.Rate {
	return domain.Rate{
		ID:        recordIDString(r.ID),
		Owner:     recordIDString(r.Owner),
		Reason:    r.Reason,
		Price:     r.Price,
		Duration:  r.Duration,
		Outcall:   r.Outcall,
		Discounts: r.Discounts,
		CreatedAt: dateTime(r.CreatedAt),
	}
}

type authorRow struct {
	ID             *surrealmodels.RecordID `json:"id,omitempty"`
	Username       string                  `json:"username"`
	ProfilePicture string                  `json:"profile_picture,omitempty"`
}

// testimonialRow is read with the owner link fetched, so Owner carries the
// author snapshot rather than a bare id.
type testimonialRow struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Recipient *surrealmodels.RecordID       `json:"recipient,omitempty"`
	Comment   string                        `json:"comment"`
	Owner     authorRow                     `json:"owner"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

func (r testimonialRow) toDomain() domain.Testimonial {
	return domain.Testimonial{
		ID:      recordIDString(r.ID),
		To:      recordIDString(r.Recipient),
		Comment: r.Comment,
		Owner: domain.AuthorSnapshot{
			ID:             recordIDString(r.Owner.ID),
			Username:       r.Owner.Username,
			ProfilePicture: r.Owner.ProfilePicture,
		},
		CreatedAt: dateTime(r.CreatedAt),
	}
}

type storyRow struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Owner     *surrealmodels.RecordID       `json:"owner,omitempty"`
	URL       string                        `json:"url"`
	Thumbnail string                        `json:"thumbnail,omitempty"`
	Title     string                        `json:"title,omitempty"`
	IsVideo   bool                          `json:"isvideo"`
	Likes     int                           `json:"likes"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

func (r storyRow) toDomain() domain.Story {
	return domain.Story{
		ID:        recordIDString(r.ID),
		Owner:     recordIDString(r.Owner),
		URL:       r.URL,
		Thumbnail: r.Thumbnail,
		Title:     r.Title,
		IsVideo:   r.IsVideo,
		Likes:     r.Likes,
		CreatedAt: dateTime(r.CreatedAt),
	}
}

type bookmarkRow struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Owner     *surrealmodels.RecordID       `json:"owner,omitempty"`
	Target    *surrealmodels.RecordID       `json:"target,omitempty"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

func (r bookmarkRow) toDomain() domain.Bookmark {
	return domain.Bookmark{
		ID:        recordIDString(r.ID),
		Owner:     recordIDString(r.Owner),
		To:        recordIDString(r.Target),
		CreatedAt: dateTime(r.CreatedAt),
	}
}

func mapRows[R any, D any](rows []R, fn func(R) D) []D {
	out := make([]D, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}
