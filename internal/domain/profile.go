package domain

import "time"

// User types stored on the profile row.
const (
	UserTypeGeneral = "general"
	UserTypeEscort  = "escort"
)

// Profile is the authenticated principal's profile record: identity,
// demographic and display attributes, availability window and the current
// offer reference.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	About    string `json:"about,omitempty"`
	UserType string `json:"user_type,omitempty"`

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

	// IsAvailable with AvailableUntil forms the availability window.
	IsAvailable    bool       `json:"is_available"`
	AvailableUntil *time.Time `json:"availability,omitempty"`

	IsVerified   bool      `json:"is_verified"`
	IsVIP        bool      `json:"is_vip"`
	CurrentOffer string    `json:"current_offer,omitempty"`
	Ratings      int       `json:"ratings"`
	TotalMedia   int       `json:"total_media"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanPublishServices mirrors the rule that only non-general users holding an
// offer may list services.
func (p *Profile) CanPublishServices() bool {
	return p != nil && p.CurrentOffer != "" && p.UserType != UserTypeGeneral
}

// Picture is a media record owned by a user.
type Picture struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	URL       string    `json:"picture"`
	Title     string    `json:"title,omitempty"`
	IsMain    bool      `json:"is_main"`
	Likes     int       `json:"likes"`
	Ranking   int       `json:"ranking"`
	CreatedAt time.Time `json:"created_at"`
}

// Rate is a service-rate record owned by a user.
type Rate struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Reason    string    `json:"reason"`
	Price     string    `json:"price"`
	Duration  string    `json:"duration"`
	Outcall   bool      `json:"outcall"`
	Discounts int       `json:"discounts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthorSnapshot is the denormalized copy of a testimonial author.
type AuthorSnapshot struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// Testimonial is written by Owner about the user identified by To.
type Testimonial struct {
	ID        string         `json:"id"`
	To        string         `json:"to"`
	Comment   string         `json:"comment"`
	Owner     AuthorSnapshot `json:"owner"`
	CreatedAt time.Time      `json:"created_at"`
}

// Story is an ephemeral media post.
type Story struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	URL       string    `json:"url"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Title     string    `json:"title,omitempty"`
	IsVideo   bool      `json:"isvideo"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

// Bookmark is the edge "Owner bookmarked To".
type Bookmark struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}
