package domain

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// validatorInstance is a package-level validator instance.
// Using a single instance is more efficient as it caches struct information.
var validatorInstance = validator.New()

func init() {
	_ = validatorInstance.RegisterValidation("recordid", validateRecordID)
}

// validateRecordID accepts "table:id" references with non-empty parts.
func validateRecordID(fl validator.FieldLevel) bool {
	table, id, ok := strings.Cut(fl.Field().String(), ":")
	return ok && table != "" && id != "" && !strings.ContainsAny(table, " ;`")
}

// Validator returns the shared validator so the HTTP layer uses the same
// custom rules as the domain.
func Validator() *validator.Validate {
	return validatorInstance
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,max=80"`
	About        *string  `json:"about,omitempty" validate:"omitempty,max=2000"`
	Age          *int     `json:"age,omitempty" validate:"omitempty,gte=18,lte=99"`
	Gender       *string  `json:"gender,omitempty" validate:"omitempty,max=40"`
	BodyType     *string  `json:"body_type,omitempty" validate:"omitempty,max=40"`
	HairColor    *string  `json:"hair_color,omitempty" validate:"omitempty,max=40"`
	EyeColor     *string  `json:"eye_color,omitempty" validate:"omitempty,max=40"`
	Height       *int     `json:"height,omitempty" validate:"omitempty,gte=100,lte=250"`
	DressSize    *int     `json:"dress_size,omitempty" validate:"omitempty,gte=0,lte=30"`
	LocationName *string  `json:"location_name,omitempty" validate:"omitempty,max=120"`
	Categories   []string `json:"categories,omitempty" validate:"omitempty,dive,required,max=40"`
	CoverImage   *string  `json:"cover_image,omitempty" validate:"omitempty,url"`
	Picture      *string  `json:"profile_picture,omitempty" validate:"omitempty,url"`
}

// Fields returns the non-nil fields keyed by column name.
func (u ProfileUpdate) Fields() map[string]any {
	fields := make(map[string]any)
	set := func(key string, v any, present bool) {
		if present {
			fields[key] = v
		}
	}
	set("name", deref(u.Name), u.Name != nil)
	set("about", deref(u.About), u.About != nil)
	set("age", deref(u.Age), u.Age != nil)
	set("gender", deref(u.Gender), u.Gender != nil)
	set("body_type", deref(u.BodyType), u.BodyType != nil)
	set("hair_color", deref(u.HairColor), u.HairColor != nil)
	set("eye_color", deref(u.EyeColor), u.EyeColor != nil)
	set("height", deref(u.Height), u.Height != nil)
	set("dress_size", deref(u.DressSize), u.DressSize != nil)
	set("location_name", deref(u.LocationName), u.LocationName != nil)
	set("categories", u.Categories, u.Categories != nil)
	set("cover_image", deref(u.CoverImage), u.CoverImage != nil)
	set("profile_picture", deref(u.Picture), u.Picture != nil)
	return fields
}

func (u ProfileUpdate) Validate() error { return validatorInstance.Struct(u) }

// AvailabilityUpdate toggles availability. Until bounds the window when the
// user becomes available.
type AvailabilityUpdate struct {
	IsAvailable  bool       `json:"is_available"`
	Until        *time.Time `json:"until,omitempty" validate:"required_if=IsAvailable true"`
	LocationName string     `json:"location_name,omitempty" validate:"max=120"`
}

func (u AvailabilityUpdate) Validate() error { return validatorInstance.Struct(u) }

type NewPicture struct {
	URL    string `json:"picture" validate:"required,url"`
	Title  string `json:"title,omitempty" validate:"max=120"`
	IsMain bool   `json:"is_main"`
}

func (p NewPicture) Validate() error { return validatorInstance.Struct(p) }

type NewRate struct {
	Reason    string `json:"reason" validate:"required,max=120"`
	Price     string `json:"price" validate:"required,max=40"`
	Duration  string `json:"duration" validate:"required,max=40"`
	Outcall   bool   `json:"outcall"`
	Discounts int    `json:"discounts,omitempty" validate:"gte=0,lte=100"`
}

func (r NewRate) Validate() error { return validatorInstance.Struct(r) }

type NewService struct {
	Service string `json:"service" validate:"required,max=60"`
}

func (s NewService) Validate() error { return validatorInstance.Struct(s) }

type NewTestimonial struct {
	To      string `json:"to" validate:"required,recordid"`
	Comment string `json:"comment" validate:"required,max=2000"`
}

func (t NewTestimonial) Validate() error { return validatorInstance.Struct(t) }

type NewStory struct {
	URL       string `json:"url" validate:"required,url"`
	Thumbnail string `json:"thumbnail,omitempty" validate:"omitempty,url"`
	Title     string `json:"title,omitempty" validate:"max=120"`
	IsVideo   bool   `json:"isvideo"`
}

func (s NewStory) Validate() error { return validatorInstance.Struct(s) }

// NewPlacesOfService lists places to add to the profile's place_of_services.
type NewPlacesOfService struct {
	Places []string `json:"place_of_services" validate:"required,min=1,dive,required,max=120"`
}

func (p NewPlacesOfService) Validate() error { return validatorInstance.Struct(p) }

// ProfileRepository is the write side of the profile bundle. Every method is
// scoped to the acting user so nobody can mutate someone else's records.
type ProfileRepository interface {
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*Profile, error)
	SetAvailability(ctx context.Context, userID string, update AvailabilityUpdate) (*Profile, error)

	AddPicture(ctx context.Context, userID string, in NewPicture) (*Picture, error)
	DeletePicture(ctx context.Context, userID, pictureID string) error

	AddRate(ctx context.Context, userID string, in NewRate) (*Rate, error)
	DeleteRate(ctx context.Context, userID, rateID string) error

	AddService(ctx context.Context, userID string, in NewService) (*Profile, error)
	DeleteService(ctx context.Context, userID, service string) (*Profile, error)

	// AddPlacesOfService is bounded by the max_places of the current offer.
	AddPlacesOfService(ctx context.Context, userID string, in NewPlacesOfService) (*Profile, error)

	AddTestimonial(ctx context.Context, authorID string, in NewTestimonial) (*Testimonial, error)

	// RateProfile adds one to the ratings counter of targetID.
	RateProfile(ctx context.Context, raterID, targetID string) (*Profile, error)

	// ToggleBookmark adds the bookmark when absent and removes it otherwise.
	// It reports whether the bookmark exists afterwards.
	ToggleBookmark(ctx context.Context, userID, targetID string) (bool, error)

	AddStory(ctx context.Context, userID string, in NewStory) (*Story, error)
	DeleteStory(ctx context.Context, userID, storyID string) error
}

// Credentials are what a user signs in with.
type Credentials struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=8"`
}

func (c Credentials) Validate() error { return validatorInstance.Struct(c) }

// UserRepository authenticates users against the backend.
// Registration is what a new account signs up with. The users row is created
// from it.
type Registration struct {
	Email        string `json:"email" form:"email" validate:"required,email"`
	Password     string `json:"password" form:"password" validate:"required,min=8"`
	Username     string `json:"username" form:"username" validate:"required,min=3,max=40,alphanum"`
	UserType     string `json:"userType" form:"userType" validate:"required,oneof=general escort"`
	Age          int    `json:"age,omitempty" form:"age" validate:"omitempty,gte=0,lte=120"`
	Gender       string `json:"gender,omitempty" form:"gender" validate:"max=40"`
	LocationName string `json:"locationName,omitempty" form:"locationName" validate:"max=120"`
}

// Validate also enforces the minimum age, which general users are exempt from.
func (r Registration) Validate() error {
	if err := validatorInstance.Struct(r); err != nil {
		return err
	}
	if r.UserType != UserTypeGeneral && r.Age < 18 {
		return ErrUnderage
	}
	return nil
}

// Fields returns the users row columns set at sign-up. Optional columns are
// left out when empty.
func (r Registration) Fields() map[string]any {
	fields := map[string]any{
		"username":    r.Username,
		"user_type":   r.UserType,
		"is_verified": false,
	}
	if r.Age > 0 {
		fields["age"] = r.Age
	}
	if r.Gender != "" {
		fields["gender"] = r.Gender
	}
	if loc := strings.TrimSpace(r.LocationName); loc != "" {
		fields["location_name"] = loc
	}
	return fields
}

type UserRepository interface {
	// SignIn returns the backend access token for valid credentials and
	// ErrInvalidCredentials otherwise.
	SignIn(ctx context.Context, creds Credentials) (string, error)

	// SignUp creates the account and its users row and returns an access
	// token for it. ErrUserAlreadyExists is returned for a taken email.
	SignUp(ctx context.Context, reg Registration) (string, error)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
