package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrInvalidCredentials = errors.New("invalid credentials provided")
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("not allowed to modify this resource")

	// ErrOfferRequired is returned when a general user, or a user without a
	// current offer, tries to publish services.
	ErrOfferRequired = errors.New("an active offer is required for this action")

	// ErrQuotaExceeded is returned when adding places of service would go
	// past the max_places of the user's offer.
	ErrQuotaExceeded = errors.New("place of service quota exceeded")

	ErrUserAlreadyExists = errors.New("a user with this email already exists")
	ErrUnderage          = errors.New("must be 18 or older to register")
)
