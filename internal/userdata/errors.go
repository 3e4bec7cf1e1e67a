package userdata

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrProfileNotFound is returned when the signed-in user has no profile row.
// The message is shown to users as is.
var ErrProfileNotFound = errors.New("Profile Not Found") //nolint:staticcheck

// ErrAlreadySubscribed is returned by Manager.Subscribe on a second call.
var ErrAlreadySubscribed = errors.New("userdata: manager already subscribed")

// Names of the six reads, in the order their errors are reported.
const (
	ReadProfile      = "profile"
	ReadPictures     = "pictures"
	ReadRates        = "rates"
	ReadTestimonials = "testimonials"
	ReadStories      = "stories"
	ReadBookmarks    = "bookmarks"
)

// ReadError is the failure of one of the six reads.
type ReadError struct {
	Read string
	Err  error
}

func (e *ReadError) Error() string { return e.Err.Error() }
func (e *ReadError) Unwrap() error { return e.Err }

// PartialFetchError is returned when at least one read of an aggregate fetch
// failed. Its message joins the individual failures with ", " in read order.
type PartialFetchError struct {
	merr *multierror.Error
}

func newPartialFetchError(errs []*ReadError) *PartialFetchError {
	var merr *multierror.Error
	for _, e := range errs {
		merr = multierror.Append(merr, e)
	}
	if merr == nil {
		return nil
	}
	merr.ErrorFormat = joinComma
	return &PartialFetchError{merr: merr}
}

func joinComma(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, ", ")
}

func (e *PartialFetchError) Error() string { return e.merr.Error() }

// Unwrap exposes every ReadError to errors.Is and errors.As.
func (e *PartialFetchError) Unwrap() []error { return e.merr.WrappedErrors() }

// Failed lists the names of the reads that failed, in read order.
func (e *PartialFetchError) Failed() []string {
	var names []string
	for _, err := range e.merr.WrappedErrors() {
		var re *ReadError
		if errors.As(err, &re) {
			names = append(names, re.Read)
		}
	}
	return names
}
