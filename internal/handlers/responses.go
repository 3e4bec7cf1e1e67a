package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/domain"
	"github.com/nfrund/roster/internal/middleware"
	"github.com/nfrund/roster/internal/userdata"
)

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UserDataResponse is the JSON view of a cache state.
type UserDataResponse struct {
	Data      userdata.Bundle `json:"data"`
	IsLoading bool            `json:"isLoading"`
	Error     *string         `json:"error"`
	Status    string          `json:"status"`
	ExpiresAt *int64          `json:"expiresAt,omitempty"`
	// Persisted is false when the last successful fetch could not be written
	// to the cache store.
	Persisted bool `json:"persisted"`
}

// NewUserDataResponse converts a cache state.
func NewUserDataResponse(st userdata.State) UserDataResponse {
	resp := UserDataResponse{
		Data:      st.Bundle,
		IsLoading: st.IsLoading,
		Status:    st.Status.String(),
		Persisted: st.Persistence.OK(),
	}
	if st.Err != nil {
		msg := st.Err.Error()
		resp.Error = &msg
	}
	if !st.ExpiresAt.IsZero() {
		ms := st.ExpiresAt.UnixMilli()
		resp.ExpiresAt = &ms
	}
	return resp
}

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{Code: code, Message: message})
}

// domainError maps repository and validation failures to HTTP responses.
func domainError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	var herr *echo.HTTPError
	switch {
	case errors.As(err, &verrs):
		return errorJSON(c, http.StatusBadRequest, "invalid_input", verrs.Error())
	case errors.As(err, &herr):
		return errorJSON(c, herr.Code, "bad_request", http.StatusText(herr.Code))
	case errors.Is(err, domain.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "not_found", domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrForbidden):
		return errorJSON(c, http.StatusForbidden, "forbidden", domain.ErrForbidden.Error())
	case errors.Is(err, domain.ErrOfferRequired):
		return errorJSON(c, http.StatusForbidden, "offer_required", domain.ErrOfferRequired.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		return errorJSON(c, http.StatusForbidden, "quota_exceeded", err.Error())
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		return errorJSON(c, http.StatusUnauthorized, "unauthenticated", err.Error())
	default:
		middleware.FromContext(c.Request().Context()).Error("Request failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "internal", "something went wrong")
	}
}
