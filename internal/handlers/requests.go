package handlers

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/domain"
)

// CustomValidator wraps the domain validator to implement Echo's Validator
// interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a CustomValidator that knows the domain's custom rules.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: domain.Validator()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// bindAndValidate decodes the request body into dst and validates it.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return c.Validate(dst)
}

// wantsJSON reports whether the client speaks JSON rather than HTML forms.
func wantsJSON(c echo.Context) bool {
	req := c.Request()
	return strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) ||
		strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") != ""
}
