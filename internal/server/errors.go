package server

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/middleware"
)

// setupErrorHandling installs an error handler that logs unhandled errors with
// a stack trace. HTTP errors raised on purpose keep echo's default rendering.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}

		middleware.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
			"error", err,
			"path", c.Path(),
			"stack_trace", string(debug.Stack()),
		)
		_ = c.JSON(http.StatusInternalServerError, map[string]string{
			"error": http.StatusText(http.StatusInternalServerError),
			"code":  "internal",
		})
	}
}
