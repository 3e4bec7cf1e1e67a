package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/auth"
)

const (
	sessionIDKey    = "session_id"
	sessionStateKey = "session_state"
)

// Session reads the session cookie and brings the browser session's
// authentication state in line with it. It must run after the gorilla
// session middleware.
func Session(registry *auth.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			data, err := auth.LoadCookie(c)
			if err != nil {
				FromContext(c.Request().Context()).Error("Failed to load session cookie", "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
			}

			state := registry.State(data.SessionID)
			if data.UserID != "" {
				state.Set(data.UserID, data.ExpiresAt)
			} else {
				state.Clear()
			}

			c.Set(sessionIDKey, data.SessionID)
			c.Set(sessionStateKey, state)
			withLogger(c, FromContext(c.Request().Context()).With("session_id", data.SessionID))
			return next(c)
		}
	}
}

// SessionID returns the browser session id set by Session.
func SessionID(c echo.Context) string {
	sid, _ := c.Get(sessionIDKey).(string)
	return sid
}

// SessionState returns the authentication state set by Session.
func SessionState(c echo.Context) *auth.SessionState {
	st, _ := c.Get(sessionStateKey).(*auth.SessionState)
	return st
}
