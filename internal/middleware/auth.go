package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/domain"
)

const UserContextKey = "user"

// RequireUser protects routes that need a signed-in user. Page requests are
// redirected to the login page, API and htmx requests get 401.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var user *domain.Principal
			if st := SessionState(c); st != nil {
				user, _ = st.GetUser(c.Request().Context())
			}
			if user == nil {
				if wantsHTML(c) {
					return c.Redirect(http.StatusSeeOther, "/auth/login")
				}
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"code":    "unauthenticated",
					"message": "sign in required",
				})
			}

			c.Set(UserContextKey, user)
			withLogger(c, FromContext(c.Request().Context()).With("user_id", user.UserID))
			return next(c)
		}
	}
}

// User returns the principal set by RequireUser.
func User(c echo.Context) *domain.Principal {
	u, _ := c.Get(UserContextKey).(*domain.Principal)
	return u
}

func wantsHTML(c echo.Context) bool {
	req := c.Request()
	if req.Header.Get("HX-Request") != "" || req.Method != http.MethodGet {
		return false
	}
	return strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
