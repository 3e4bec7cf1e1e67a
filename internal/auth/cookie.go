package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

var errLoadSession = errors.New("failed to load session")

// SessionName is the name of the signed cookie session.
const SessionName = "roster-session"

const (
	keySessionID = "sid"
	keyUserID    = "user_id"
	keyExpiresAt = "expires_at"
)

// CookieData is what the session cookie carries. The access token itself is
// never stored.
type CookieData struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
}

// NewCookieStore builds the gorilla cookie store used by the session middleware.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// LoadCookie reads the session cookie, assigning and saving a fresh session
// id when the browser has none yet.
func LoadCookie(c echo.Context) (CookieData, error) {
	sess, err := session.Get(SessionName, c)
	if err != nil && sess == nil {
		return CookieData{}, fmt.Errorf("failed to load session: %w", err)
	}

	data := CookieData{}
	data.SessionID, _ = sess.Values[keySessionID].(string)
	data.UserID, _ = sess.Values[keyUserID].(string)
	if ms, ok := sess.Values[keyExpiresAt].(int64); ok && ms > 0 {
		data.ExpiresAt = time.UnixMilli(ms)
	}

	if data.SessionID == "" {
		data.SessionID = uuid.NewString()
		sess.Values[keySessionID] = data.SessionID
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return CookieData{}, fmt.Errorf("failed to save session: %w", err)
		}
	}
	return data, nil
}

// SaveLogin stores the signed-in user on the session cookie.
func SaveLogin(c echo.Context, userID string, expiresAt time.Time) error {
	sess, err := session.Get(SessionName, c)
	if sess == nil {
		return multierror.Append(errLoadSession, err)
	}
	sess.Values[keyUserID] = userID
	if expiresAt.IsZero() {
		delete(sess.Values, keyExpiresAt)
	} else {
		sess.Values[keyExpiresAt] = expiresAt.UnixMilli()
	}
	return sess.Save(c.Request(), c.Response())
}

// ClearLogin removes the user from the session cookie but keeps the session id.
func ClearLogin(c echo.Context) error {
	sess, err := session.Get(SessionName, c)
	if sess == nil {
		return multierror.Append(errLoadSession, err)
	}
	delete(sess.Values, keyUserID)
	delete(sess.Values, keyExpiresAt)
	return sess.Save(c.Request(), c.Response())
}
