package view

import (
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	flashSessionName = "roster-flash"
	flashKeySuccess  = "success"
	flashKeyError    = "error"
	flashKeyEmail    = "form_email"
)

// Flashes are the one-shot messages shown on the next rendered page.
type Flashes struct {
	Success []string
	Error   []string
}

func setFlash(c echo.Context, key, message string) {
	sess, err := session.Get(flashSessionName, c)
	if sess == nil {
		c.Logger().Warnf("flash session unavailable: %v", err)
		return
	}
	sess.AddFlash(message, key)
	_ = sess.Save(c.Request(), c.Response())
}

// SetFlashSuccess queues a success message.
func SetFlashSuccess(c echo.Context, message string) {
	setFlash(c, flashKeySuccess, message)
}

// SetFlashError queues an error message.
func SetFlashError(c echo.Context, message string) {
	setFlash(c, flashKeyError, message)
}

// SetFormEmail remembers the email of a failed login for the next form.
func SetFormEmail(c echo.Context, email string) {
	setFlash(c, flashKeyEmail, email)
}

// GetFlashData returns and clears the queued messages.
func GetFlashData(c echo.Context) Flashes {
	sess, _ := session.Get(flashSessionName, c)
	if sess == nil {
		return Flashes{}
	}

	out := Flashes{
		Success: toStrings(sess.Flashes(flashKeySuccess)),
		Error:   toStrings(sess.Flashes(flashKeyError)),
	}
	if len(out.Success) > 0 || len(out.Error) > 0 {
		_ = sess.Save(c.Request(), c.Response())
	}
	return out
}

// GetFormEmail returns and clears the remembered login email.
func GetFormEmail(c echo.Context) string {
	sess, _ := session.Get(flashSessionName, c)
	if sess == nil {
		return ""
	}
	values := toStrings(sess.Flashes(flashKeyEmail))
	if len(values) == 0 {
		return ""
	}
	_ = sess.Save(c.Request(), c.Response())
	return values[0]
}

func toStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
