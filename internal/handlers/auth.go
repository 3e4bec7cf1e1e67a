package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/auth"
	"github.com/nfrund/roster/internal/domain"
	"github.com/nfrund/roster/internal/middleware"
	"github.com/nfrund/roster/internal/pubsub"
	"github.com/nfrund/roster/internal/userdata"
	"github.com/nfrund/roster/internal/view"
)

// AuthHandler signs users up, in and out of a browser session.
type AuthHandler struct {
	users   domain.UserRepository
	manager *userdata.Manager
	pub     pubsub.Publisher
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users domain.UserRepository, manager *userdata.Manager, pub pubsub.Publisher) *AuthHandler {
	return &AuthHandler{users: users, manager: manager, pub: pub}
}

// LoginResponse is returned to JSON clients after signing in.
type LoginResponse struct {
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// LoginGet renders the sign-in form (GET /auth/login).
func (h *AuthHandler) LoginGet(c echo.Context) error {
	return view.RenderOK(c, view.LoginPage(view.GetFormEmail(c), view.GetFlashData(c)))
}

// LoginPost signs the user in (POST /auth/login). It accepts a form or JSON.
func (h *AuthHandler) LoginPost(c echo.Context) error {
	ctx := c.Request().Context()
	log := middleware.FromContext(ctx)

	var creds domain.Credentials
	if err := c.Bind(&creds); err != nil {
		return h.loginFailed(c, creds.Email, "Invalid email or password.")
	}

	token, err := h.users.SignIn(ctx, creds)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			log.Warn("Failed login attempt", "email", creds.Email)
			return h.loginFailed(c, creds.Email, "Invalid email or password.")
		}
		log.Error("Sign-in failed", "error", err)
		return h.loginFailed(c, creds.Email, "Could not sign you in. Please try again.")
	}

	claims, err := h.startSession(c, token)
	if err != nil {
		log.Error("Failed to start session after sign-in", "error", err)
		return h.loginFailed(c, creds.Email, "Could not sign you in. Please try again.")
	}

	log.Info("User logged in", "event", "user_login", "user_id", claims.RecordID)
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, newLoginResponse(claims))
	}
	view.SetFlashSuccess(c, "Signed in.")
	return c.Redirect(http.StatusSeeOther, "/app/me/page")
}

// SignupGet renders the registration form (GET /auth/signup).
func (h *AuthHandler) SignupGet(c echo.Context) error {
	return view.RenderOK(c, view.SignupPage(view.GetFormEmail(c), view.GetFlashData(c)))
}

// SignupPost creates the account and its profile row, then signs the new
// user in (POST /auth/signup). It accepts a form or JSON.
func (h *AuthHandler) SignupPost(c echo.Context) error {
	ctx := c.Request().Context()
	log := middleware.FromContext(ctx)

	var reg domain.Registration
	if err := c.Bind(&reg); err != nil {
		return h.signupFailed(c, reg.Email, http.StatusBadRequest, "invalid_input", "Please check the form and try again.")
	}

	token, err := h.users.SignUp(ctx, reg)
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnderage):
		return h.signupFailed(c, reg.Email, http.StatusBadRequest, "underage", "Must be 18 or older to register.")
	case errors.As(err, &verrs):
		return h.signupFailed(c, reg.Email, http.StatusBadRequest, "invalid_input", verrs.Error())
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return h.signupFailed(c, reg.Email, http.StatusConflict, "user_exists", "An account with this email already exists.")
	default:
		log.Error("Sign-up failed", "error", err)
		return h.signupFailed(c, reg.Email, http.StatusInternalServerError, "internal", "Could not create your account. Please try again.")
	}

	claims, err := h.startSession(c, token)
	if err != nil {
		log.Error("Failed to start session after sign-up", "error", err)
		return h.signupFailed(c, reg.Email, http.StatusInternalServerError, "internal", "Your account was created but you could not be signed in.")
	}
	if err := userdata.NotifyChanged(ctx, h.pub, claims.RecordID, claims.RecordID); err != nil {
		log.Warn("Failed to publish user data change", "error", err)
	}

	log.Info("User signed up", "event", "user_signup", "user_id", claims.RecordID, "user_type", reg.UserType)
	if wantsJSON(c) {
		return c.JSON(http.StatusCreated, newLoginResponse(claims))
	}
	view.SetFlashSuccess(c, "Welcome! Your account was created.")
	return c.Redirect(http.StatusSeeOther, "/app/me/page")
}

func (h *AuthHandler) signupFailed(c echo.Context, email string, status int, code, message string) error {
	if wantsJSON(c) {
		return errorJSON(c, status, code, message)
	}
	view.SetFlashError(c, message)
	view.SetFormEmail(c, email)
	return c.Redirect(http.StatusSeeOther, "/auth/signup")
}

// startSession binds the user named by token to the browser session. The
// access token is only read for its claims. The session cookie keeps the user
// id and expiry, and any cache left from an earlier user of the browser
// session is dropped.
func (h *AuthHandler) startSession(c echo.Context, token string) (auth.TokenClaims, error) {
	ctx := c.Request().Context()
	claims, err := auth.ParseTokenClaims(token)
	if err != nil {
		return claims, err
	}
	if claims.RecordID == "" {
		return claims, errors.New("token names no user record")
	}

	if err := h.manager.Forget(ctx, middleware.SessionID(c)); err != nil {
		middleware.FromContext(ctx).Warn("Failed to drop previous user data cache", "error", err)
	}
	if err := auth.SaveLogin(c, claims.RecordID, claims.ExpiresAt); err != nil {
		return claims, err
	}
	if st := middleware.SessionState(c); st != nil {
		st.Set(claims.RecordID, claims.ExpiresAt)
	}
	return claims, nil
}

func newLoginResponse(claims auth.TokenClaims) LoginResponse {
	resp := LoginResponse{UserID: claims.RecordID}
	if !claims.ExpiresAt.IsZero() {
		resp.ExpiresAt = claims.ExpiresAt.UnixMilli()
	}
	return resp
}

func (h *AuthHandler) loginFailed(c echo.Context, email, message string) error {
	if wantsJSON(c) {
		return errorJSON(c, http.StatusUnauthorized, "invalid_credentials", message)
	}
	view.SetFlashError(c, message)
	view.SetFormEmail(c, email)
	return c.Redirect(http.StatusSeeOther, "/auth/login")
}

// Logout signs the user out and deletes the session's cached data
// (POST /auth/logout).
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.manager.Forget(ctx, middleware.SessionID(c)); err != nil {
		middleware.FromContext(ctx).Warn("Failed to clear user data cache on logout", "error", err)
	}
	if err := auth.ClearLogin(c); err != nil {
		return domainError(c, err)
	}
	if st := middleware.SessionState(c); st != nil {
		st.Clear()
	}

	if wantsJSON(c) {
		return c.NoContent(http.StatusNoContent)
	}
	view.SetFlashSuccess(c, "You have been logged out.")
	return c.Redirect(http.StatusSeeOther, "/auth/login")
}
