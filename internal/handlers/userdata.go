package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/middleware"
	"github.com/nfrund/roster/internal/userdata"
	"github.com/nfrund/roster/internal/view"
)

// UserDataHandler serves the signed-in user's cached bundle.
type UserDataHandler struct {
	manager *userdata.Manager
}

func NewUserDataHandler(manager *userdata.Manager) *UserDataHandler {
	return &UserDataHandler{manager: manager}
}

func (h *UserDataHandler) cache(c echo.Context) (*userdata.Cache, error) {
	return h.manager.Cache(middleware.SessionID(c))
}

// Get returns the current state (GET /app/me). With ?wait=true it waits for a
// fetch the read started.
func (h *UserDataHandler) Get(c echo.Context) error {
	cache, err := h.cache(c)
	if err != nil {
		return domainError(c, err)
	}

	var st userdata.State
	if c.QueryParam("wait") == "true" {
		st, err = cache.Load(c.Request().Context())
		if err != nil {
			return errorJSON(c, http.StatusGatewayTimeout, "timeout", "user data is still loading")
		}
	} else {
		st = cache.Read()
	}
	return c.JSON(http.StatusOK, NewUserDataResponse(st))
}

// Refetch forces a fresh fetch (POST /app/me/refetch). Fetch failures are part
// of the returned state, not an HTTP error.
func (h *UserDataHandler) Refetch(c echo.Context) error {
	cache, err := h.cache(c)
	if err != nil {
		return domainError(c, err)
	}

	ctx := c.Request().Context()
	if err := cache.Refetch(ctx); err != nil && ctx.Err() != nil {
		return errorJSON(c, http.StatusGatewayTimeout, "timeout", "refetch did not finish")
	}

	st := cache.Snapshot()
	if isHTMX(c) {
		return view.RenderOK(c, view.UserDataPanel(st))
	}
	return c.JSON(http.StatusOK, NewUserDataResponse(st))
}

// ClearCache deletes the persisted entry (DELETE /app/me/cache).
func (h *UserDataHandler) ClearCache(c echo.Context) error {
	cache, err := h.cache(c)
	if err != nil {
		return domainError(c, err)
	}
	if err := cache.ClearCache(c.Request().Context()); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Page renders the profile page (GET /app/me/page).
func (h *UserDataHandler) Page(c echo.Context) error {
	cache, err := h.cache(c)
	if err != nil {
		return domainError(c, err)
	}
	st, _ := cache.Load(c.Request().Context())
	return view.RenderOK(c, view.ProfilePage(st, view.GetFlashData(c)))
}
