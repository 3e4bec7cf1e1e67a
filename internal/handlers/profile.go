package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/domain"
	"github.com/nfrund/roster/internal/middleware"
	"github.com/nfrund/roster/internal/pubsub"
	"github.com/nfrund/roster/internal/userdata"
)

// ProfileHandler applies profile mutations for the signed-in user and
// announces every successful change so cached bundles are refetched.
type ProfileHandler struct {
	repo domain.ProfileRepository
	pub  pubsub.Publisher
}

func NewProfileHandler(repo domain.ProfileRepository, pub pubsub.Publisher) *ProfileHandler {
	return &ProfileHandler{repo: repo, pub: pub}
}

// changed publishes a change for each affected user. The mutation has already
// been committed, so a publish failure is only logged.
func (h *ProfileHandler) changed(c echo.Context, userIDs ...string) {
	ctx := c.Request().Context()
	actor := middleware.User(c).UserID
	if err := userdata.NotifyChanged(ctx, h.pub, actor, userIDs...); err != nil {
		middleware.FromContext(ctx).Warn("Failed to publish user data change", "error", err)
	}
}

func me(c echo.Context) string { return middleware.User(c).UserID }

// UpdateProfile handles PATCH /app/me/profile.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	var in domain.ProfileUpdate
	if err := bindAndValidate(c, &in); err != nil {
		return domainError(c, err)
	}
	p, err := h.repo.UpdateProfile(c.Request().Context(), me(c), in)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, me(c))
	return c.JSON(http.StatusOK, p)
}

// SetAvailability handles PUT /app/me/availability.
func (h *ProfileHandler) SetAvailability(c echo.Context) error {
	var in domain.AvailabilityUpdate
	if err := bindAndValidate(c, &in); err != nil {
		return domainError(c, err)
	}
	p, err := h.repo.SetAvailability(c.Request().Context(), me(c), in)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, me(c))
	return c.JSON(http.StatusOK, p)
}

// AddPicture handles POST /app/me/pictures.
func (h *ProfileHandler) AddPicture(c echo.Context) error {
	var in domain.NewPicture
	if err := bindAndValidate(c, &in); err != nil {
		return domainError(c, err)
	}
	pic, err := h.repo.AddPicture(c.Request().Context(), me(c), in)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, me(c))
	return c.JSON(http.StatusCreated, pic)
}

// DeletePicture handles DELETE /app/me/pictures/:id.
func (h *ProfileHandler) DeletePicture(c echo.Context) error {
	return h.deleteOwned(c, h.repo.DeletePicture)
}

// AddRate handles POST /app/me/rates.
func (h *ProfileHandler) AddRate(c echo.Context) error {
	var in domain.NewRate
	if err := bindAndValidate(c, &in); err != nil {
		return domainError(c, err)
	}
	rate, err := h.repo.AddRate(c.Request().Context(), me(c), in)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, me(c))
	return c.JSON(http.StatusCreated, rate)
}

// DeleteRate handles DELETE /app/me/rates/:id.
func (h *ProfileHandler) DeleteRate(c echo.Context) error {
	return h.deleteOwned(c, h.repo.DeleteRate)
}

// AddService handles POST /app/me/services.
func (h *ProfileHandler) AddService(c echo.Context) error {
	var in domain.NewService
	if err := bindAndValidate(c, &in); err != nil {
		return domainError(c, err)
	}
	p, err := h.repo.AddService(c.Request().Context(), me(c), in)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, me(c))
	return c.JSON(http.StatusOK, p)
}

// DeleteService handles DELETE /app/me/services/:service.
func (h *ProfileHandler) DeleteService(c echo.Context) error {
	service, err := url.PathUnescape(c.Param("service"))
	if err != nil || service == "" {
		return errorJSON(c, http.StatusBadRequest, "invalid_input", "service is required")
	}
	p, err := h.repo.DeleteService(c.Request().Context(), me(c), service)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, me(c))
	return c.JSON(http.StatusOK, p)
}

// AddPlacesOfService handles POST /app/me/places.
func (h *ProfileHandler) AddPlacesOfService(c echo.Context) error {
	var in domain.NewPlacesOfService
	if err := bindAndValidate(c, &in); err != nil {
		return domainError(c, err)
	}
	p, err := h.repo.AddPlacesOfService(c.Request().Context(), me(c), in)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, me(c))
	return c.JSON(http.StatusOK, p)
}

// RateProfile handles POST /app/profiles/:target/rating. The rated user's
// bundle is the one that changes.
func (h *ProfileHandler) RateProfile(c echo.Context) error {
	target, err := url.PathUnescape(c.Param("target"))
	if err != nil || target == "" {
		return errorJSON(c, http.StatusBadRequest, "invalid_input", "target is required")
	}
	p, err := h.repo.RateProfile(c.Request().Context(), me(c), target)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, p.ID)
	return c.JSON(http.StatusOK, map[string]any{"id": p.ID, "ratings": p.Ratings})
}

// AddTestimonial handles POST /app/me/testimonials. The recipient's bundle is
// the one that changes.
func (h *ProfileHandler) AddTestimonial(c echo.Context) error {
	var in domain.NewTestimonial
	if err := bindAndValidate(c, &in); err != nil {
		return domainError(c, err)
	}
	t, err := h.repo.AddTestimonial(c.Request().Context(), me(c), in)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, t.To)
	return c.JSON(http.StatusCreated, t)
}

// ToggleBookmark handles POST /app/me/bookmarks/:target.
func (h *ProfileHandler) ToggleBookmark(c echo.Context) error {
	target, err := url.PathUnescape(c.Param("target"))
	if err != nil || target == "" {
		return errorJSON(c, http.StatusBadRequest, "invalid_input", "target is required")
	}
	on, err := h.repo.ToggleBookmark(c.Request().Context(), me(c), target)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, me(c))
	return c.JSON(http.StatusOK, map[string]bool{"bookmarked": on})
}

// AddStory handles POST /app/me/stories.
func (h *ProfileHandler) AddStory(c echo.Context) error {
	var in domain.NewStory
	if err := bindAndValidate(c, &in); err != nil {
		return domainError(c, err)
	}
	story, err := h.repo.AddStory(c.Request().Context(), me(c), in)
	if err != nil {
		return domainError(c, err)
	}
	h.changed(c, me(c))
	return c.JSON(http.StatusCreated, story)
}

// DeleteStory handles DELETE /app/me/stories/:id.
func (h *ProfileHandler) DeleteStory(c echo.Context) error {
	return h.deleteOwned(c, h.repo.DeleteStory)
}

func (h *ProfileHandler) deleteOwned(c echo.Context, del func(ctx context.Context, userID, id string) error) error {
	id, err := url.PathUnescape(c.Param("id"))
	if err != nil || id == "" {
		return errorJSON(c, http.StatusBadRequest, "invalid_input", "id is required")
	}
	if err := del(c.Request().Context(), me(c), id); err != nil {
		return domainError(c, err)
	}
	h.changed(c, me(c))
	return c.NoContent(http.StatusNoContent)
}
