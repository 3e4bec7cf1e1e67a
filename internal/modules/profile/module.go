package profile

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/handlers"
	"github.com/nfrund/roster/internal/module"
	"github.com/nfrund/roster/internal/registry"
)

// Module mounts the profile mutation endpoints.
type Module struct {
	module.BaseModule
	handler *handlers.ProfileHandler
}

func New() *Module {
	return &Module{}
}

func (m *Module) Name() string {
	return "profile"
}

// Boot is mounted on the signed-in /app group.
func (m *Module) Boot(_ context.Context, g *echo.Group, reg *registry.Registry) error {
	store, err := registry.Resolve(reg, registry.ProfileStoreKey)
	if err != nil {
		return err
	}
	pub, err := registry.Resolve(reg, registry.PublisherKey)
	if err != nil {
		return err
	}
	m.handler = handlers.NewProfileHandler(store, pub)

	slog.Info("Booting profile module: setting up routes")
	me := g.Group("/me")
	me.PATCH("/profile", m.handler.UpdateProfile)
	me.PUT("/availability", m.handler.SetAvailability)
	me.POST("/pictures", m.handler.AddPicture)
	me.DELETE("/pictures/:id", m.handler.DeletePicture)
	me.POST("/rates", m.handler.AddRate)
	me.DELETE("/rates/:id", m.handler.DeleteRate)
	me.POST("/services", m.handler.AddService)
	me.DELETE("/services/:service", m.handler.DeleteService)
	me.POST("/places", m.handler.AddPlacesOfService)
	me.POST("/testimonials", m.handler.AddTestimonial)
	me.POST("/bookmarks/:target", m.handler.ToggleBookmark)
	me.POST("/stories", m.handler.AddStory)
	me.DELETE("/stories/:id", m.handler.DeleteStory)

	g.POST("/profiles/:target/rating", m.handler.RateProfile)
	return nil
}
