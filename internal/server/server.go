package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/roster/internal/auth"
	"github.com/nfrund/roster/internal/config"
	"github.com/nfrund/roster/internal/database"
	"github.com/nfrund/roster/internal/domain"
	"github.com/nfrund/roster/internal/handlers"
	"github.com/nfrund/roster/internal/middleware"
	"github.com/nfrund/roster/internal/module"
	"github.com/nfrund/roster/internal/pubsub"
	"github.com/nfrund/roster/internal/registry"
	"github.com/nfrund/roster/internal/userdata"
	"github.com/nfrund/roster/web"
)

// ProfileService is read by the user data caches and written by the profile
// endpoints.
type ProfileService interface {
	userdata.Source
	domain.ProfileRepository
}

// Dependencies are the backing services the server is wired from. Bootstrap
// builds the production set; tests pass fakes.
type Dependencies struct {
	Profiles   ProfileService
	Users      domain.UserRepository
	Publisher  pubsub.Publisher
	Subscriber pubsub.Subscriber
	Stores     userdata.StoreFactory

	// Conn is optional. When set it backs the health check and is closed on
	// shutdown.
	Conn database.DBConnection

	// Modules defaults to AppModules().
	Modules []module.Module

	// closers run after the modules have shut down, in reverse order.
	closers []func(context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	E   *echo.Echo
	Cfg config.Provider

	reg      *registry.Registry
	modules  []module.Module
	conn     database.DBConnection
	closers  []func(context.Context) error
	sessions *auth.Registry
	manager  *userdata.Manager
}

// New wires deps into a ready-to-start server: services go into the registry,
// every module registers and boots, and the routes are mounted.
func New(cfg config.Provider, deps Dependencies) (*Server, error) {
	if deps.Profiles == nil || deps.Users == nil || deps.Publisher == nil || deps.Subscriber == nil || deps.Stores == nil {
		return nil, fmt.Errorf("server: incomplete dependencies")
	}
	if deps.Modules == nil {
		deps.Modules = AppModules()
	}

	sessions := auth.NewRegistry()
	manager := userdata.NewManager(deps.Profiles,
		func(sid string) userdata.SessionSource { return sessions.State(sid) },
		deps.Stores,
		userdata.WithFetchTimeout(cfg.GetCacheFetchTimeout()),
	)

	reg := registry.New(cfg)
	registry.Set(reg, registry.ProfileStoreKey, domain.ProfileRepository(deps.Profiles))
	registry.Set(reg, registry.UserStoreKey, deps.Users)
	registry.Set(reg, registry.PublisherKey, deps.Publisher)
	registry.Set(reg, registry.SubscriberKey, deps.Subscriber)
	registry.Set(reg, registry.SessionRegistryKey, sessions)
	registry.Set(reg, registry.UserDataManagerKey, manager)
	if deps.Conn != nil {
		registry.Set(reg, registry.DBConnectionKey, deps.Conn)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e)
	e.StaticFS("/static", echo.MustSubFS(web.FS, "static"))

	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(session.Middleware(auth.NewCookieStore(cfg.GetSessionSecret(), secureCookies(cfg))))
	e.Use(middleware.Session(sessions))

	s := &Server{
		E:        e,
		Cfg:      cfg,
		reg:      reg,
		modules:  deps.Modules,
		conn:     deps.Conn,
		closers:  deps.closers,
		sessions: sessions,
		manager:  manager,
	}

	for _, m := range s.modules {
		if err := m.Register(reg); err != nil {
			return nil, fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	app := s.registerRoutes()
	for _, m := range s.modules {
		slog.Info("Booting module", "module", m.Name())
		if err := m.Boot(context.Background(), app, reg); err != nil {
			return nil, fmt.Errorf("boot module %s: %w", m.Name(), err)
		}
	}
	return s, nil
}

// Registry exposes the service registry, useful for testing.
func (s *Server) Registry() *registry.Registry {
	return s.reg
}

// secureCookies marks the session cookie Secure when the app is served over
// TLS.
func secureCookies(cfg config.Provider) bool {
	return strings.HasPrefix(cfg.GetAppBaseURL(), "https://")
}
