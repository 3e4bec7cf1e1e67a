package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/handlers"
	"github.com/nfrund/roster/internal/middleware"
	"github.com/nfrund/roster/internal/registry"
)

// registerRoutes mounts the public routes and returns the signed-in /app
// group the modules boot into.
func (s *Server) registerRoutes() *echo.Group {
	users := registry.MustGet(s.reg, registry.UserStoreKey)
	pub := registry.MustGet(s.reg, registry.PublisherKey)
	authHandler := handlers.NewAuthHandler(users, s.manager, pub)
	loginLimiter := middleware.LoginRateLimiter()
	signupLimiter := middleware.LoginRateLimiter()

	s.E.GET("/health", s.health)

	s.E.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/app/me/page")
	})

	a := s.E.Group("/auth")
	a.GET("/login", authHandler.LoginGet)
	a.POST("/login", authHandler.LoginPost, loginLimiter)
	a.GET("/signup", authHandler.SignupGet)
	a.POST("/signup", authHandler.SignupPost, signupLimiter)
	a.POST("/logout", authHandler.Logout)

	return s.E.Group("/app", middleware.RequireUser())
}

func (s *Server) health(c echo.Context) error {
	status := map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"caches":   s.manager.Len(),
	}
	if s.conn != nil {
		status["database"] = s.conn.IsHealthy()
		if !s.conn.IsHealthy() {
			status["status"] = "degraded"
			return c.JSON(http.StatusServiceUnavailable, status)
		}
	}
	return c.JSON(http.StatusOK, status)
}
