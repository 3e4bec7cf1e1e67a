package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/auth"
	"github.com/nfrund/roster/internal/handlers"
	"github.com/nfrund/roster/internal/module"
	"github.com/nfrund/roster/internal/registry"
	"github.com/nfrund/roster/internal/userdata"
)

const (
	janitorInterval = 5 * time.Minute
	idleTimeout     = 30 * time.Minute
)

// Module serves the cached user data bundle, keeps caches coherent with
// profile changes and evicts idle sessions.
type Module struct {
	module.BaseModule

	stop context.CancelFunc
	wg   sync.WaitGroup
}

func New() *Module {
	return &Module{}
}

func (m *Module) Name() string {
	return "cache"
}

// Boot is mounted on the signed-in /app group.
func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	manager, err := registry.Resolve(reg, registry.UserDataManagerKey)
	if err != nil {
		return err
	}
	sub, err := registry.Resolve(reg, registry.SubscriberKey)
	if err != nil {
		return err
	}
	sessions, err := registry.Resolve(reg, registry.SessionRegistryKey)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.stop = cancel
	if err := manager.Subscribe(runCtx, sub); err != nil {
		cancel()
		return err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		runJanitor(runCtx, janitorInterval, idleTimeout, manager, sessions)
	}()

	slog.Info("Booting cache module: setting up routes")
	h := handlers.NewUserDataHandler(manager)
	g.GET("/me", h.Get)
	g.GET("/me/page", h.Page)
	g.POST("/me/refetch", h.Refetch)
	g.DELETE("/me/cache", h.ClearCache)
	return nil
}

// runJanitor evicts idle caches and then the session states no cache refers
// to, every interval until ctx is done.
func runJanitor(ctx context.Context, interval, idle time.Duration, manager *userdata.Manager, sessions *auth.Registry) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(idle, manager, sessions)
		}
	}
}

func sweep(idle time.Duration, manager *userdata.Manager, sessions *auth.Registry) {
	caches := manager.Evict(idle)
	states := sessions.Evict(idle, manager.Has)
	if caches > 0 || states > 0 {
		slog.Debug("Evicted idle sessions", "caches", caches, "session_states", states)
	}
}

// Shutdown stops the change subscription and the janitor.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.stop == nil {
		return nil
	}
	m.stop()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
