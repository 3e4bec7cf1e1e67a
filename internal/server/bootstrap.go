package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/nfrund/roster/internal/config"
	"github.com/nfrund/roster/internal/database"
	"github.com/nfrund/roster/internal/pubsub"
	"github.com/nfrund/roster/internal/userdata"
	"github.com/spf13/afero"
)

// Bootstrap connects the production services described by cfg and wires a
// server from them.
func Bootstrap(ctx context.Context, cfg config.Provider) (*Server, error) {
	conn := database.NewConnection(cfg)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	conn.StartMonitoring()

	fail := func(err error) (*Server, error) {
		_ = conn.Close(context.Background())
		return nil, err
	}

	profiles, err := database.NewProfileStore(conn)
	if err != nil {
		return fail(fmt.Errorf("profile store: %w", err))
	}

	tracer, flushTraces, err := pubsub.SetupOTel(ctx, pubsub.LoadTracingConfigFromEnv())
	if err != nil {
		return fail(fmt.Errorf("tracing: %w", err))
	}
	bus := pubsub.NewWatermillBridgeWithTracer(tracer)

	deps := Dependencies{
		Profiles:   profiles,
		Users:      database.NewUserStore(conn),
		Publisher:  bus,
		Subscriber: bus,
		Conn:       conn,
	}
	deps.closers = append(deps.closers, func(context.Context) error {
		flushTraces()
		return nil
	})
	deps.closers = append(deps.closers, func(context.Context) error { return bus.Close() })

	var rdb redis.Cmdable
	if cfg.GetCacheBackend() == config.CacheBackendRedis {
		client := userdata.NewRedisClient(cfg)
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis is not reachable yet", "addr", cfg.GetRedisAddr(), "error", err)
		}
		rdb = client
		deps.closers = append(deps.closers, func(context.Context) error { return client.Close() })
	}

	deps.Stores, err = userdata.NewStoreFactory(cfg, afero.NewOsFs(), rdb)
	if err != nil {
		return fail(err)
	}
	slog.Info("User data cache configured", "backend", cfg.GetCacheBackend(), "dir", cfg.GetCacheDir())

	s, err := New(cfg, deps)
	if err != nil {
		return fail(err)
	}
	return s, nil
}
