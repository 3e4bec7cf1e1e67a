package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/nfrund/roster/internal/config"
	"github.com/nfrund/roster/internal/logging"
	"github.com/nfrund/roster/internal/server"
)

func main() {
	cfg := config.New()
	logging.New()

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	s, err := server.Bootstrap(ctx, cfg)
	cancel()
	if err != nil {
		slog.Error("Failed to start", "error", err)
		os.Exit(1)
	}

	if err := s.Start(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
