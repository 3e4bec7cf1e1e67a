package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
)

// waitForShutdown returns a channel that is closed once an interrupt or
// terminate signal is received.
func waitForShutdown() <-chan struct{} {
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		signal.Stop(quit)
		close(done)
	}()
	return done
}

// Shutdown stops accepting requests, then shuts the modules down in reverse
// boot order, then releases the backing services.
func (s *Server) Shutdown(ctx context.Context) error {
	var merr *multierror.Error
	if err := s.E.Shutdown(ctx); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("http server: %w", err))
	}

	for i := len(s.modules) - 1; i >= 0; i-- {
		m := s.modules[i]
		if err := m.Shutdown(ctx); err != nil {
			slog.Error("Module shutdown failed", "module", m.Name(), "error", err)
			merr = multierror.Append(merr, fmt.Errorf("module %s: %w", m.Name(), err))
		}
	}

	s.reg.Shutdown()

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(ctx); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("database: %w", err))
		}
	}
	return merr.ErrorOrNil()
}
