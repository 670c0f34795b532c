package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Runner is a component that runs until ctx is done
type Runner interface {
	Run(ctx context.Context) error
}

// Watcher reloads a resource on change until ctx is done
type Watcher interface {
	Watch(ctx context.Context) error
}

// Scheduler is a background job scheduler
type Scheduler interface {
	Start() error
	Stop()
}

// APIServer is the local HTTP API
type APIServer interface {
	Start() error
	Stop(ctx context.Context) error
}

// BridgeServer ties the OneBot connection, the intake loop and the
// background jobs together for the lifetime of the process.
type BridgeServer struct {
	connection Runner
	intake     Runner
	settings   Watcher
	scheduler  Scheduler
	api        APIServer
	logger     *slog.Logger
}

// NewBridgeServer creates a new bridge server.
// settings, scheduler and api may be nil.
func NewBridgeServer(
	connection Runner,
	intake Runner,
	settings Watcher,
	scheduler Scheduler,
	api APIServer,
	logger *slog.Logger,
) *BridgeServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &BridgeServer{
		connection: connection,
		intake:     intake,
		settings:   settings,
		scheduler:  scheduler,
		api:        api,
		logger:     logger,
	}
}

// Run starts every component and blocks until ctx is done, then shuts
// them down and waits for in-flight events to finish.
func (s *BridgeServer) Run(ctx context.Context) error {
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
		defer s.scheduler.Stop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	background := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Component stopped", "component", name, "error", err)
			}
		}()
	}

	background("onebot", func() error { return s.connection.Run(ctx) })
	if s.settings != nil {
		background("settings", func() error { return s.settings.Watch(ctx) })
	}
	if s.api != nil {
		background("api", s.api.Start)
	}

	s.logger.Info("BuyTheWay bridge started")
	err := s.intake.Run(ctx)
	cancel()

	if s.api != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		if serr := s.api.Stop(shutdownCtx); serr != nil {
			s.logger.Warn("API shutdown failed", "error", serr)
		}
		stop()
	}
	wg.Wait()
	s.logger.Info("BuyTheWay bridge stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
