package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/biz/usecase"
)

// IntakeStats counts processed events
type IntakeStats struct {
	Received   int64 `json:"received"`
	Duplicates int64 `json:"duplicates"`
	Matched    int64 `json:"matched"`
	Forwarded  int64 `json:"forwarded"`
	Failed     int64 `json:"failed"`
}

// IntakeService consumes raw events and runs each one through the
// forward pipeline on its own goroutine.
type IntakeService struct {
	events   repo.EventSource
	settings repo.SettingsRepo
	forward  *usecase.ForwardUsecase
	dedup    *usecase.DedupGuard
	notifier repo.Notifier
	logger   *slog.Logger

	wg sync.WaitGroup

	received   atomic.Int64
	duplicates atomic.Int64
	matched    atomic.Int64
	forwarded  atomic.Int64
	failed     atomic.Int64
}

// NewIntakeService creates a new intake service
func NewIntakeService(
	events repo.EventSource,
	settings repo.SettingsRepo,
	forward *usecase.ForwardUsecase,
	notifier repo.Notifier,
	logger *slog.Logger,
) *IntakeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntakeService{
		events:   events,
		settings: settings,
		forward:  forward,
		dedup:    usecase.NewDedupGuard(usecase.DefaultDedupCapacity),
		notifier: notifier,
		logger:   logger,
	}
}

// Run consumes events until ctx is done or the source closes,
// then waits for in-flight events to finish.
func (s *IntakeService) Run(ctx context.Context) error {
	ch, err := s.events.Events(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	defer s.wg.Wait()

	s.logger.Info("Intake service started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.Handle(ctx, raw)
			}()
		}
	}
}

// Handle processes one event. It never panics; a panic is logged and
// raised as a local notification. A nil result means the event was skipped.
func (s *IntakeService) Handle(ctx context.Context, raw domain.RawEvent) (out *usecase.ForwardOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			s.failed.Add(1)
			s.logger.Error("Panic while handling event", "panic", rec)
			if s.notifier != nil {
				s.notifier.Notify(ctx, "BuyTheWay 错误", fmt.Sprintf("处理消息时出错: %v", rec))
			}
			out = nil
		}
	}()

	s.received.Add(1)
	if s.dedup.Seen(usecase.EventKey(raw)) {
		s.duplicates.Add(1)
		s.logger.Debug("Skipping duplicate event", "key", usecase.EventKey(raw))
		return nil
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.failed.Add(1)
		s.logger.Error("Failed to load settings", "error", err)
		return nil
	}
	if !settings.PluginEnabled {
		return nil
	}

	out = s.forward.Process(ctx, raw, settings)
	if out.Matched {
		s.matched.Add(1)
	}
	if out.Record != nil {
		if out.Record.Delivered() {
			s.forwarded.Add(1)
		} else {
			s.failed.Add(1)
		}
	}
	return out
}

// Stats returns a snapshot of the counters
func (s *IntakeService) Stats() IntakeStats {
	return IntakeStats{
		Received:   s.received.Load(),
		Duplicates: s.duplicates.Load(),
		Matched:    s.matched.Load(),
		Forwarded:  s.forwarded.Load(),
		Failed:     s.failed.Load(),
	}
}
