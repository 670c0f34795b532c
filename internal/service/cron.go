package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
)

// CronRunner runs scheduled maintenance: pruning old forward history
type CronRunner struct {
	historyRepo repo.HistoryRepo
	retention   time.Duration
	spec        string
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewCronRunner creates a new cron runner.
// spec is a robfig/cron schedule such as "@every 1h" or "0 4 * * *".
func NewCronRunner(historyRepo repo.HistoryRepo, retention time.Duration, spec string, logger *slog.Logger) *CronRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronRunner{
		historyRepo: historyRepo,
		retention:   retention,
		spec:        spec,
		logger:      logger,
		now:         time.Now,
	}
}

// Start schedules the jobs and runs one prune immediately
func (r *CronRunner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(r.spec, func() { r.Prune(context.Background()) }); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", r.spec, err)
	}
	c.Start()
	r.cron = c
	r.running = true

	go r.Prune(context.Background())
	r.logger.Info("Cron runner started", "prune_spec", r.spec, "retention", r.retention)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (r *CronRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
	r.logger.Info("Cron runner stopped")
}

// Prune deletes history older than the retention period
func (r *CronRunner) Prune(ctx context.Context) int64 {
	cutoff := r.now().Add(-r.retention)
	n, err := r.historyRepo.Prune(ctx, cutoff)
	if err != nil {
		r.logger.Error("Failed to prune forward history", "error", err)
		return 0
	}
	if n > 0 {
		r.logger.Info("Pruned forward history", "removed", n, "cutoff", cutoff)
	}
	return n
}
