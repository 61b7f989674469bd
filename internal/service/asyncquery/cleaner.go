package asyncquery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"asyncq/internal/domain"
)

// CutoffLayout is the minute-precision UTC layout sweeps use in their filters.
const CutoffLayout = "2006-01-02T15:04Z"

// Sweep names, used in logs and metric labels.
const (
	SweepTimeout = "timeout"
	SweepCleanup = "cleanup"
)

// CleanerConfig configures the scheduled sweeps.
type CleanerConfig struct {
	MaxRunTime      time.Duration // queued/processing records older than this time out
	Retention       time.Duration // records older than this are deleted
	TimeoutSchedule string        // cron spec for TimeoutSweep
	CleanupSchedule string        // cron spec for CleanupSweep
	SweepTimeout    time.Duration // deadline for a single sweep; 0 disables
}

// DefaultCleanerConfig returns the defaults: one hour run time, seven days
// retention, timeout sweep every five minutes, cleanup hourly.
func DefaultCleanerConfig() CleanerConfig {
	return CleanerConfig{
		MaxRunTime:      time.Hour,
		Retention:       7 * 24 * time.Hour,
		TimeoutSchedule: "@every 5m",
		CleanupSchedule: "@every 1h",
		SweepTimeout:    time.Minute,
	}
}

// Cleaner periodically times out stale queries and deletes expired ones.
type Cleaner struct {
	cron    *cron.Cron
	mgr     *Manager
	cfg     CleanerConfig
	logger  *slog.Logger
	metrics *Metrics
	ctx     context.Context
}

// NewCleaner creates a Cleaner. Both cron specs are validated here.
func NewCleaner(mgr *Manager, cfg CleanerConfig, logger *slog.Logger, metrics *Metrics) (*Cleaner, error) {
	if cfg.MaxRunTime <= 0 {
		return nil, domain.ErrValidation("max run time must be positive, got %s", cfg.MaxRunTime)
	}
	if cfg.Retention <= 0 {
		return nil, domain.ErrValidation("retention must be positive, got %s", cfg.Retention)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cleaner{
		cron:    cron.New(),
		mgr:     mgr,
		cfg:     cfg,
		logger:  logger.With("component", "cleaner"),
		metrics: metrics,
		ctx:     context.Background(),
	}

	if _, err := c.cron.AddFunc(cfg.TimeoutSchedule, func() { c.run(c.TimeoutSweep) }); err != nil {
		return nil, domain.ErrValidation("invalid timeout schedule %q: %v", cfg.TimeoutSchedule, err)
	}
	if _, err := c.cron.AddFunc(cfg.CleanupSchedule, func() { c.run(c.CleanupSweep) }); err != nil {
		return nil, domain.ErrValidation("invalid cleanup schedule %q: %v", cfg.CleanupSchedule, err)
	}
	return c, nil
}

// Start runs both sweeps once and then starts the cron scheduler. Scheduled
// sweeps derive their context from ctx.
func (c *Cleaner) Start(ctx context.Context) {
	c.ctx = ctx
	c.run(c.TimeoutSweep)
	c.run(c.CleanupSweep)
	c.cron.Start()
	c.logger.Info("cleaner started",
		"timeout_schedule", c.cfg.TimeoutSchedule,
		"cleanup_schedule", c.cfg.CleanupSchedule,
	)
}

// Stop stops the scheduler and waits for running sweeps to finish.
func (c *Cleaner) Stop() {
	<-c.cron.Stop().Done()
	c.logger.Info("cleaner stopped")
}

func (c *Cleaner) run(sweep func(context.Context) (int, error)) {
	// Failures are logged by the sweep; the next tick retries.
	_, _ = sweep(c.ctx)
}

// TimeoutFilter returns the filter selecting queued or processing records
// created at or before now minus the max run time.
func (c *Cleaner) TimeoutFilter(now time.Time) string {
	cutoff := now.UTC().Add(-c.cfg.MaxRunTime).Format(CutoffLayout)
	return fmt.Sprintf("status=in=(%s,%s);createdOn=le='%s'",
		domain.QueryStatusProcessing, domain.QueryStatusQueued, cutoff)
}

// CleanupFilter returns the filter selecting records created at or before
// now minus the retention period.
func (c *Cleaner) CleanupFilter(now time.Time) string {
	cutoff := now.UTC().Add(-c.cfg.Retention).Format(CutoffLayout)
	return fmt.Sprintf("createdOn=le='%s'", cutoff)
}

// TimeoutSweep marks stale queued and processing records TIMEDOUT and returns
// how many were updated.
func (c *Cleaner) TimeoutSweep(ctx context.Context) (int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	filter := c.TimeoutFilter(c.mgr.now())
	n, err := c.mgr.UpdateStatusCollection(ctx, filter, domain.QueryStatusTimedOut)
	c.finish(SweepTimeout, filter, n, err)
	return n, err
}

// CleanupSweep deletes expired records and their results and returns how
// many records were deleted.
func (c *Cleaner) CleanupSweep(ctx context.Context) (int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	filter := c.CleanupFilter(c.mgr.now())
	n, err := c.mgr.DeleteCollection(ctx, filter)
	c.finish(SweepCleanup, filter, n, err)
	return n, err
}

func (c *Cleaner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.SweepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.SweepTimeout)
}

func (c *Cleaner) finish(sweep, filter string, n int, err error) {
	c.metrics.sweepDone(sweep, err)
	if err != nil {
		c.logger.Warn("sweep failed", "sweep", sweep, "filter", filter, "error", err)
		return
	}
	c.logger.Info("sweep finished", "sweep", sweep, "count", n)
}
