// Package scheduler drives the periodic alert processing, cleanup and
// stats tasks.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/thalanet/bloodmatch/internal/alerting"
	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/intake"
	"github.com/thalanet/bloodmatch/internal/pool"
	"github.com/thalanet/bloodmatch/internal/predictor"
)

// Scheduler owns the cron jobs around the alert manager
type Scheduler struct {
	cfg       config.SchedulerConfig
	logger    *slog.Logger
	cron      *cron.Cron
	manager   *alerting.Manager
	buffer    *intake.Buffer
	donors    *pool.Store
	predictor predictor.Provider
}

// New creates a scheduler
func New(
	cfg config.SchedulerConfig,
	manager *alerting.Manager,
	buffer *intake.Buffer,
	donors *pool.Store,
	availability predictor.Provider,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		logger:    logger,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		manager:   manager,
		buffer:    buffer,
		donors:    donors,
		predictor: availability,
	}
}

// Start registers and starts the periodic tasks
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.ProcessSchedule, func() { s.processPass(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule processing task: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.CleanupSchedule, s.manager.Cleanup); err != nil {
		return fmt.Errorf("failed to schedule cleanup task: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.StatsSchedule, s.logStats); err != nil {
		return fmt.Errorf("failed to schedule stats task: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		"process_schedule", s.cfg.ProcessSchedule,
		"cleanup_schedule", s.cfg.CleanupSchedule)
	return nil
}

// Stop stops the cron scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// processPass drains buffered requests and runs one alert processing pass
// over the current donor snapshot. The pass runs even with an empty buffer:
// alerts left active by an earlier pass are retried by the manager.
func (s *Scheduler) processPass(ctx context.Context) {
	requests := s.buffer.Drain()

	donors := s.donors.Snapshot()
	predictor.Annotate(donors, s.predictor)

	if err := s.manager.ProcessRequests(ctx, requests, donors); err != nil {
		s.logger.Error("alert processing pass failed", "error", err)
	}
}

// logStats logs the alert manager statistics
func (s *Scheduler) logStats() {
	stats := s.manager.Stats()
	s.logger.Info("alert statistics",
		"active_alerts", stats.ActiveAlerts,
		"recent_alerts", stats.RecentAlerts,
		"total_processed", stats.TotalProcessed)
}
