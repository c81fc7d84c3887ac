package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// Scheduler runs the periodic jobs: the daily alert scan and the
// cleanup of old viewed alerts.
type Scheduler struct {
	cron      *cron.Cron
	scanner   *AlertScanner
	alerts    *AlertService
	retention time.Duration
	logger    *logger.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(scanner *AlertScanner, alerts *AlertService, retention time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		scanner:   scanner,
		alerts:    alerts,
		retention: retention,
		logger:    log,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start(scanSpec, cleanupSpec string) error {
	if _, err := s.cron.AddFunc(scanSpec, s.runScan); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(cleanupSpec, s.runCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("scan_schedule", scanSpec).
		Str("cleanup_schedule", cleanupSpec).
		Msg("scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runScan() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.logger.Info().Msg("scheduled alert scan starting")
	if err := s.scanner.ScanAll(ctx); err != nil {
		s.logger.Error().Err(err).Msg("scheduled alert scan finished with errors")
		return
	}
	s.logger.Info().Msg("scheduled alert scan finished")
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.alerts.CleanupViewed(ctx, s.retention)
	if err != nil {
		s.logger.Error().Err(err).Msg("alert cleanup failed")
		return
	}
	s.logger.Info().Int64("deleted", deleted).Msg("alert cleanup finished")
}
