package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"staybook-backend/internal/jobs"
	"staybook-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. Cron
// expressions are evaluated in the hotel's timezone with seconds precision.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(jobRunner.Config().BookingPolicy().Location),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Cancel holds nobody confirmed before their check-in day
	if _, err := s.cron.AddFunc(cfg.ReleaseStalePending, s.jobs.ReleaseStalePending); err != nil {
		logger.Error("Failed to register ReleaseStalePending job", "error", err)
		return fmt.Errorf("register ReleaseStalePending: %w", err)
	}

	if _, err := s.cron.AddFunc(cfg.SyncRoomOccupancy, s.jobs.SyncRoomOccupancy); err != nil {
		logger.Error("Failed to register SyncRoomOccupancy job", "error", err)
		return fmt.Errorf("register SyncRoomOccupancy: %w", err)
	}

	logger.Info("All cron jobs registered successfully", "jobs", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
