package jobs

import (
	"context"
	"time"

	"staybook-backend/internal/config"
	"staybook-backend/internal/logger"
	"staybook-backend/internal/service"
	"staybook-backend/internal/utils"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Reservations service.ReservationService
	Rooms        service.RoomService
}

func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		now:      time.Now,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	ctx := logger.WithRequestID(context.Background(), jobName+"-"+jr.now().UTC().Format("20060102T150405"))
	logger.InfoContext(ctx, "Starting job", "job", jobName)
	jobFunc(ctx)
	logger.InfoContext(ctx, "Job completed", "job", jobName)
}

// ReleaseStalePending cancels PENDING reservations whose check-in day has
// passed without the booking being confirmed. Holds checking in today are
// kept until the next run after midnight.
func (jr *JobRunner) ReleaseStalePending() {
	jr.runWithRecovery("ReleaseStalePending", func(ctx context.Context) {
		loc := jr.config.BookingPolicy().Location
		cutoff := utils.TruncateToDay(jr.now().In(loc))

		released, err := jr.services.Reservations.ReleaseStalePending(ctx, cutoff)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to release stale pending reservations", "error", err)
			return
		}
		logger.InfoContext(ctx, "Released stale pending reservations", "count", released, "cutoff", cutoff)
	})
}

// SyncRoomOccupancy refreshes the informational OCCUPIED/AVAILABLE flag.
func (jr *JobRunner) SyncRoomOccupancy() {
	jr.runWithRecovery("SyncRoomOccupancy", func(ctx context.Context) {
		changed, err := jr.services.Rooms.SyncOccupancy(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to sync room occupancy", "error", err)
			return
		}
		logger.InfoContext(ctx, "Synced room occupancy", "rooms_changed", changed)
	})
}

// RunAll runs every housekeeping job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ReleaseStalePending()
	jr.SyncRoomOccupancy()
}
