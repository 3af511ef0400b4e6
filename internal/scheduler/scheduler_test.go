package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook-backend/internal/config"
	"staybook-backend/internal/jobs"
)

func runnerFor(t *testing.T, yaml string) *jobs.JobRunner {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return jobs.NewJobRunner(&jobs.Services{}, cfg)
}

func TestNewScheduler_RegistersDefaultJobs(t *testing.T) {
	s, err := NewScheduler(runnerFor(t, "server:\n  port: 8080\ndatabase:\n  driver: memory\n"))
	require.NoError(t, err)
	assert.True(t, s.IsRunning())
	assert.Len(t, s.cron.Entries(), 2)

	s.Start()
	s.Stop()
}

func TestNewScheduler_RejectsBadExpression(t *testing.T) {
	_, err := NewScheduler(runnerFor(t, "server:\n  port: 8080\ndatabase:\n  driver: memory\nscheduler:\n  sync_room_occupancy: \"every now and then\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SyncRoomOccupancy")
}
