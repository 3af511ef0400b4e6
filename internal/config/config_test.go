package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  host: 127.0.0.1
  port: 8080
database:
  host: localhost
  port: 5432
  user: staybook
  database: staybook
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 12, cfg.Policy.MinimumStayHours)
	assert.Equal(t, "0.18", cfg.Policy.TaxRate)
	assert.Equal(t, "RES", cfg.Policy.ReservationPrefix)
	assert.Equal(t, 6, cfg.Policy.ReservationDigits)
	assert.Equal(t, 3*time.Second, cfg.LockWait())
	assert.Equal(t, 10*time.Second, cfg.TxTimeout())
	assert.Equal(t, "0 5 0 * * *", cfg.Scheduler.ReleaseStalePending)
	assert.Equal(t, "0 */15 * * * *", cfg.Scheduler.SyncRoomOccupancy)

	p := cfg.BookingPolicy()
	assert.Equal(t, 12*time.Hour, p.MinimumStay)
	assert.Equal(t, "0.18", p.TaxRate.String())
	assert.Equal(t, time.UTC, p.Location)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POLICY_TAX_RATE", "0.12")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.12", cfg.BookingPolicy().TaxRate.String())
	assert.Equal(t, "postgres://staybook:@db.internal:5432/staybook?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"bad port", "server:\n  port: 0\n", "invalid server port"},
		{"missing db host", "server:\n  port: 8080\ndatabase:\n  user: u\n  database: d\n", "database host is required"},
		{"unknown driver", "server:\n  port: 8080\ndatabase:\n  driver: mongo\n", "unsupported database driver"},
		{"tax above one", "server:\n  port: 8080\ndatabase:\n  driver: memory\npolicy:\n  tax_rate: \"1.5\"\n", "tax_rate must be between 0 and 1"},
		{"bad timezone", "server:\n  port: 8080\ndatabase:\n  driver: memory\npolicy:\n  timezone: Mars/Olympus\n", "invalid timezone"},
		{"short secret", "server:\n  port: 8080\ndatabase:\n  driver: memory\njwt:\n  secret: short\n", "at least 32 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_MemoryDriverFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n  grpc_port: 9091\ndatabase:\n  driver: memory\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, ":9091", cfg.GetGRPCAddress())
	assert.Equal(t, ":8080", cfg.GetServerAddress())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
