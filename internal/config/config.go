package config

import (
	"fmt"
	"os"
	"time"

	"staybook-backend/internal/utils"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Policy    PolicyConfig    `yaml:"policy"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "memory"
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	User                   string `yaml:"user"`
	Password               string `yaml:"password"`
	Database               string `yaml:"database"`
	SSLMode                string `yaml:"ssl_mode"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `yaml:"auto_migrate"`
}

// JWTConfig holds the secret used to verify staff tokens
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// PolicyConfig contains the booking rules and transaction budgets
type PolicyConfig struct {
	MinimumStayHours    int    `yaml:"minimum_stay_hours"`
	TaxRate             string `yaml:"tax_rate"`
	TaxRoundPlaces      int32  `yaml:"tax_round_places"`
	MaxDiscountRatio    string `yaml:"max_discount_ratio"`
	EarlyFloorRatio     string `yaml:"early_floor_ratio"`
	Timezone            string `yaml:"timezone"`
	LockWaitMs          int    `yaml:"lock_wait_ms"`
	TxTimeoutMs         int    `yaml:"tx_timeout_ms"`
	ReservationPrefix   string `yaml:"reservation_prefix"`
	ReservationDigits   int    `yaml:"reservation_digits"`
	ReferenceCodeLength int    `yaml:"reference_code_length"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ReleaseStalePending string `yaml:"release_stale_pending"`
	SyncRoomOccupancy   string `yaml:"sync_room_occupancy"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes, applies env overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Policy
	if val := os.Getenv("POLICY_TAX_RATE"); val != "" {
		c.Policy.TaxRate = val
	}
	if val := os.Getenv("POLICY_TIMEZONE"); val != "" {
		c.Policy.Timezone = val
	}
}

// Validate checks the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
		if c.Database.MaxOpenConns == 0 {
			c.Database.MaxOpenConns = 25
		}
		if c.Database.MaxIdleConns == 0 {
			c.Database.MaxIdleConns = c.Database.MaxOpenConns
		}
		if c.Database.ConnMaxLifetimeMinutes == 0 {
			c.Database.ConnMaxLifetimeMinutes = 30
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	// JWT validation
	if c.JWT.Secret != "" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.Scheduler.ReleaseStalePending == "" {
		c.Scheduler.ReleaseStalePending = "0 5 0 * * *"
	}
	if c.Scheduler.SyncRoomOccupancy == "" {
		c.Scheduler.SyncRoomOccupancy = "0 */15 * * * *"
	}

	return c.Policy.applyDefaults()
}

func (p *PolicyConfig) applyDefaults() error {
	if p.MinimumStayHours == 0 {
		p.MinimumStayHours = 12
	}
	if p.MinimumStayHours < 0 {
		return fmt.Errorf("minimum stay must be positive: %d", p.MinimumStayHours)
	}
	if p.TaxRate == "" {
		p.TaxRate = "0.18"
	}
	if p.MaxDiscountRatio == "" {
		p.MaxDiscountRatio = "0.5"
	}
	if p.EarlyFloorRatio == "" {
		p.EarlyFloorRatio = "0.5"
	}
	for name, val := range map[string]string{"tax_rate": p.TaxRate, "max_discount_ratio": p.MaxDiscountRatio, "early_floor_ratio": p.EarlyFloorRatio} {
		d, err := decimal.NewFromString(val)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, val, err)
		}
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%s must be between 0 and 1: %s", name, val)
		}
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", p.Timezone, err)
	}
	if p.LockWaitMs == 0 {
		p.LockWaitMs = 3000
	}
	if p.TxTimeoutMs == 0 {
		p.TxTimeoutMs = 10000
	}
	if p.LockWaitMs < 0 || p.TxTimeoutMs < 0 {
		return fmt.Errorf("transaction budgets must be positive")
	}
	if p.ReservationPrefix == "" {
		p.ReservationPrefix = "RES"
	}
	if p.ReservationDigits == 0 {
		p.ReservationDigits = 6
	}
	if p.ReferenceCodeLength == 0 {
		p.ReferenceCodeLength = 8
	}
	if p.ReferenceCodeLength < 6 {
		return fmt.Errorf("reference code length must be at least 6: %d", p.ReferenceCodeLength)
	}
	return nil
}

// BookingPolicy converts the validated policy section into calculator rules.
func (c *Config) BookingPolicy() utils.Policy {
	loc, err := time.LoadLocation(c.Policy.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return utils.Policy{
		MinimumStay:      time.Duration(c.Policy.MinimumStayHours) * time.Hour,
		TaxRate:          decimal.RequireFromString(c.Policy.TaxRate),
		TaxRoundPlaces:   c.Policy.TaxRoundPlaces,
		MaxDiscountRatio: decimal.RequireFromString(c.Policy.MaxDiscountRatio),
		EarlyFloorRatio:  decimal.RequireFromString(c.Policy.EarlyFloorRatio),
		Location:         loc,
	}
}

func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Policy.LockWaitMs) * time.Millisecond
}

func (c *Config) TxTimeout() time.Duration {
	return time.Duration(c.Policy.TxTimeoutMs) * time.Millisecond
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address; empty when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
