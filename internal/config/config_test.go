package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const baseConfigYAML = `
server:
  port: "8080"
  session_secret: "test-secret"
  log_level: "info"
database:
  url: "postgres://localhost:5432/practice_test?sslmode=disable"
practice:
  reference_timezone: "UTC"
  daily_bank_size: 10
  full_xp: 30
  full_gems: 50
open_telemetry:
  service_name: "practice-backend"
  enable_tracing: false
  enable_metrics: false
`

func TestNewConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, baseConfigYAML)
	t.Setenv("PRACTICE_CONFIG_FILE", path)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost:5432/practice_test?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 10, cfg.Practice.DailyBankSize)
	assert.Equal(t, 30, cfg.Practice.FullXP)
	assert.Equal(t, 50, cfg.Practice.FullGems)
	assert.Equal(t, "practice-backend", cfg.OpenTelemetry.ServiceName)
}

func TestNewConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "8080"
database:
  url: "postgres://localhost/practice"
`)
	t.Setenv("PRACTICE_CONFIG_FILE", path)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultDailyBankSize, cfg.Practice.DailyBankSize)
	assert.Equal(t, DefaultFullXP, cfg.Practice.FullXP)
	assert.Equal(t, DefaultFullGems, cfg.Practice.FullGems)
	assert.Equal(t, DefaultMaxHearts, cfg.Practice.MaxHearts)
	assert.Equal(t, DefaultHeartRefillInterval, cfg.Practice.HeartRefillInterval)
	// The review set is uncapped unless an operator configures a limit.
	assert.Equal(t, 0, cfg.Practice.ReviewSetSize)
	assert.Equal(t, WorkerSweepInterval, cfg.Worker.Interval)
	assert.Equal(t, DatabaseConnMaxLifetime, cfg.Database.ConnMaxLifetime)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	path := writeConfigFile(t, baseConfigYAML)
	t.Setenv("PRACTICE_CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://override:5432/practice")
	t.Setenv("PRACTICE_DAILY_BANK_SIZE", "5")
	t.Setenv("PRACTICE_HEART_REFILL_INTERVAL", "2h")
	t.Setenv("SERVER_CORS_ORIGINS", "http://a.example,http://b.example")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgres://override:5432/practice", cfg.Database.URL)
	assert.Equal(t, 5, cfg.Practice.DailyBankSize)
	assert.Equal(t, 2*time.Hour, cfg.Practice.HeartRefillInterval)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
}

func TestNewConfigMissingFile(t *testing.T) {
	t.Setenv("PRACTICE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := NewConfig()
	require.Error(t, err)
}

func TestReferenceLocation(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, time.UTC, cfg.ReferenceLocation())

	cfg.Practice.ReferenceTimezone = "America/New_York"
	loc := cfg.ReferenceLocation()
	require.NotNil(t, loc)
	assert.Equal(t, "America/New_York", loc.String())

	cfg.Practice.ReferenceTimezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.ReferenceLocation())
}
