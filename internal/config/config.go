// Package config handles application configuration loading from YAML files
// with environment variable overrides.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "practiceapp/internal/utils"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Practice scheduling and reward configuration
	Practice PracticeConfig `json:"practice" yaml:"practice"`

	// Worker configuration
	Worker WorkerConfig `json:"worker" yaml:"worker"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port          string   `json:"port" yaml:"port"`
	AdminUsername string   `json:"admin_username" yaml:"admin_username"`
	AdminPassword string   `json:"admin_password" yaml:"admin_password"`
	SessionSecret string   `json:"session_secret" yaml:"session_secret"`
	Debug         bool     `json:"debug" yaml:"debug"`
	LogLevel      string   `json:"log_level" yaml:"log_level"`
	AppBaseURL    string   `json:"app_base_url" yaml:"app_base_url"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// PracticeConfig represents practice scheduling and reward configuration
type PracticeConfig struct {
	// ReferenceTimezone is the IANA timezone used for day-key calendar math.
	// Every "today" decision in the scheduler is made in this zone.
	ReferenceTimezone string `json:"reference_timezone" yaml:"reference_timezone"`
	// DailyBankSize is the number of questions assigned per practice day.
	DailyBankSize int `json:"daily_bank_size" yaml:"daily_bank_size"`
	// FullXP and FullGems are the default rewards for a perfect session,
	// overridable per deployment through the game_settings table.
	FullXP   int `json:"full_xp" yaml:"full_xp"`
	FullGems int `json:"full_gems" yaml:"full_gems"`
	// MaxHearts is the heart ceiling; HeartRefillInterval is how long one
	// heart takes to regenerate.
	MaxHearts           int           `json:"max_hearts" yaml:"max_hearts"`
	HeartRefillInterval time.Duration `json:"heart_refill_interval" yaml:"heart_refill_interval"`
	// ReviewSetSize optionally caps the shuffled mistake review set.
	// Zero, the default, returns every qualifying item.
	ReviewSetSize int `json:"review_set_size" yaml:"review_set_size"`
}

// WorkerConfig represents the background pre-provisioner configuration
type WorkerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Interval between provisioning sweeps.
	Interval time.Duration `json:"interval" yaml:"interval"`
	// HorizonDays controls how many days ahead sessions are pre-provisioned
	// (0 = today only).
	HorizonDays int `json:"horizon_days" yaml:"horizon_days"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "http://localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "practice-backend" or "practice-worker"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`   // Default: true
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`       // Prefer the auto-instrumentation SDK tracer provider
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`   // Default: true
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`   // Default: true
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"`     // Default: 1.0 (100%)
}

// ReferenceLocation resolves the configured reference timezone, falling back
// to UTC when unset or invalid.
func (c *Config) ReferenceLocation() *time.Location {
	if c.Practice.ReferenceTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Practice.ReferenceTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewConfig loads configuration from a YAML file first, then overrides with
// environment variables.
func NewConfig() (*Config, error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.applyDefaults()
	config.overrideFromEnv()

	return config, nil
}

// applyDefaults fills zero values that have sensible defaults
func (c *Config) applyDefaults() {
	if c.Practice.DailyBankSize <= 0 {
		c.Practice.DailyBankSize = DefaultDailyBankSize
	}
	if c.Practice.FullXP <= 0 {
		c.Practice.FullXP = DefaultFullXP
	}
	if c.Practice.FullGems <= 0 {
		c.Practice.FullGems = DefaultFullGems
	}
	if c.Practice.MaxHearts <= 0 {
		c.Practice.MaxHearts = DefaultMaxHearts
	}
	if c.Practice.HeartRefillInterval <= 0 {
		c.Practice.HeartRefillInterval = DefaultHeartRefillInterval
	}
	if c.Worker.Interval <= 0 {
		c.Worker.Interval = WorkerSweepInterval
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		// Get the yaml tag for the field
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		// Convert yaml tag to environment variable name
		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				// time.Duration fields accept duration syntax like "4h"
				if field.Type() == reflect.TypeOf(time.Duration(0)) {
					if d, err := time.ParseDuration(envVal); err == nil {
						field.SetInt(int64(d))
					}
					continue
				}
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if uintVal, err := strconv.ParseUint(envVal, 10, 64); err == nil {
					field.SetUint(uintVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Handle string slices (like CORS_ORIGINS)
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			// Recursively process nested structs with the field name as prefix
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file with potential local overrides
func loadConfigWithOverrides() (*Config, error) {
	if envPath := os.Getenv("PRACTICE_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	return loadConfigFromFile("config.yaml")
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
