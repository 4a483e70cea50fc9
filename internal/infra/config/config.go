// Package config provides Viper-based configuration for quietly
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	OTel     OTelConfig     `mapstructure:"otel"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// DatabaseConfig selects and configures the storage engine
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password_file"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	MaxConns     int    `mapstructure:"max_conns"`
	MinConns     int    `mapstructure:"min_conns"`
}

// RedisConfig configures the distributed run lock. An empty URL disables it.
type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// PipelineConfig contains batch job settings
type PipelineConfig struct {
	EnrichDays       int           `mapstructure:"enrich_days"`
	AggregateDays    int           `mapstructure:"aggregate_days"`
	MinSignals       int           `mapstructure:"min_signals"`
	NotableThreshold float64       `mapstructure:"notable_threshold"`
	Schedule         string        `mapstructure:"schedule"`
	ReportCacheSize  int           `mapstructure:"report_cache_size"`
	ReportCacheTTL   time.Duration `mapstructure:"report_cache_ttl"`
}

// RulesConfig points at the JSON fallback files for topics, bias rules and feeds
type RulesConfig struct {
	Dir string `mapstructure:"dir"`
}

// IngestConfig contains feed fetching settings
type IngestConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// OTelConfig contains OpenTelemetry export settings
type OTelConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Endpoint       string  `mapstructure:"endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	Environment    string  `mapstructure:"environment"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// Load reads configuration from file and environment variables.
// Environment keys use the QUIETLY_ prefix, e.g. QUIETLY_DATABASE_HOST.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("quietly")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/quietly")
	}

	v.SetEnvPrefix("QUIETLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Database.PasswordFile != "" {
		secret, err := os.ReadFile(cfg.Database.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("reading database password file: %w", err)
		}
		cfg.Database.Password = strings.TrimSpace(string(secret))
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "9010")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "quietly")
	v.SetDefault("database.password", "")
	v.SetDefault("database.password_file", "")
	v.SetDefault("database.name", "quietly")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "quietly.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.lock_ttl", 30*time.Minute)

	v.SetDefault("pipeline.enrich_days", 7)
	v.SetDefault("pipeline.aggregate_days", 7)
	v.SetDefault("pipeline.min_signals", 2)
	v.SetDefault("pipeline.notable_threshold", 5.0)
	v.SetDefault("pipeline.schedule", "0 0 */6 * * *")
	v.SetDefault("pipeline.report_cache_size", 64)
	v.SetDefault("pipeline.report_cache_ttl", 5*time.Minute)

	v.SetDefault("rules.dir", "config")

	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.request_timeout", 10*time.Second)
	v.SetDefault("ingest.user_agent", "QuietlyStated/1.0")

	v.SetDefault("logging.level", "info")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "http://localhost:4318")
	v.SetDefault("otel.service_name", "quietly-stated")
	v.SetDefault("otel.service_version", "0.0.0")
	v.SetDefault("otel.environment", "development")
	v.SetDefault("otel.sample_ratio", 0.1)
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite)", cfg.Database.Driver)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port must be set")
	}
	if cfg.Server.RateLimitRPS < 0 || cfg.Server.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	if cfg.Pipeline.MinSignals < 1 {
		return fmt.Errorf("pipeline min_signals must be at least 1, got %d", cfg.Pipeline.MinSignals)
	}
	if cfg.Pipeline.EnrichDays < 0 || cfg.Pipeline.AggregateDays < 0 {
		return fmt.Errorf("pipeline day windows must not be negative")
	}
	if cfg.Ingest.Concurrency < 1 {
		return fmt.Errorf("ingest concurrency must be at least 1, got %d", cfg.Ingest.Concurrency)
	}
	if cfg.OTel.SampleRatio < 0 || cfg.OTel.SampleRatio > 1 {
		return fmt.Errorf("otel sample_ratio must be within [0, 1], got %v", cfg.OTel.SampleRatio)
	}
	return nil
}

// DSN builds the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Name, d.SSLMode)
}
