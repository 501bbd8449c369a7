package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Events    EventsConfig    `yaml:"events"`
	Collector CollectorConfig `yaml:"collector"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type EventsConfig struct {
	URL string `yaml:"url"`
}

type CollectorConfig struct {
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type ScoringConfig struct {
	DefaultProfile     string   `yaml:"default_profile"`
	ProfileFiles       []string `yaml:"profile_files"`
	Workers            int      `yaml:"workers"`
	MaxSnapshotAgeDays int      `yaml:"max_snapshot_age_days"`

	// Scheduled refresh from the collector. Disabled when the interval is 0.
	RefreshIntervalMs int    `yaml:"refresh_interval_ms"`
	RefreshPeriod     string `yaml:"refresh_period"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) CollectorTimeout() time.Duration {
	return time.Duration(c.Collector.TimeoutMs) * time.Millisecond
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Scoring.RefreshIntervalMs) * time.Millisecond
}

// Load builds the configuration from defaults, the optional YAML file at path, an optional
// .env file and SOLVENCY_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Events: EventsConfig{
			URL: "nats://localhost:4222",
		},
		Collector: CollectorConfig{
			URL:       "http://localhost:8710",
			TimeoutMs: 30000,
		},
		Scoring: ScoringConfig{
			DefaultProfile: scoring.DefaultProfileVersion,
			Workers:        8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	_ = godotenv.Load() // a missing .env is fine
	applyEnv(cfg)

	if cfg.Scoring.Workers < 1 {
		return nil, fmt.Errorf("scoring.workers must be at least 1, got %d", cfg.Scoring.Workers)
	}
	if cfg.Scoring.RefreshIntervalMs < 0 {
		return nil, fmt.Errorf("scoring.refresh_interval_ms must not be negative")
	}
	if cfg.Scoring.MaxSnapshotAgeDays < 0 {
		return nil, fmt.Errorf("scoring.max_snapshot_age_days must not be negative")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SOLVENCY_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("SOLVENCY_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("SOLVENCY_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("SOLVENCY_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("SOLVENCY_NATS_URL"); v != "" {
		cfg.Events.URL = v
	}
	if v := os.Getenv("SOLVENCY_COLLECTOR_URL"); v != "" {
		cfg.Collector.URL = v
	}
	if v := os.Getenv("SOLVENCY_COLLECTOR_TOKEN"); v != "" {
		cfg.Collector.Token = v
	}
	if v := os.Getenv("SOLVENCY_COLLECTOR_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Collector.TimeoutMs = n
		}
	}
	if v := os.Getenv("SOLVENCY_DEFAULT_PROFILE"); v != "" {
		cfg.Scoring.DefaultProfile = v
	}
	if v := os.Getenv("SOLVENCY_PROFILE_FILES"); v != "" {
		cfg.Scoring.ProfileFiles = splitList(v)
	}
	if v := os.Getenv("SOLVENCY_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.Workers = n
		}
	}
	if v := os.Getenv("SOLVENCY_MAX_SNAPSHOT_AGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.MaxSnapshotAgeDays = n
		}
	}
	if v := os.Getenv("SOLVENCY_REFRESH_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.RefreshIntervalMs = n
		}
	}
	if v := os.Getenv("SOLVENCY_REFRESH_PERIOD"); v != "" {
		cfg.Scoring.RefreshPeriod = v
	}
	if v := os.Getenv("SOLVENCY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SOLVENCY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
