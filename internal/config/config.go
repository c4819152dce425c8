// Package config loads the service configuration from a YAML file with
// environment overrides. Environment variables win over file values; .env
// files are loaded first without overriding the process environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StorageMode selects the object store backend.
type StorageMode string

const (
	StorageModeS3    StorageMode = "s3"
	StorageModeLocal StorageMode = "local"
	StorageModeMock  StorageMode = "mock"
)

// Config is the top-level service configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	NATS    NATSConfig    `yaml:"nats"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Retry   RetryConfig   `yaml:"retry"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig configures the object store and layout roots.
type StorageConfig struct {
	Mode      StorageMode `yaml:"mode"`
	Bucket    string      `yaml:"bucket"`
	BasePath  string      `yaml:"base_path"`
	AWSRegion string      `yaml:"aws_region"`
	LocalRoot string      `yaml:"local_root"`
}

// NATSConfig configures the upload-event consumer.
type NATSConfig struct {
	URL      string `yaml:"url"`
	Stream   string `yaml:"stream"`
	Subject  string `yaml:"subject"`
	Consumer string `yaml:"consumer"`
}

// DaemonConfig configures the long-running service.
type DaemonConfig struct {
	InboxDir      string `yaml:"inbox_dir"`
	SweepSchedule string `yaml:"sweep_schedule"`
	MetricsAddr   string `yaml:"metrics_addr"`
}

// RetryConfig tunes backoff for transient store and consumer failures.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff,omitempty"`       // fixed|linear|exponential (default linear)
	InitialDelay string           `yaml:"initial_delay,omitempty"` // duration string (default 1s)
	MaxDelay     string           `yaml:"max_delay,omitempty"`     // cap for growth (default 30s)
	MaxRetries   int              `yaml:"max_retries,omitempty"`   // retry attempts after the first failure (default 2)
}

// LoggingConfig configures slog output and the rotated daemon log file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the configuration used when no file and no overrides exist.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Mode:      StorageModeLocal,
			BasePath:  "parquet-data",
			AWSRegion: "us-east-1",
			LocalRoot: "./data",
		},
		NATS: NATSConfig{
			URL:      "nats://localhost:4222",
			Stream:   "UPLOADS",
			Subject:  "uploads.borelog",
			Consumer: "borevault-worker",
		},
		Daemon: DaemonConfig{
			SweepSchedule: "0 3 * * *",
			MetricsAddr:   ":9402",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env then .env.local; existing process env wins.
func loadEnvFiles() {
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STORAGE_MODE"); v != "" {
		cfg.Storage.Mode = StorageMode(strings.ToLower(v))
	}
	if v := os.Getenv("S3_BUCKET_NAME"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("PARQUET_BASE_PATH"); v != "" {
		cfg.Storage.BasePath = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
	}
	if v := os.Getenv("LOCAL_STORAGE_ROOT"); v != "" {
		cfg.Storage.LocalRoot = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_SUBJECT"); v != "" {
		cfg.NATS.Subject = v
	}
	if v := os.Getenv("INBOX_DIR"); v != "" {
		cfg.Daemon.InboxDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Mode {
	case StorageModeS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage.mode is s3")
		}
	case StorageModeLocal:
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("storage.local_root is required when storage.mode is local")
		}
	case StorageModeMock:
	default:
		return fmt.Errorf("unknown storage.mode %q (want s3, local, or mock)", c.Storage.Mode)
	}
	if c.Storage.BasePath == "" {
		return fmt.Errorf("storage.base_path must not be empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}
