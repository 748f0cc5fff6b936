package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Data     DataConfig     `yaml:"data"`
	Sync     SyncConfig     `yaml:"sync"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Mixcloud MixcloudConfig `yaml:"mixcloud"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DataConfig holds paths for run locks and review dumps.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// SyncConfig holds the reconciliation pipeline settings.
type SyncConfig struct {
	FreshnessDays  int  `yaml:"freshness_days"`
	BatchSize      int  `yaml:"batch_size"`
	BatchDelayMS   int  `yaml:"batch_delay_ms"`
	SearchDelayMS  int  `yaml:"search_delay_ms"`
	IntervalHours  int  `yaml:"interval_hours"`
	ResolveOnCycle bool `yaml:"resolve_on_cycle"`
}

// FreshnessWindow returns the staleness cutoff window as a Duration.
func (s SyncConfig) FreshnessWindow() time.Duration {
	return time.Duration(s.FreshnessDays) * 24 * time.Hour
}

// BatchDelay returns the pause between fetch batches.
func (s SyncConfig) BatchDelay() time.Duration {
	return time.Duration(s.BatchDelayMS) * time.Millisecond
}

// SearchDelay returns the pause between identity searches.
func (s SyncConfig) SearchDelay() time.Duration {
	return time.Duration(s.SearchDelayMS) * time.Millisecond
}

// Interval returns the daemon cycle interval.
func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalHours) * time.Hour
}

// SpotifyConfig holds Spotify API credentials.
type SpotifyConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// MixcloudConfig holds Mixcloud settings. The public API needs no key.
type MixcloudConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "/data/backbeat.db",
		},
		Data: DataConfig{
			Dir: "/data",
		},
		Sync: SyncConfig{
			FreshnessDays: 5,
			BatchSize:     50,
			BatchDelayMS:  300,
			SearchDelayMS: 500,
			IntervalHours: 12,
		},
		Spotify:  SpotifyConfig{Enabled: true},
		Mixcloud: MixcloudConfig{Enabled: true},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("BB_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("BB_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("BB_FRESHNESS_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sync.FreshnessDays = n
		}
	}
	if v := os.Getenv("BB_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sync.BatchSize = n
		}
	}
	if v := os.Getenv("BB_SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("BB_SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("BB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BB_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data dir is required")
	}
	if c.Sync.FreshnessDays < 1 {
		return fmt.Errorf("freshness_days must be at least 1, got %d", c.Sync.FreshnessDays)
	}
	if c.Sync.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.Sync.BatchSize)
	}
	if c.Sync.BatchDelayMS < 0 || c.Sync.SearchDelayMS < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.Spotify.Enabled && (c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "") {
		return fmt.Errorf("spotify enabled but client_id/client_secret not configured")
	}
	return nil
}
