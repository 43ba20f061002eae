// Package config loads daystreak settings from a YAML file and the
// environment. Precedence is flag > env > file > default; flags are applied
// by the caller through Overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/daystreak/internal/calendar"
	"github.com/julianstephens/daystreak/internal/constants"
)

// Environment variables read by Load.
const (
	EnvDB          = "DAYSTREAK_DB"
	EnvTimezone    = "DAYSTREAK_TIMEZONE"
	EnvDebug       = "DAYSTREAK_DEBUG"
	EnvMetricsAddr = "DAYSTREAK_METRICS_ADDR"
)

type DaemonConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
	// ReconcileAt is the local HH:MM at which the daemon reconciles.
	ReconcileAt string `yaml:"reconcile_at"`
}

type Config struct {
	// Database is a SQLite path, a postgres:// URL, ":memory:" or "keyring".
	Database         string       `yaml:"database"`
	Timezone         string       `yaml:"timezone"`
	Debug            bool         `yaml:"debug"`
	LogDir           string       `yaml:"log_dir"`
	HeatmapDays      int          `yaml:"heatmap_days"`
	BatchConcurrency int          `yaml:"batch_concurrency"`
	Daemon           DaemonConfig `yaml:"daemon"`
}

// Overrides carries command-line values. Empty fields leave the loaded value alone.
type Overrides struct {
	Database string
	Debug    bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:         constants.DefaultConfigPath,
		Timezone:         "Local",
		HeatmapDays:      constants.DefaultHeatmapDays,
		BatchConcurrency: constants.DefaultBatchConcurrency,
		Daemon: DaemonConfig{
			MetricsAddr: constants.DefaultMetricsAddr,
			ReconcileAt: constants.DefaultReconcileAt,
		},
	}
}

// Load reads path (a missing file is not an error), applies environment
// overrides and then flag overrides, and validates the result.
func Load(path string, flags Overrides) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandHome(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := overrideFromEnv(&cfg); err != nil {
		return Config{}, err
	}

	if flags.Database != "" {
		cfg.Database = flags.Database
	}
	if flags.Debug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overrideFromEnv(cfg *Config) error {
	if db := os.Getenv(EnvDB); db != "" {
		cfg.Database = db
	}
	if tz := os.Getenv(EnvTimezone); tz != "" {
		cfg.Timezone = tz
	}
	if debug := os.Getenv(EnvDebug); debug != "" {
		v, err := strconv.ParseBool(debug)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvDebug, debug, err)
		}
		cfg.Debug = v
	}
	if addr := os.Getenv(EnvMetricsAddr); addr != "" {
		cfg.Daemon.MetricsAddr = addr
	}
	return nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return errors.New("database must not be empty")
	}
	if _, err := calendar.LoadLocation(c.Timezone); err != nil {
		return err
	}
	if c.HeatmapDays < 1 {
		return fmt.Errorf("heatmap_days must be at least 1, got %d", c.HeatmapDays)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("batch_concurrency must be at least 1, got %d", c.BatchConcurrency)
	}
	if _, err := time.Parse(constants.TimeFormat, c.Daemon.ReconcileAt); err != nil {
		return fmt.Errorf("invalid daemon.reconcile_at %q (expected HH:MM)", c.Daemon.ReconcileAt)
	}
	return nil
}

// Clock returns a system clock in the configured timezone.
func (c Config) Clock() (calendar.SystemClock, error) {
	return calendar.NewSystemClock(c.Timezone)
}

// ConfigDir is the directory holding the SQLite database, logs and backups.
// Non-file databases fall back to the default location.
func (c Config) ConfigDir() string {
	if c.IsPostgres() || c.Database == constants.MemoryConfig || c.Database == constants.KeyringConfig {
		return filepath.Dir(ExpandHome(constants.DefaultConfigPath))
	}
	return filepath.Dir(ExpandHome(c.Database))
}

// IsPostgres reports whether Database names a PostgreSQL server.
func (c Config) IsPostgres() bool {
	return IsPostgresConnString(c.Database)
}

// IsPostgresConnString recognizes URL and key=value connection strings.
func IsPostgresConnString(s string) bool {
	return strings.HasPrefix(s, "postgres://") ||
		strings.HasPrefix(s, "postgresql://") ||
		strings.Contains(s, "host=")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
