// Package config defines process configuration and how it is layered from
// defaults, an optional YAML file and COGNIZ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// DBPath overrides the SQLite database location. Empty uses the XDG default.
	DBPath string `koanf:"db_path"`

	// CatalogPath points at a YAML skill catalog. Empty uses the built-in catalog.
	CatalogPath string `koanf:"catalog_path"`

	// Addr is the HTTP listen address for `cogniz serve`.
	Addr string `koanf:"addr"`

	// SnapshotDelay is the debounce window for in-progress session snapshots.
	SnapshotDelay time.Duration `koanf:"snapshot_delay"`

	// HistoryLimit caps the session history index.
	HistoryLimit int `koanf:"history_limit"`

	// RecentWindow excludes games played within this window from plans.
	RecentWindow time.Duration `koanf:"recent_window"`

	// FatigueThreshold is the number of sessions per day above which plans
	// favour low-intensity games.
	FatigueThreshold int `koanf:"fatigue_threshold"`

	// FocusShare is the fraction of plan time spent on the weakest skills.
	FocusShare float64 `koanf:"focus_share"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":8420",
		SnapshotDelay:    time.Second,
		HistoryLimit:     100,
		RecentWindow:     7 * 24 * time.Hour,
		FatigueThreshold: 3,
		FocusShare:       0.6,
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SnapshotDelay < 0:
		return fmt.Errorf("%w: snapshot_delay must be >= 0, got %s", ErrInvalidConfig, c.SnapshotDelay)
	case c.HistoryLimit <= 0:
		return fmt.Errorf("%w: history_limit must be > 0, got %d", ErrInvalidConfig, c.HistoryLimit)
	case c.RecentWindow < 0:
		return fmt.Errorf("%w: recent_window must be >= 0, got %s", ErrInvalidConfig, c.RecentWindow)
	case c.FatigueThreshold < 0:
		return fmt.Errorf("%w: fatigue_threshold must be >= 0, got %d", ErrInvalidConfig, c.FatigueThreshold)
	case c.FocusShare < 0 || c.FocusShare > 1:
		return fmt.Errorf("%w: focus_share must be in [0, 1], got %v", ErrInvalidConfig, c.FocusShare)
	}
	return nil
}
