package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"timedash/internal/grid"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the dashboard UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as the display zone (e.g. "Europe/Bucharest").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in the calendar view. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// WindowStartHour / WindowEndHour bound the visible (and creatable) range
	// of hours on the week grid. Events outside the window are excluded from
	// layout, not deleted.
	WindowStartHour int `yaml:"window_start_hour" json:"window_start_hour"`
	WindowEndHour   int `yaml:"window_end_hour" json:"window_end_hour"`

	// HourPixels is the vertical scale of the week grid in pixels per hour.
	HourPixels int `yaml:"hour_pixels" json:"hour_pixels"`

	// SnapMinutes is the rounding granularity applied to drag-derived time
	// deltas.
	SnapMinutes int `yaml:"snap_minutes" json:"snap_minutes"`

	// MinBlockPx is the minimum rendered height of an event rectangle; resizes
	// that would shrink a block below it are rejected.
	MinBlockPx int `yaml:"min_block_px" json:"min_block_px"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *") for
	// periodic preview captures.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// DataDir is the directory backing the key-value store and the last
	// rendered preview.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		Timezone:        "Local",
		WeekStart:       "monday",
		WindowStartHour: 8,
		WindowEndHour:   21,
		HourPixels:      50,
		SnapMinutes:     15,
		MinBlockPx:      25,
		RefreshCron:     "*/15 * * * *",
		DataDir:         "./var/timedash",
		BasicAuth:       nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	// WeekStart default & validation.
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	case "":
		c.WeekStart = "monday"
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}

	if c.WindowStartHour <= 0 || c.WindowStartHour > 23 {
		c.WindowStartHour = 8
	}
	if c.WindowEndHour <= c.WindowStartHour || c.WindowEndHour > 24 {
		c.WindowEndHour = 21
	}
	if c.HourPixels <= 0 {
		c.HourPixels = 50
	}
	if c.SnapMinutes <= 0 {
		c.SnapMinutes = 15
	}
	if c.MinBlockPx <= 0 {
		c.MinBlockPx = 25
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.DataDir == "" {
		c.DataDir = "./var/timedash"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".timedash-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// GridMetrics returns the week grid geometry derived from the config.
func (c *Config) GridMetrics() grid.Metrics {
	return grid.Metrics{
		HourPixels:      c.HourPixels,
		WindowStartHour: c.WindowStartHour,
		WindowEndHour:   c.WindowEndHour,
	}
}

// WeekStartWeekday maps the configured week_start string onto a numeric
// weekday (0=Sunday, 1=Monday).
func (c *Config) WeekStartWeekday() int {
	if c.WeekStart == "sunday" {
		return 0
	}
	return 1
}
