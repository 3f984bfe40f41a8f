package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rentdesk/internal/calendar"
	"rentdesk/internal/fsutil"
	appLog "rentdesk/internal/log"
)

// AppDirName is the per-application directory under the user config dir.
const AppDirName = "RentDesk"

// FeedConfig describes one ICS subscription imported into a rental object.
type FeedConfig struct {
	// ID tags the imported ranges so a refresh can replace them.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS endpoint (Airbnb, Booking.com, Google export, ...).
	URL string `yaml:"url" json:"url"`
	// ObjectID is the rental object receiving the bookings.
	ObjectID string `yaml:"object_id" json:"object_id"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for `rentdesk serve`.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone booking days are anchored in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first column of calendar grids ("monday", "sunday", ...).
	WeekStart string `yaml:"week_start" json:"week_start"`

	// DataDir holds every file below unless a path is set explicitly.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Optional overrides. Left empty they follow DataDir; see the path
	// accessors below.
	SnippetsFile string `yaml:"snippets_file,omitempty" json:"snippets_file,omitempty"`
	StateFile    string `yaml:"state_file,omitempty" json:"state_file,omitempty"`
	PhotosDir    string `yaml:"photos_dir,omitempty" json:"photos_dir,omitempty"`
	FeedCacheDir string `yaml:"feed_cache_dir,omitempty" json:"feed_cache_dir,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is the cron schedule for re-importing feeds in serve mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays bounds how far ahead recurring feed events are expanded.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultDataDir is <user config dir>/RentDesk, falling back to ./data.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, AppDirName)
}

// DefaultPath is the config file location used when none is given.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Asia/Bangkok",
		WeekStart:   "monday",
		DataDir:     DefaultDataDir(),
		LogLevel:    "info",
		RefreshCron: "*/30 * * * *",
		HorizonDays: 365,
		Feeds:       []FeedConfig{},
		CORSOrigins: []string{},
	}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Bangkok"
	}
	if _, err := calendar.ParseWeekday(c.WeekStart); err != nil {
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	c.WeekStart = strings.ToLower(c.WeekStart)

	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/30 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 365
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		if c.Feeds[i].ID == "" {
			c.Feeds[i].ID = c.Feeds[i].Name
		}
		if c.Feeds[i].ID == "" {
			c.Feeds[i].ID = c.Feeds[i].URL
		}
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
}

func (c *Config) dataPath(override, name string) string {
	if override != "" {
		return override
	}
	return filepath.Join(c.DataDir, name)
}

// SnippetsPath is the snippet file: SnippetsFile, or snippets.json in DataDir.
func (c *Config) SnippetsPath() string { return c.dataPath(c.SnippetsFile, "snippets.json") }

// StatePath is the object state file: StateFile, or state.json in DataDir.
func (c *Config) StatePath() string { return c.dataPath(c.StateFile, "state.json") }

// PhotosPath is the photo directory: PhotosDir, or Photos in DataDir.
func (c *Config) PhotosPath() string { return c.dataPath(c.PhotosDir, "Photos") }

// FeedCachePath is the ICS cache directory: FeedCacheDir, or feed-cache in DataDir.
func (c *Config) FeedCachePath() string { return c.dataPath(c.FeedCacheDir, "feed-cache") }

// Location resolves Timezone, falling back to time.Local on error.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// FirstWeekday resolves WeekStart.
func (c *Config) FirstWeekday() time.Weekday {
	wd, err := calendar.ParseWeekday(c.WeekStart)
	if err != nil {
		return time.Monday
	}
	return wd
}

// Calendar builds the grid conventions from Timezone and WeekStart.
func (c *Config) Calendar() calendar.Calendar {
	return calendar.New(c.Location(), c.FirstWeekday())
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
			appLog.Info("wrote default config", "path", path)
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

// Save writes cfg to path as YAML, atomically and with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o600)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
