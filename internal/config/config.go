package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete tracker configuration
type Config struct {
	// Team is the session team used by commands that act "as" a team
	// (display sent/pending, default requester). Empty means ask.
	Team          string              `mapstructure:"team"`
	Teams         TeamsConfig         `mapstructure:"teams"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Display       DisplayConfig       `mapstructure:"display"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// TeamsConfig controls where the team directory comes from
type TeamsConfig struct {
	// File is a YAML team directory. Empty uses the built-in teams.
	File string `mapstructure:"file"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	// Backend is one of "file", "badger", "gcs" or "memory" (default: "file")
	Backend string `mapstructure:"backend"`
	// Dir is the data directory for the file backend and the default
	// location of the badger database. Empty means DataDir().
	Dir string `mapstructure:"dir"`
	// SaveTimeout bounds each load or save call (default: 10s, 0 = no limit)
	SaveTimeout time.Duration `mapstructure:"save_timeout"`
	Badger      BadgerConfig  `mapstructure:"badger"`
	GCS         GCSConfig     `mapstructure:"gcs"`
}

// BadgerConfig controls the embedded badger backend
type BadgerConfig struct {
	// Path is the database directory. Empty means <storage dir>/badger.
	Path string `mapstructure:"path"`
	// SyncWrites fsyncs every write (default: true)
	SyncWrites bool `mapstructure:"sync_writes"`
	// GCInterval is how often value log GC runs (default: 5m, 0 = disabled)
	GCInterval time.Duration `mapstructure:"gc_interval"`
}

// GCSConfig controls the Google Cloud Storage backend
type GCSConfig struct {
	Bucket  string `mapstructure:"bucket"`
	Project string `mapstructure:"project"`
	// Prefix is prepended to every object name (default: "tracker")
	Prefix string `mapstructure:"prefix"`
	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug.log is written (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the size at which debug.log rotates (default: 5)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files kept (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated files (default: false)
	Compress bool `mapstructure:"compress"`
}

// DisplayConfig controls CLI output
type DisplayConfig struct {
	// Color enables styled output when stdout is a terminal (default: true)
	Color bool `mapstructure:"color"`
	// DetailsWidth truncates request details in listings (default: 0 = no limit, min: 20)
	DetailsWidth int `mapstructure:"details_width"`
}

// NotificationsConfig controls the resolution notice outbox
type NotificationsConfig struct {
	// Enabled records a notice for the affected teams when a request is solved (default: true)
	Enabled bool `mapstructure:"enabled"`
}

// Storage backend names.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// ValidBackends returns the list of valid storage backends
func ValidBackends() []string {
	return []string{BackendFile, BackendBadger, BackendGCS, BackendMemory}
}

// IsValidBackend reports whether name is a known storage backend
func IsValidBackend(name string) bool {
	return slices.Contains(ValidBackends(), name)
}

// ResolveDir returns the absolute data directory, expanding a leading "~".
func (s *StorageConfig) ResolveDir() string {
	if s.Dir == "" {
		return DataDir()
	}
	return expandHome(s.Dir)
}

// ResolveBadgerPath returns the badger database directory.
func (s *StorageConfig) ResolveBadgerPath() string {
	if s.Badger.Path == "" {
		return filepath.Join(s.ResolveDir(), "badger")
	}
	return expandHome(s.Badger.Path)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Team: "",
		Teams: TeamsConfig{
			File: "",
		},
		Storage: StorageConfig{
			Backend:     BackendFile,
			Dir:         "", // Empty means DataDir()
			SaveTimeout: 10 * time.Second,
			Badger: BadgerConfig{
				Path:       "",
				SyncWrites: true,
				GCInterval: 5 * time.Minute,
			},
			GCS: GCSConfig{
				Prefix: "tracker",
			},
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 3,
			Compress:   false,
		},
		Display: DisplayConfig{
			Color:        true,
			DetailsWidth: 0,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("team", defaults.Team)
	viper.SetDefault("teams.file", defaults.Teams.File)

	viper.SetDefault("storage.backend", defaults.Storage.Backend)
	viper.SetDefault("storage.dir", defaults.Storage.Dir)
	viper.SetDefault("storage.save_timeout", defaults.Storage.SaveTimeout)
	viper.SetDefault("storage.badger.path", defaults.Storage.Badger.Path)
	viper.SetDefault("storage.badger.sync_writes", defaults.Storage.Badger.SyncWrites)
	viper.SetDefault("storage.badger.gc_interval", defaults.Storage.Badger.GCInterval)
	viper.SetDefault("storage.gcs.bucket", defaults.Storage.GCS.Bucket)
	viper.SetDefault("storage.gcs.project", defaults.Storage.GCS.Project)
	viper.SetDefault("storage.gcs.prefix", defaults.Storage.GCS.Prefix)
	viper.SetDefault("storage.gcs.credentials_file", defaults.Storage.GCS.CredentialsFile)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	viper.SetDefault("display.color", defaults.Display.Color)
	viper.SetDefault("display.details_width", defaults.Display.DetailsWidth)

	viper.SetDefault("notifications.enabled", defaults.Notifications.Enabled)
}

// Load reads the configuration from viper into a Config struct and
// validates it. Returns ValidationErrors if any field is invalid.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the configuration directory path
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tracker")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tracker"
	}
	return filepath.Join(home, ".config", "tracker")
}

// ConfigFile returns the default config file path
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the default data directory for stored requests and logs
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tracker")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tracker", "data")
	}
	return filepath.Join(home, ".local", "share", "tracker")
}
