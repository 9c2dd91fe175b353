package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/karmanspace/tracker/internal/config"
)

// configKeys lists the keys "config set" accepts and their value types.
var configKeys = map[string]string{
	"team":                         "string",
	"teams.file":                   "string",
	"storage.backend":              "string",
	"storage.dir":                  "string",
	"storage.save_timeout":         "duration",
	"storage.badger.path":          "string",
	"storage.badger.sync_writes":   "bool",
	"storage.badger.gc_interval":   "duration",
	"storage.gcs.bucket":           "string",
	"storage.gcs.project":          "string",
	"storage.gcs.prefix":           "string",
	"storage.gcs.credentials_file": "string",
	"logging.enabled":              "bool",
	"logging.level":                "string",
	"logging.max_size_mb":          "int",
	"logging.max_backups":          "int",
	"logging.compress":             "bool",
	"display.color":                "bool",
	"display.details_width":        "int",
	"notifications.enabled":        "bool",
}

func registerConfigCmd(parent *cobra.Command, env *environment) {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or modify tracker configuration",
		Long: `View or modify tracker configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
		RunE: runConfigShow,
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	}

	configSetCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  tracker config set team Avionics
  tracker config set storage.backend badger
  tracker config set storage.save_timeout 30s
  tracker config set display.details_width 120`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return configKeyNames(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: runConfigSet,
	}

	configInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default config file",
		Long:  `Create a default config file at ~/.config/tracker/config.yaml with all available options.`,
		RunE:  runConfigInit,
	}

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show the config file path",
		RunE:  runConfigPath,
	}

	configCmd.AddCommand(configShowCmd, configSetCmd, configInitCmd, configPathCmd)
	parent.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "team: %s\n", valueOrNone(cfg.Team))
	fmt.Fprintln(out, "teams:")
	fmt.Fprintf(out, "  file: %s\n", valueOrNone(cfg.Teams.File))

	fmt.Fprintln(out, "storage:")
	fmt.Fprintf(out, "  backend: %s\n", cfg.Storage.Backend)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Storage.ResolveDir())
	fmt.Fprintf(out, "  save_timeout: %s\n", cfg.Storage.SaveTimeout)
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		fmt.Fprintln(out, "  badger:")
		fmt.Fprintf(out, "    path: %s\n", cfg.Storage.ResolveBadgerPath())
		fmt.Fprintf(out, "    sync_writes: %v\n", cfg.Storage.Badger.SyncWrites)
		fmt.Fprintf(out, "    gc_interval: %s\n", cfg.Storage.Badger.GCInterval)
	case config.BackendGCS:
		fmt.Fprintln(out, "  gcs:")
		fmt.Fprintf(out, "    bucket: %s\n", cfg.Storage.GCS.Bucket)
		fmt.Fprintf(out, "    project: %s\n", valueOrNone(cfg.Storage.GCS.Project))
		fmt.Fprintf(out, "    prefix: %s\n", cfg.Storage.GCS.Prefix)
		fmt.Fprintf(out, "    credentials_file: %s\n", valueOrNone(cfg.Storage.GCS.CredentialsFile))
	}

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)
	fmt.Fprintf(out, "  compress: %v\n", cfg.Logging.Compress)

	fmt.Fprintln(out, "display:")
	fmt.Fprintf(out, "  color: %v\n", cfg.Display.Color)
	fmt.Fprintf(out, "  details_width: %d\n", cfg.Display.DetailsWidth)

	fmt.Fprintln(out, "notifications:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Notifications.Enabled)

	return nil
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'tracker config show' to see the current keys", key)
	}

	// Validate the value based on type
	var typedValue any
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = n
	case "duration":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected a duration such as 10s", key)
		}
		typedValue = d.String()
	}

	viper.Set(key, typedValue)

	// Reject values the configuration would not load with
	if _, err := loadConfig(); err != nil {
		return err
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const defaultConfigContent = `# Tracker Configuration

# Team you act as when none is given with --team
# team: Avionics

# Team directory. Empty uses the built-in Karman Space teams.
teams:
  file: ""

# Where requests are stored
storage:
  # Backend: file, badger, gcs or memory
  backend: file
  # Data directory (default: $XDG_DATA_HOME/tracker)
  dir: ""
  # Limit on each load or save
  save_timeout: 10s
  badger:
    # Database directory (default: <dir>/badger)
    path: ""
    sync_writes: true
    gc_interval: 5m
  gcs:
    bucket: ""
    project: ""
    prefix: tracker
    # Service account key; empty uses application default credentials
    credentials_file: ""

# Debug log (debug.log in the data directory)
logging:
  enabled: true
  # Minimum level: debug, info, warn, error
  level: info
  max_size_mb: 5
  max_backups: 3
  compress: false

display:
  color: true
  # Truncate long lines to this width (0 = no limit)
  details_width: 0

# Record a notice for the affected teams when a request is solved
notifications:
  enabled: true
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'tracker config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize the tracker.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nEnvironment variables: TRACKER_* (e.g., TRACKER_STORAGE_BACKEND)")
	fmt.Fprintf(out, "Data directory: %s\n", config.DataDir())
	return nil
}

// configKeyNames returns the settable keys in order, for completion.
func configKeyNames() []string {
	names := make([]string, 0, len(configKeys))
	for k := range configKeys {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
