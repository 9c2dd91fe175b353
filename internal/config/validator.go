package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "storage.backend")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// bucketNameRegex follows the GCS bucket naming rules for plain (non-domain) names
var bucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{1,61}[a-z0-9]$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTeams()...)
	errors = append(errors, c.validateStorage()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateDisplay()...)

	return errors
}

// validateTeams validates the session team and team directory file
func (c *Config) validateTeams() []ValidationError {
	var errors []ValidationError

	if c.Team != "" && strings.TrimSpace(c.Team) == "" {
		errors = append(errors, ValidationError{
			Field:   "team",
			Value:   c.Team,
			Message: "must not be blank",
		})
	}

	if c.Teams.File != "" {
		if _, err := os.Stat(expandHome(c.Teams.File)); err != nil {
			errors = append(errors, ValidationError{
				Field:   "teams.file",
				Value:   c.Teams.File,
				Message: "file is not readable",
			})
		}
	}

	return errors
}

// validateStorage validates the StorageConfig
func (c *Config) validateStorage() []ValidationError {
	var errors []ValidationError

	s := c.Storage
	if !IsValidBackend(s.Backend) {
		errors = append(errors, ValidationError{
			Field:   "storage.backend",
			Value:   s.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBackends(), ", ")),
		})
	}

	if strings.ContainsRune(s.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "storage.dir",
			Value:   s.Dir,
			Message: "path contains invalid null character",
		})
	}

	if s.SaveTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "storage.save_timeout",
			Value:   s.SaveTimeout,
			Message: "must be non-negative",
		})
	}

	if s.Badger.GCInterval < 0 {
		errors = append(errors, ValidationError{
			Field:   "storage.badger.gc_interval",
			Value:   s.Badger.GCInterval,
			Message: "must be non-negative",
		})
	}

	// Bucket settings only matter when the gcs backend is selected
	if s.Backend == BackendGCS {
		if s.GCS.Bucket == "" {
			errors = append(errors, ValidationError{
				Field:   "storage.gcs.bucket",
				Value:   s.GCS.Bucket,
				Message: "is required for the gcs backend",
			})
		} else if !bucketNameRegex.MatchString(s.GCS.Bucket) {
			errors = append(errors, ValidationError{
				Field:   "storage.gcs.bucket",
				Value:   s.GCS.Bucket,
				Message: "must be 3-63 lowercase letters, digits, '-', '_' or '.'",
			})
		}
		if strings.HasPrefix(s.GCS.Prefix, "/") {
			errors = append(errors, ValidationError{
				Field:   "storage.gcs.prefix",
				Value:   s.GCS.Prefix,
				Message: "must not start with '/'",
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateDisplay validates the DisplayConfig
func (c *Config) validateDisplay() []ValidationError {
	var errors []ValidationError

	const minDetailsWidth = 20
	if c.Display.DetailsWidth != 0 && c.Display.DetailsWidth < minDetailsWidth {
		errors = append(errors, ValidationError{
			Field:   "display.details_width",
			Value:   c.Display.DetailsWidth,
			Message: fmt.Sprintf("must be 0 (no limit) or at least %d", minDetailsWidth),
		})
	}

	return errors
}
