package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

// fieldsOf returns the field names of errs in order.
func fieldsOf(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestConfig_Validate_Storage(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{"default is valid", func(*Config) {}, nil},
		{"memory backend", func(c *Config) { c.Storage.Backend = BackendMemory }, nil},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "tape" }, []string{"storage.backend"}},
		{"empty backend", func(c *Config) { c.Storage.Backend = "" }, []string{"storage.backend"}},
		{"null byte in dir", func(c *Config) { c.Storage.Dir = "data\x00" }, []string{"storage.dir"}},
		{"negative timeout", func(c *Config) { c.Storage.SaveTimeout = -time.Second }, []string{"storage.save_timeout"}},
		{"zero timeout disables", func(c *Config) { c.Storage.SaveTimeout = 0 }, nil},
		{"negative gc interval", func(c *Config) { c.Storage.Badger.GCInterval = -time.Minute }, []string{"storage.badger.gc_interval"}},
		{
			"gcs without bucket",
			func(c *Config) { c.Storage.Backend = BackendGCS },
			[]string{"storage.gcs.bucket"},
		},
		{
			"gcs with bad bucket",
			func(c *Config) {
				c.Storage.Backend = BackendGCS
				c.Storage.GCS.Bucket = "Karman_Space"
			},
			[]string{"storage.gcs.bucket"},
		},
		{
			"gcs with absolute prefix",
			func(c *Config) {
				c.Storage.Backend = BackendGCS
				c.Storage.GCS.Bucket = "karman-requests"
				c.Storage.GCS.Prefix = "/tracker"
			},
			[]string{"storage.gcs.prefix"},
		},
		{
			"gcs valid",
			func(c *Config) {
				c.Storage.Backend = BackendGCS
				c.Storage.GCS.Bucket = "karman-requests"
			},
			nil,
		},
		{
			"bucket ignored for other backends",
			func(c *Config) { c.Storage.GCS.Bucket = "NOT VALID" },
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			got := fieldsOf(cfg.Validate())
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Validate() fields = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate_Logging(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{"debug level", func(c *Config) { c.Logging.Level = "debug" }, nil},
		{"empty level", func(c *Config) { c.Logging.Level = "" }, nil},
		{"unknown level", func(c *Config) { c.Logging.Level = "trace" }, []string{"logging.level"}},
		{"uppercase level", func(c *Config) { c.Logging.Level = "INFO" }, []string{"logging.level"}},
		{"zero size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, []string{"logging.max_size_mb"}},
		{"huge size", func(c *Config) { c.Logging.MaxSizeMB = 5000 }, []string{"logging.max_size_mb"}},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, []string{"logging.max_backups"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			got := fieldsOf(cfg.Validate())
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Validate() fields = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate_DisplayAndTeams(t *testing.T) {
	teamsFile := filepath.Join(t.TempDir(), "teams.yaml")
	if err := os.WriteFile(teamsFile, []byte("- name: Avionics\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{"no width limit", func(c *Config) { c.Display.DetailsWidth = 0 }, nil},
		{"narrow width", func(c *Config) { c.Display.DetailsWidth = 10 }, []string{"display.details_width"}},
		{"wide width", func(c *Config) { c.Display.DetailsWidth = 80 }, nil},
		{"named team", func(c *Config) { c.Team = "Avionics" }, nil},
		{"blank team", func(c *Config) { c.Team = "   " }, []string{"team"}},
		{"existing teams file", func(c *Config) { c.Teams.File = teamsFile }, nil},
		{"missing teams file", func(c *Config) { c.Teams.File = teamsFile + ".missing" }, []string{"teams.file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			got := fieldsOf(cfg.Validate())
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Validate() fields = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "tape"
	cfg.Logging.Level = "loud"
	cfg.Display.DetailsWidth = 1

	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Fatalf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
	if !strings.Contains(ValidationErrors(errs).Error(), "3 validation errors") {
		t.Errorf("combined message = %q", ValidationErrors(errs).Error())
	}
}
