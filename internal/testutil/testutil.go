// Package testutil provides helpers shared by the tracker's tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/karmanspace/tracker/internal/logging"
	"github.com/karmanspace/tracker/internal/store/blobstore"
)

// IsolateEnv points the config and data directories at fresh temporary
// directories and turns off color, so a test never reads or writes the
// user's files. It returns the config and data homes.
func IsolateEnv(t *testing.T) (configHome, dataHome string) {
	t.Helper()

	configHome = t.TempDir()
	dataHome = t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("NO_COLOR", "1")
	for _, key := range []string{"TRACKER_TEAM", "TRACKER_STORAGE_BACKEND", "TRACKER_STORAGE_DIR"} {
		// Setenv registers the restore; the variable itself must be unset.
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	return configHome, dataHome
}

// NewGateway returns a gateway over a fresh in-memory blob, along with the
// blob so the test can inspect writes or inject failures.
func NewGateway(t *testing.T) (*blobstore.Gateway, *blobstore.Memory) {
	t.Helper()

	blob := blobstore.NewMemory()
	return blobstore.New(blob, "memory", logging.NopLogger()), blob
}

// WriteFile writes content to dir/name, creating parent directories, and
// returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// ProjectRoot returns the directory holding go.mod, searching upwards from
// the test's working directory.
func ProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above the working directory")
		}
		dir = parent
	}
}

// SkipIfNoGolangciLint skips the test if golangci-lint is not installed.
func SkipIfNoGolangciLint(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("golangci-lint"); err != nil {
		t.Skip("golangci-lint not found in PATH, skipping test")
	}
}
