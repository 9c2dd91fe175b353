package gcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"tracker", "roots.json", "tracker/roots.json"},
		{"tracker/", "archive.json", "tracker/archive.json"},
		{"teams/karman", "allocator.json", "teams/karman/allocator.json"},
		{"", "roots.json", "roots.json"},
	}
	for _, tt := range tests {
		if got := objectName(tt.prefix, tt.key); got != tt.want {
			t.Errorf("objectName(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Config{}); err == nil {
		t.Error("New without bucket should fail")
	}

	missing := filepath.Join(t.TempDir(), "key.json")
	_, err := New(ctx, Config{Bucket: "karman-requests", CredentialsFile: missing})
	if err == nil || !strings.Contains(err.Error(), "service account key not found") {
		t.Errorf("New with missing key = %v", err)
	}
}

func TestStore_Emulator(t *testing.T) {
	endpoint := os.Getenv("STORAGE_EMULATOR_HOST")
	bucket := os.Getenv("TRACKER_TEST_BUCKET")
	if endpoint == "" || bucket == "" {
		t.Skip("STORAGE_EMULATOR_HOST and TRACKER_TEST_BUCKET not set")
	}

	ctx := context.Background()
	s, err := New(ctx, Config{Bucket: bucket, Prefix: t.Name()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if err := s.Put(ctx, "roots.json", []byte("[]")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "roots.json")
	if err != nil || string(got) != "[]" {
		t.Errorf("Get() = %q, %v", got, err)
	}
}
