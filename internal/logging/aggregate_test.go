package logging

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleLog = `{"time":"2024-03-14T09:30:02Z","level":"WARN","msg":"save failed","backend":"gcs","request_id":2}
{"time":"2024-03-14T09:30:00Z","level":"INFO","msg":"request created","team":"Systems","request_id":1}
not json at all
{"time":"2024-03-14T09:30:01Z","level":"DEBUG","msg":"loaded state","backend":"file","roots":3}

{"time":"2024-03-14T09:30:03Z","level":"ERROR","msg":"load failed","backend":"gcs"}
`

func writeSampleLog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LogFileName), []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestAggregateLogs(t *testing.T) {
	dir := writeSampleLog(t)

	entries, err := AggregateLogs(dir)
	if err != nil {
		t.Fatalf("AggregateLogs failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	wantOrder := []string{"request created", "loaded state", "save failed", "load failed"}
	for i, want := range wantOrder {
		if entries[i].Message != want {
			t.Errorf("entries[%d].Message = %q, want %q", i, entries[i].Message, want)
		}
	}
	if entries[0].Team != "Systems" || entries[0].RequestID != 1 {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Attrs["roots"] != float64(3) {
		t.Errorf("entries[1].Attrs = %v", entries[1].Attrs)
	}
}

func TestAggregateLogs_IncludesBackups(t *testing.T) {
	dir := writeSampleLog(t)
	backup := `{"time":"2024-03-13T08:00:00Z","level":"INFO","msg":"older"}` + "\n"
	if err := os.WriteFile(filepath.Join(dir, LogFileName+".1"), []byte(backup), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := AggregateLogs(dir)
	if err != nil {
		t.Fatalf("AggregateLogs failed: %v", err)
	}
	if len(entries) != 5 || entries[0].Message != "older" {
		t.Errorf("backup entries not merged first: %d entries, first %q", len(entries), entries[0].Message)
	}
}

func TestAggregateLogs_Missing(t *testing.T) {
	_, err := AggregateLogs(t.TempDir())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("AggregateLogs(empty dir) error = %v, want not-exist", err)
	}
}

func TestFilterLogs(t *testing.T) {
	entries, err := AggregateLogs(writeSampleLog(t))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter LogFilter
		want   []string
	}{
		{"no filter", LogFilter{}, []string{"request created", "loaded state", "save failed", "load failed"}},
		{"warn and above", LogFilter{Level: "warn"}, []string{"save failed", "load failed"}},
		{"backend", LogFilter{Backend: "gcs"}, []string{"save failed", "load failed"}},
		{"request", LogFilter{RequestID: 1}, []string{"request created"}},
		{"team ignores case", LogFilter{Team: "systems"}, []string{"request created"}},
		{"message", LogFilter{MessageContains: "failed"}, []string{"save failed", "load failed"}},
		{
			"time window",
			LogFilter{
				StartTime: time.Date(2024, 3, 14, 9, 30, 1, 0, time.UTC),
				EndTime:   time.Date(2024, 3, 14, 9, 30, 2, 0, time.UTC),
			},
			[]string{"loaded state", "save failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterLogs(entries, tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].Message != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i].Message, tt.want[i])
				}
			}
		})
	}
}

func TestWriteLogEntries(t *testing.T) {
	entries, err := AggregateLogs(writeSampleLog(t))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteLogEntries(&buf, entries, "json"); err != nil {
			t.Fatal(err)
		}
		var decoded []LogEntry
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON export: %v", err)
		}
		if len(decoded) != len(entries) {
			t.Errorf("decoded %d entries, want %d", len(decoded), len(entries))
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteLogEntries(&buf, entries, "TEXT"); err != nil {
			t.Fatal(err)
		}
		first := strings.SplitN(buf.String(), "\n", 2)[0]
		want := "[2024-03-14 09:30:00.000] INFO - request created (team=Systems, request=1)"
		if first != want {
			t.Errorf("first line = %q, want %q", first, want)
		}
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteLogEntries(&buf, entries, "csv"); err != nil {
			t.Fatal(err)
		}
		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(records) != len(entries)+1 {
			t.Errorf("got %d CSV rows, want %d", len(records), len(entries)+1)
		}
		if records[0][4] != "request_id" || records[1][4] != "1" {
			t.Errorf("request_id column = %q / %q", records[0][4], records[1][4])
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if err := WriteLogEntries(&bytes.Buffer{}, entries, "xml"); err == nil {
			t.Error("expected error for unsupported format")
		}
	})
}

func TestExportLogEntries(t *testing.T) {
	entries, err := AggregateLogs(writeSampleLog(t))
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "export.txt")
	if err := ExportLogEntries(entries, out, "text"); err != nil {
		t.Fatalf("ExportLogEntries failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "\n") != len(entries) {
		t.Errorf("exported %d lines, want %d", strings.Count(string(data), "\n"), len(entries))
	}
}
