package notify

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/karmanspace/tracker/internal/team"
)

func notice(t team.Team, id int32, at time.Time) Notice {
	return Notice{ID: "n", Team: t, RequestID: id, Subject: "s", Timestamp: at}
}

func TestStore_Append(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Append(notice(team.Avionics, 1, time.Now())); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	indexPath := filepath.Join(dir, outboxDir, "Avionics", indexFile)
	if _, err := os.Stat(indexPath); err != nil {
		t.Fatalf("index file not created: %v", err)
	}
}

func TestStore_Append_RequiresTeam(t *testing.T) {
	for _, dir := range []string{"", t.TempDir()} {
		if err := NewStore(dir).Append(Notice{ID: "x"}); err == nil {
			t.Errorf("Append() with dir %q and no team should fail", dir)
		}
	}
}

func TestStore_ReadTeam(t *testing.T) {
	for name, dir := range map[string]string{"memory": "", "file": t.TempDir()} {
		t.Run(name, func(t *testing.T) {
			store := NewStore(dir)
			base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
			for i, tm := range []team.Team{team.Avionics, team.Systems, team.Avionics} {
				if err := store.Append(notice(tm, int32(i+1), base.Add(time.Duration(i)*time.Minute))); err != nil {
					t.Fatalf("Append() error = %v", err)
				}
			}

			got, err := store.ReadTeam("Avionics")
			if err != nil {
				t.Fatalf("ReadTeam() error = %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("ReadTeam() returned %d notices, want 2", len(got))
			}
			if got[0].RequestID != 1 || got[1].RequestID != 3 {
				t.Errorf("ReadTeam() order = %d,%d, want 1,3", got[0].RequestID, got[1].RequestID)
			}

			none, err := store.ReadTeam("Sponsorship")
			if err != nil {
				t.Fatalf("ReadTeam() error = %v", err)
			}
			if len(none) != 0 {
				t.Errorf("ReadTeam() for empty outbox = %d notices, want 0", len(none))
			}
		})
	}
}

func TestStore_ReadAll_SortsByTime(t *testing.T) {
	store := NewStore(t.TempDir())
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	_ = store.Append(notice(team.Systems, 2, base.Add(2*time.Minute)))
	_ = store.Append(notice(team.Avionics, 1, base))
	_ = store.Append(notice(team.Propulsion, 3, base.Add(time.Minute)))

	all, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	want := []int32{1, 3, 2}
	if len(all) != len(want) {
		t.Fatalf("ReadAll() returned %d notices, want %d", len(all), len(want))
	}
	for i, n := range all {
		if n.RequestID != want[i] {
			t.Errorf("all[%d].RequestID = %d, want %d", i, n.RequestID, want[i])
		}
	}
}

func TestStore_ReadAll_NoOutbox(t *testing.T) {
	all, err := NewStore(t.TempDir()).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if all != nil {
		t.Errorf("ReadAll() = %v, want nil", all)
	}
}

func TestStore_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Append(notice(team.Avionics, 1, time.Now())); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	path := filepath.Join(dir, outboxDir, "Avionics", indexFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("{not json\n\n")
	_ = f.Close()

	if err := store.Append(notice(team.Avionics, 2, time.Now())); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := store.ReadTeam("Avionics")
	if err != nil {
		t.Fatalf("ReadTeam() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ReadTeam() returned %d notices, want 2", len(got))
	}
}

func TestStore_ConcurrentAppend(t *testing.T) {
	store := NewStore(t.TempDir())

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(notice(team.Structures, int32(i), time.Now()))
		}()
	}
	wg.Wait()

	got, err := store.ReadTeam("Structures")
	if err != nil {
		t.Fatalf("ReadTeam() error = %v", err)
	}
	if len(got) != n {
		t.Errorf("ReadTeam() returned %d notices, want %d", len(got), n)
	}
}
