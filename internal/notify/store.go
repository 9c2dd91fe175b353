package notify

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

const (
	// outboxDir is the directory within the data directory that holds outboxes.
	outboxDir = "outbox"

	// indexFile is the append-only JSONL file within each team's outbox.
	indexFile = "index.jsonl"
)

// Store persists notices as JSONL, one append-only file per team. A Store
// with no directory keeps notices in memory.
type Store struct {
	dir    string
	mu     sync.Mutex
	memory []Notice
}

// NewStore creates a Store rooted at dataDir. The outbox directories are
// created lazily on first write. An empty dataDir keeps notices in memory.
func NewStore(dataDir string) *Store {
	if dataDir == "" {
		return &Store{}
	}
	return &Store{dir: filepath.Join(dataDir, outboxDir)}
}

// Append records n in its team's outbox.
func (s *Store) Append(n Notice) error {
	if n.Team == "" {
		return fmt.Errorf("outbox: notice Team field is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		s.memory = append(s.memory, n)
		return nil
	}

	dir := filepath.Join(s.dir, string(n.Team))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("outbox: create directory: %w", err)
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("outbox: marshal notice: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(filepath.Join(dir, indexFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("outbox: open index for append: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("outbox: append to index: %w", err)
	}
	return f.Close()
}

// ReadTeam returns the notices queued for one team, oldest first.
func (s *Store) ReadTeam(name string) ([]Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		var out []Notice
		for _, n := range s.memory {
			if string(n.Team) == name {
				out = append(out, n)
			}
		}
		return out, nil
	}
	return readIndex(filepath.Join(s.dir, name, indexFile))
}

// ReadAll returns every queued notice sorted by time.
func (s *Store) ReadAll() ([]Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return slices.Clone(s.memory), nil
	}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("outbox: list teams: %w", err)
	}

	var all []Notice
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		got, err := readIndex(filepath.Join(s.dir, e.Name(), indexFile))
		if err != nil {
			return nil, err
		}
		all = append(all, got...)
	}
	slices.SortStableFunc(all, func(a, b Notice) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return all, nil
}

// readIndex reads all notices from an index.jsonl file.
// Returns nil (not error) if the file does not exist.
func readIndex(path string) ([]Notice, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("outbox: open index: %w", err)
	}
	defer func() { _ = f.Close() }()

	var notices []Notice
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var n Notice
		if err := json.Unmarshal(line, &n); err != nil {
			// Skip malformed lines rather than failing entirely
			continue
		}
		notices = append(notices, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("outbox: scan index: %w", err)
	}
	return notices, nil
}
