package blobstore

import (
	"context"
	"maps"
	"sync"
)

// Memory is an in-process Blob. Failures can be injected to exercise the
// tracker's persistence error handling.
type Memory struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	putErr  error
	puts    int
	failKey string
}

// NewMemory returns an empty Memory blob.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Blob.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil && m.matches(key) {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMissing
	}
	return append([]byte(nil), v...), nil
}

// Put implements Blob.
func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil && m.matches(key) {
		return m.putErr
	}
	m.data[key] = append([]byte(nil), data...)
	m.puts++
	return nil
}

func (m *Memory) matches(key string) bool {
	return m.failKey == "" || m.failKey == key
}

// FailGets makes every Get return err. A nil err clears the failure.
func (m *Memory) FailGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailPuts makes every Put return err. A nil err clears the failure.
func (m *Memory) FailPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

// FailOnly limits injected failures to key. Empty means every key.
func (m *Memory) FailOnly(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failKey = key
}

// Puts returns the number of successful writes.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// Snapshot returns a copy of the stored documents.
func (m *Memory) Snapshot() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.data)
}
