package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

const lockFileName = "tracker.lock"

// lockPollInterval is how often Acquire retries a held lock.
const lockPollInterval = 10 * time.Millisecond

// Mode selects how a DirLock is held.
type Mode int

const (
	// Shared lets several readers hold the lock at once.
	Shared Mode = iota
	// Exclusive admits a single writer and no readers.
	Exclusive
)

func (m Mode) how() int {
	if m == Exclusive {
		return unix.LOCK_EX
	}
	return unix.LOCK_SH
}

// DirLock is an flock(2) lock on the lock file of a data directory. Loads
// hold it shared and saves exclusive, so no process reads a state document
// while another replaces it.
type DirLock struct {
	path string
	file *os.File
}

// NewDirLock returns an unheld lock for dir.
func NewDirLock(dir string) *DirLock {
	return &DirLock{path: filepath.Join(dir, lockFileName)}
}

// Acquire takes the lock in mode, retrying until it is free or ctx is done.
// The lock file is created if it does not exist.
func (l *DirLock) Acquire(ctx context.Context, mode Mode) error {
	if l.file != nil {
		return fmt.Errorf("lock %s already held", l.path)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	for {
		err := unix.Flock(int(f.Fd()), mode.how()|unix.LOCK_NB)
		if err == nil {
			l.file = f
			return nil
		}
		if err != unix.EWOULDBLOCK {
			_ = f.Close()
			return fmt.Errorf("flock %s: %w", l.path, err)
		}
		select {
		case <-ctx.Done():
			_ = f.Close()
			return fmt.Errorf("wait for %s: %w", l.path, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// Release drops the lock. Releasing an unheld lock does nothing.
func (l *DirLock) Release() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		_ = f.Close()
		return fmt.Errorf("funlock %s: %w", l.path, err)
	}
	return f.Close()
}

// withLock runs fn while holding the directory lock in mode.
func withLock(ctx context.Context, dir string, mode Mode, fn func() error) error {
	l := NewDirLock(dir)
	if err := l.Acquire(ctx, mode); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = l.Release() }()
	return fn()
}
