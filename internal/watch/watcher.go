// Package watch shows the request forest live in the terminal.
//
// A [Watcher] reports changes to the state documents in a file store
// directory, so that one terminal can follow what other tracker processes
// write. [Model] is the bubbletea view that reloads and redraws on each
// change.
package watch

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/karmanspace/tracker/internal/logging"
	"github.com/karmanspace/tracker/internal/store/blobstore"
)

// DefaultDebounce collapses bursts of writes from one save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a store directory for state changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	names    []string
	debounce time.Duration
	logger   *logging.Logger

	changes  chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Watcher on dir. The directory must exist. Call Start to
// begin delivering changes.
func New(dir string, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "watch", Path: dir, Err: os.ErrInvalid}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  watcher,
		dir:      dir,
		names:    blobstore.Keys(),
		debounce: DefaultDebounce,
		logger:   logger.With("dir", dir),
		changes:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}, nil
}

// Changes delivers one value per burst of changes. Pending changes are
// coalesced, so a slow reader never sees more than one queued value.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases its resources. It is safe to call
// more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

// relevant reports whether an event touches a state document. Saves write a
// temp file and rename it over the document, which arrives as a Create.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return slices.Contains(w.names, filepath.Base(ev.Name))
}

func (w *Watcher) watchLoop() {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer
	defer debounceTimer.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			w.logger.Debug("state changed on disk")
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err.Error())
		}
	}
}
