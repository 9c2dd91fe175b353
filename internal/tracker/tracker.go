// Package tracker coordinates the request graph with persistent storage.
//
// A [Tracker] owns a [request.Graph] and a [Gateway]. Every mutating call
// validates and applies the change in memory first, then saves the full
// state. Change events are published only once the save succeeds, so
// subscribers never act on state that storage does not hold. A failed save
// does not undo the change: the call returns a *errors.PersistenceError,
// logs it, publishes persistence.failed instead, and the next successful
// save writes everything again.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/event"
	"github.com/karmanspace/tracker/internal/logging"
	"github.com/karmanspace/tracker/internal/request"
	"github.com/karmanspace/tracker/internal/team"
)

// Gateway loads and saves the tracker's state. Implementations must treat a
// backend that has never been written as empty, and must accept the three
// Save calls running concurrently.
type Gateway interface {
	LoadRoots(ctx context.Context) ([]request.NodeRecord, error)
	LoadArchive(ctx context.Context) ([]request.ArchiveRecord, error)
	LoadAllocatorState(ctx context.Context) (int32, error)
	SaveRoots(ctx context.Context, roots []request.NodeRecord) error
	SaveArchive(ctx context.Context, archive []request.ArchiveRecord) error
	SaveAllocatorState(ctx context.Context, current int32) error
}

// backendNamer is implemented by gateways that can name their storage.
type backendNamer interface {
	Backend() string
}

// DefaultSaveTimeout bounds a full load or save.
const DefaultSaveTimeout = 10 * time.Second

// Tracker is safe for concurrent use.
type Tracker struct {
	mu          sync.Mutex
	graph       *request.Graph
	gw          Gateway
	backend     string
	bus         *event.Bus
	logger      *logging.Logger
	teams       *team.Directory
	now         func() time.Time
	saveTimeout time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithBus sets the bus events are published on. The default bus has no
// subscribers.
func WithBus(b *event.Bus) Option {
	return func(t *Tracker) {
		if b != nil {
			t.bus = b
		}
	}
}

// WithClock sets the time source used for archive timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithSaveTimeout bounds each load and save. Zero disables the bound.
func WithSaveTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.saveTimeout = d
		}
	}
}

// WithTeams restricts requesters and requestees to the teams in d.
func WithTeams(d *team.Directory) Option {
	return func(t *Tracker) {
		t.teams = d
	}
}

// New creates a Tracker and loads its state from gw.
//
// A load failure does not prevent startup: the returned Tracker is usable
// with an empty graph and the error is a *errors.PersistenceError. Callers
// decide whether to continue.
func New(ctx context.Context, gw Gateway, opts ...Option) (*Tracker, error) {
	if gw == nil {
		return nil, errors.NewValidationError("gateway is required").WithField("gateway")
	}
	t := &Tracker{
		gw:          gw,
		backend:     "unknown",
		logger:      logging.NopLogger(),
		now:         time.Now,
		saveTimeout: DefaultSaveTimeout,
	}
	if n, ok := gw.(backendNamer); ok {
		t.backend = n.Backend()
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.bus == nil {
		t.bus = event.NewBus(t.logger)
	}
	t.logger = t.logger.WithBackend(t.backend)
	t.graph = request.NewGraph(request.WithClock(t.now))

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.load(ctx); err != nil {
		return t, err
	}
	return t, nil
}

// Bus returns the event bus.
func (t *Tracker) Bus() *event.Bus {
	return t.bus
}

// Backend names the storage behind the gateway.
func (t *Tracker) Backend() string {
	return t.backend
}

// View calls fn with the graph while holding the tracker's lock. fn must
// not mutate the graph.
func (t *Tracker) View(fn func(g *request.Graph)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.graph)
}

// Reload replaces the in-memory state with what the gateway holds. On
// failure the current state is kept.
func (t *Tracker) Reload(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx)
}

func (t *Tracker) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.saveTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.saveTimeout)
}

// load reads the full state and restores it into the graph.
func (t *Tracker) load(ctx context.Context) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	var state request.State
	var err error
	if state.Roots, err = t.gw.LoadRoots(ctx); err != nil {
		return t.loadFailed("load roots", err)
	}
	if state.Archive, err = t.gw.LoadArchive(ctx); err != nil {
		return t.loadFailed("load archive", err)
	}
	if state.Allocator, err = t.gw.LoadAllocatorState(ctx); err != nil {
		return t.loadFailed("load allocator", err)
	}
	if err := t.graph.Restore(state); err != nil {
		return t.loadFailed("restore state", err)
	}
	t.logger.Info("state loaded",
		"live", t.graph.Len(),
		"archived", len(state.Archive),
		"allocator", t.graph.Allocator().Snapshot(),
	)
	return nil
}

func (t *Tracker) loadFailed(op string, err error) error {
	perr := asPersistence(op, t.backend, err)
	t.logger.Error("failed to load state", "operation", op, "error", perr.Error())
	t.bus.Publish(event.NewPersistenceFailedEvent(op, t.backend, perr))
	return perr
}

// commit saves the full state and, when that succeeds, publishes events.
func (t *Tracker) commit(ctx context.Context, events ...event.Event) error {
	if err := t.persist(ctx); err != nil {
		return err
	}
	for _, e := range events {
		t.bus.Publish(e)
	}
	return nil
}

// persist saves the three state documents concurrently. Every save is
// attempted even when another fails; failures are logged and published in
// document order and the first one is returned.
func (t *Tracker) persist(ctx context.Context) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	state := t.graph.Export()
	saves := []struct {
		op   string
		save func() error
	}{
		{"save roots", func() error { return t.gw.SaveRoots(ctx, state.Roots) }},
		{"save archive", func() error { return t.gw.SaveArchive(ctx, state.Archive) }},
		{"save allocator", func() error { return t.gw.SaveAllocatorState(ctx, state.Allocator) }},
	}

	errs := make([]error, len(saves))
	var wg conc.WaitGroup
	for i, s := range saves {
		wg.Go(func() { errs[i] = s.save() })
	}
	wg.Wait()

	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		op := saves[i].op
		perr := asPersistence(op, t.backend, err)
		t.logger.Warn("failed to save state", "operation", op, "error", perr.Error())
		t.bus.Publish(event.NewPersistenceFailedEvent(op, t.backend, perr))
		if first == nil {
			first = perr
		}
	}
	return first
}

// asPersistence returns err as a *errors.PersistenceError, wrapping it when
// the gateway returned something else.
func asPersistence(op, backend string, err error) error {
	var perr *errors.PersistenceError
	if errors.As(err, &perr) {
		return err
	}
	return errors.NewPersistenceError(op, err).WithBackend(backend)
}
