// Package blobstore persists tracker state as three JSON documents on top of
// any key/value blob backend.
//
// The documents are:
//
//	roots.json      live request forest as nested records
//	archive.json    resolved requests, oldest first
//	allocator.json  {"current": n}, the last id handed out
//
// A backend only has to implement [Blob]. Missing documents load as empty
// state, so a fresh backend behaves like a first run.
package blobstore

import (
	"context"
	"encoding/json"

	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/logging"
	"github.com/karmanspace/tracker/internal/request"
)

// Document keys.
const (
	KeyRoots     = "roots.json"
	KeyArchive   = "archive.json"
	KeyAllocator = "allocator.json"
)

// Keys returns every document key in save order.
func Keys() []string {
	return []string{KeyRoots, KeyArchive, KeyAllocator}
}

// ErrMissing is returned by Blob.Get when a key has never been written.
var ErrMissing = errors.New("blob not found")

// Blob is a minimal key/value store. Put may be called concurrently for
// different keys.
type Blob interface {
	// Get returns the value stored under key, or ErrMissing.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, data []byte) error
}

type allocatorDoc struct {
	Current int32 `json:"current"`
}

// Gateway loads and saves tracker state through a Blob.
type Gateway struct {
	blob    Blob
	backend string
	logger  *logging.Logger
}

// New creates a Gateway. backend names the storage in errors and logs.
// A nil logger discards output.
func New(blob Blob, backend string, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Gateway{
		blob:    blob,
		backend: backend,
		logger:  logger.WithBackend(backend),
	}
}

// Backend returns the backend name.
func (g *Gateway) Backend() string {
	return g.backend
}

// LoadRoots returns the stored forest, or nil on first run.
func (g *Gateway) LoadRoots(ctx context.Context) ([]request.NodeRecord, error) {
	var roots []request.NodeRecord
	if err := g.load(ctx, "load roots", KeyRoots, &roots); err != nil {
		return nil, err
	}
	return roots, nil
}

// LoadArchive returns the stored archive, or nil on first run.
func (g *Gateway) LoadArchive(ctx context.Context) ([]request.ArchiveRecord, error) {
	var archive []request.ArchiveRecord
	if err := g.load(ctx, "load archive", KeyArchive, &archive); err != nil {
		return nil, err
	}
	return archive, nil
}

// LoadAllocatorState returns the stored allocator position, or 0 on first run.
func (g *Gateway) LoadAllocatorState(ctx context.Context) (int32, error) {
	var doc allocatorDoc
	if err := g.load(ctx, "load allocator", KeyAllocator, &doc); err != nil {
		return 0, err
	}
	return doc.Current, nil
}

// SaveRoots replaces the stored forest.
func (g *Gateway) SaveRoots(ctx context.Context, roots []request.NodeRecord) error {
	if roots == nil {
		roots = []request.NodeRecord{}
	}
	return g.save(ctx, "save roots", KeyRoots, roots)
}

// SaveArchive replaces the stored archive.
func (g *Gateway) SaveArchive(ctx context.Context, archive []request.ArchiveRecord) error {
	if archive == nil {
		archive = []request.ArchiveRecord{}
	}
	return g.save(ctx, "save archive", KeyArchive, archive)
}

// SaveAllocatorState replaces the stored allocator position.
func (g *Gateway) SaveAllocatorState(ctx context.Context, current int32) error {
	return g.save(ctx, "save allocator", KeyAllocator, allocatorDoc{Current: current})
}

func (g *Gateway) load(ctx context.Context, op, key string, v any) error {
	data, err := g.blob.Get(ctx, key)
	if errors.Is(err, ErrMissing) {
		g.logger.Debug("document not found, starting empty", "key", key)
		return nil
	}
	if err != nil {
		return g.fail(op, err)
	}
	if len(data) == 0 {
		g.logger.Debug("document is empty, treating as empty state", "key", key)
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return g.fail(op, errors.Wrapf(err, "decode %s", key))
	}
	g.logger.Debug("document loaded", "key", key, "bytes", len(data))
	return nil
}

func (g *Gateway) save(ctx context.Context, op, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return g.fail(op, errors.Wrapf(err, "encode %s", key))
	}
	if err := g.blob.Put(ctx, key, data); err != nil {
		return g.fail(op, err)
	}
	g.logger.Debug("document saved", "key", key, "bytes", len(data))
	return nil
}

func (g *Gateway) fail(op string, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return errors.NewPersistenceError(op, errors.Join(errors.ErrCanceled, cause)).WithBackend(g.backend)
	}
	return errors.NewPersistenceError(op, cause).WithBackend(g.backend)
}
