// Package store opens the configured persistence backend for the tracker.
//
// Every backend is a [blobstore.Blob]; [Open] wraps it in a
// [blobstore.Gateway] that speaks the tracker's document format.
//
//	gw, closer, err := store.Open(ctx, cfg.Storage, logger)
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
package store

import (
	"context"
	"io"

	"github.com/karmanspace/tracker/internal/config"
	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/logging"
	"github.com/karmanspace/tracker/internal/store/badgerstore"
	"github.com/karmanspace/tracker/internal/store/blobstore"
	"github.com/karmanspace/tracker/internal/store/file"
	"github.com/karmanspace/tracker/internal/store/gcs"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Opened describes where an opened backend keeps its data.
type Opened struct {
	Backend string
	// Dir is the watched data directory for the file backend, empty otherwise.
	Dir string
}

// Open creates the backend named by cfg.Backend. The returned closer
// releases the backend and must be called once the gateway is no longer used.
func Open(ctx context.Context, cfg config.StorageConfig, logger *logging.Logger) (*blobstore.Gateway, io.Closer, error) {
	gw, closer, _, err := OpenWithInfo(ctx, cfg, logger)
	return gw, closer, err
}

// OpenWithInfo is Open that also reports where the data lives.
func OpenWithInfo(ctx context.Context, cfg config.StorageConfig, logger *logging.Logger) (*blobstore.Gateway, io.Closer, Opened, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	info := Opened{Backend: cfg.Backend}

	var (
		blob   blobstore.Blob
		closer io.Closer = nopCloser{}
	)

	switch cfg.Backend {
	case config.BackendFile, "":
		info.Backend = config.BackendFile
		s, err := file.New(cfg.ResolveDir())
		if err != nil {
			return nil, nil, info, errors.NewPersistenceError("open file store", err).WithBackend(config.BackendFile)
		}
		info.Dir = s.Dir()
		blob = s

	case config.BackendBadger:
		bcfg := badgerstore.DefaultConfig(cfg.ResolveBadgerPath())
		bcfg.SyncWrites = cfg.Badger.SyncWrites
		bcfg.GCInterval = cfg.Badger.GCInterval
		bcfg.Logger = logger.WithBackend(config.BackendBadger).Slog()
		s, err := badgerstore.Open(bcfg)
		if err != nil {
			return nil, nil, info, errors.NewPersistenceError("open badger store", err).WithBackend(config.BackendBadger)
		}
		blob, closer = s, s

	case config.BackendGCS:
		s, err := gcs.New(ctx, gcs.Config{
			Bucket:          cfg.GCS.Bucket,
			Project:         cfg.GCS.Project,
			Prefix:          cfg.GCS.Prefix,
			CredentialsFile: cfg.GCS.CredentialsFile,
		})
		if err != nil {
			return nil, nil, info, errors.NewPersistenceError("open gcs store", err).WithBackend(config.BackendGCS)
		}
		blob, closer = s, s

	case config.BackendMemory:
		blob = blobstore.NewMemory()

	default:
		return nil, nil, info, errors.NewValidationError("unknown storage backend").
			WithField("storage.backend").WithValue(cfg.Backend).WithCause(errors.ErrUnknownBackend)
	}

	logger.Debug("storage opened", logging.KeyBackend, info.Backend, "dir", info.Dir)
	return blobstore.New(blob, info.Backend, logger), closer, info, nil
}
