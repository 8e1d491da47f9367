// Package engine opens a tag database from configuration.
package engine

import (
	"github.com/pkg/errors"

	"github.com/KilimcininKorOglu/tagstore/internal/config"
	"github.com/KilimcininKorOglu/tagstore/internal/logging"
	"github.com/KilimcininKorOglu/tagstore/internal/storage"
	"github.com/KilimcininKorOglu/tagstore/internal/tags"
)

// TagIndexSlot is the header root slot anchoring the tag index.
const TagIndexSlot = 0

// Engine is an open database with its tag index attached.
type Engine struct {
	db   *storage.Database
	tags *tags.Index
	log  logging.Logger
}

// Options converts storage configuration into database options.
func Options(cfg config.StorageConfig, log logging.Logger) (storage.Options, error) {
	chunk, err := cfg.ChunkSizeBytes()
	if err != nil {
		return storage.Options{}, errors.Wrap(err, "storage.chunkSize")
	}
	initial, err := cfg.InitialSizeBytes()
	if err != nil {
		return storage.Options{}, errors.Wrap(err, "storage.initialSize")
	}

	return storage.DefaultOptions().
		WithChunkSize(chunk).
		WithInitialSize(initial).
		WithReadOnly(cfg.ReadOnly).
		WithCreateIfNew(!cfg.ReadOnly).
		WithSyncOnClose(cfg.SyncOnClose).
		WithLogger(log), nil
}

// Open opens the database at cfg.Path and attaches the tag index.
func Open(cfg config.StorageConfig, log logging.Logger) (*Engine, error) {
	if log == nil {
		log = logging.NewNop()
	}

	opts, err := Options(cfg, log)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.Path, opts)
	if err != nil {
		return nil, err
	}

	anchor, err := db.RootSlot(TagIndexSlot)
	if err != nil {
		db.Close()
		return nil, err
	}

	idxOpts := []tags.Option{tags.WithLogger(log)}
	if cfg.TreeDegree > 0 {
		idxOpts = append(idxOpts, tags.WithDegree(cfg.TreeDegree))
	}
	if cfg.IDCacheSize > 0 {
		idxOpts = append(idxOpts, tags.WithIDCacheSize(cfg.IDCacheSize))
	}

	log.Info("database opened", "path", cfg.Path, "readOnly", cfg.ReadOnly)

	return &Engine{
		db:   db,
		tags: tags.NewIndex(db, anchor, idxOpts...),
		log:  log,
	}, nil
}

// DB returns the underlying database.
func (e *Engine) DB() *storage.Database {
	return e.db
}

// Tags returns the tag index.
func (e *Engine) Tags() *tags.Index {
	return e.tags
}

// Verify validates the index trees and walks the heap. It returns the
// first problem found.
func (e *Engine) Verify() error {
	if err := e.tags.Validate(); err != nil {
		return err
	}
	return e.db.Walk(func(storage.BlockInfo) bool { return true })
}

// Close closes the database.
func (e *Engine) Close() error {
	err := e.db.Close()
	if err != nil {
		e.log.WithError(err).Error("failed to close database")
	}
	return err
}
