package storage

import (
	"github.com/pkg/errors"

	"github.com/KilimcininKorOglu/tagstore/internal/logging"
)

// Default options for Database.
const (
	DefaultChunkSize   = 4096
	DefaultInitialSize = 64 * 1024
	MinChunkSize       = 512
)

// Options configures a Database.
type Options struct {
	// ChunkSize is the file growth granularity in bytes. Only used when
	// creating a file; existing files keep the chunk size in their header.
	// Default: 4096 bytes.
	ChunkSize int

	// InitialSize is the initial file size in bytes for new files.
	// Default: 64KB.
	InitialSize int64

	// CreateIfNew creates the file if it doesn't exist.
	// Default: true.
	CreateIfNew bool

	// ReadOnly opens the file in read-only mode. No lock is taken.
	// Default: false.
	ReadOnly bool

	// SyncOnClose flushes the mapping and fsyncs the file on Close.
	// Default: true.
	SyncOnClose bool

	// Logger receives debug output about file growth and open/close.
	// Default: no-op logger.
	Logger logging.Logger
}

// DefaultOptions returns the default Database options.
func DefaultOptions() Options {
	return Options{
		ChunkSize:   DefaultChunkSize,
		InitialSize: DefaultInitialSize,
		CreateIfNew: true,
		ReadOnly:    false,
		SyncOnClose: true,
		Logger:      logging.NewNop(),
	}
}

// Validate fills in defaults and rejects unusable values.
func (o *Options) Validate() error {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkSize < MinChunkSize || o.ChunkSize%BlockGranularity != 0 {
		return errors.Wrapf(ErrInvalidChunkSize, "chunk size %d", o.ChunkSize)
	}

	if o.InitialSize <= 0 {
		o.InitialSize = DefaultInitialSize
	}

	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}

	return nil
}

// WithChunkSize sets the chunk size.
func (o Options) WithChunkSize(size int) Options {
	o.ChunkSize = size
	return o
}

// WithInitialSize sets the initial file size.
func (o Options) WithInitialSize(size int64) Options {
	o.InitialSize = size
	return o
}

// WithCreateIfNew enables or disables auto-creation.
func (o Options) WithCreateIfNew(create bool) Options {
	o.CreateIfNew = create
	return o
}

// WithReadOnly enables or disables read-only mode.
func (o Options) WithReadOnly(readOnly bool) Options {
	o.ReadOnly = readOnly
	return o
}

// WithSyncOnClose enables or disables sync on close.
func (o Options) WithSyncOnClose(sync bool) Options {
	o.SyncOnClose = sync
	return o
}

// WithLogger sets the logger.
func (o Options) WithLogger(l logging.Logger) Options {
	o.Logger = l
	return o
}
