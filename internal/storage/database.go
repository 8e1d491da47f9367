package storage

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"github.com/KilimcininKorOglu/tagstore/internal/logging"
)

// Block layout constants.
const (
	// BlockHeaderSize is the size of the header preceding every block payload.
	BlockHeaderSize = 8
	// BlockGranularity is the alignment of block sizes and offsets.
	BlockGranularity = 8
	// MinBlockSize is the smallest block, header included.
	MinBlockSize = 16
	// MaxMallocSize is the largest payload Malloc accepts.
	MaxMallocSize = 16 << 20

	blockFlagUsed uint32 = 1
	maxBlockSize         = 1 << 31
	maxGrowth            = 64 << 20
	minGrowthChunks      = 8
)

// Errors for Database operations.
var (
	ErrFileNotOpen       = errors.New("file not open")
	ErrClosed            = errors.New("database is closed")
	ErrReadOnly          = errors.New("database is read-only")
	ErrFileCorrupted     = errors.New("database file is corrupted")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrMallocTooLarge    = errors.New("allocation too large")
	ErrInvalidRootSlot   = errors.New("invalid root slot")
)

// Database is a persistent byte-addressable store over a single file. It
// hands out records with Malloc/Free and exposes typed primitives addressed
// by record offsets.
//
// Database is not safe for concurrent use. Callers serialize access.
type Database struct {
	path        string
	file        *os.File
	mm          *MmapManager
	lock        *fileLock
	free        *FreeList
	chunkSize   uint32
	heapEnd     uint64
	usedBytes   uint64
	usedBlocks  uint64
	readOnly    bool
	syncOnClose bool
	closed      bool
	log         logging.Logger
}

var _ Store = (*Database)(nil)

// Open opens or creates the database file at path.
func Open(path string, opts Options) (*Database, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	_, err := os.Stat(path)
	fileExists := err == nil

	if !fileExists && (!opts.CreateIfNew || opts.ReadOnly) {
		return nil, errors.Wrapf(os.ErrNotExist, "open database %s", path)
	}

	db := &Database{
		path:        path,
		free:        NewFreeList(),
		readOnly:    opts.ReadOnly,
		syncOnClose: opts.SyncOnClose,
		log:         opts.Logger.WithFields("db", path),
	}

	if !opts.ReadOnly {
		db.lock, err = acquireLock(path)
		if err != nil {
			return nil, err
		}
	}

	flags := os.O_RDWR
	if opts.ReadOnly {
		flags = os.O_RDONLY
	} else if !fileExists {
		flags |= os.O_CREATE
	}

	db.file, err = os.OpenFile(path, flags, 0644)
	if err != nil {
		db.lock.release()
		return nil, errors.Wrapf(err, "open database %s", path)
	}

	if fileExists {
		err = db.loadExisting()
	} else {
		err = db.initializeNew(opts)
	}
	if err != nil {
		db.release()
		if !fileExists {
			os.Remove(path)
		}
		return nil, err
	}

	db.log.Debug("database opened", "size", db.mm.Size(), "heapEnd", db.heapEnd, "readOnly", db.readOnly)
	return db, nil
}

// initializeNew lays out an empty database in a freshly created file.
func (db *Database) initializeNew(opts Options) error {
	db.chunkSize = uint32(opts.ChunkSize)
	db.heapEnd = HeaderSize

	size := opts.InitialSize
	if min := int64(HeaderSize) + int64(opts.ChunkSize); size < min {
		size = min
	}

	var err error
	db.mm, err = NewMmapManager(db.file, size, opts.ChunkSize, false)
	if err != nil {
		return err
	}

	if err := db.writeHeader(); err != nil {
		return err
	}
	return db.mm.Sync()
}

// loadExisting validates the header of an existing file and rebuilds the
// in-memory free list from the block chain.
func (db *Database) loadExisting() error {
	info, err := db.file.Stat()
	if err != nil {
		return errors.Wrap(err, "stat database file")
	}
	if info.Size() < HeaderSize {
		return errors.Wrapf(ErrFileCorrupted, "file too small (%d bytes)", info.Size())
	}

	buf := make([]byte, HeaderSize)
	if _, err := db.file.ReadAt(buf, 0); err != nil {
		return errors.Wrap(err, "read header")
	}

	var h FileHeader
	if err := h.DeserializeAndValidate(buf); err != nil {
		return errors.Wrap(err, "invalid header")
	}
	if h.HeapEnd < HeaderSize || h.HeapEnd > uint64(info.Size()) {
		return errors.Wrapf(ErrFileCorrupted, "heap end %d outside file of %d bytes", h.HeapEnd, info.Size())
	}

	db.chunkSize = h.ChunkSize
	db.heapEnd = h.HeapEnd

	db.mm, err = NewMmapManager(db.file, info.Size(), int(h.ChunkSize), db.readOnly)
	if err != nil {
		return err
	}

	return db.rebuildFreeList()
}

// rebuildFreeList walks every block and recomputes the allocation counters.
func (db *Database) rebuildFreeList() error {
	db.free.Clear()
	db.usedBytes, db.usedBlocks = 0, 0

	return db.scan(func(off uint64, size uint32, used bool) bool {
		if used {
			db.usedBytes += uint64(size)
			db.usedBlocks++
		} else {
			db.free.Push(freeBlock{off: off, size: size})
		}
		return true
	})
}

// scan visits every block between the header and the heap end.
func (db *Database) scan(fn func(off uint64, size uint32, used bool) bool) error {
	off := uint64(HeaderSize)
	for off < db.heapEnd {
		size, flags := db.blockHeader(off)
		if size < MinBlockSize || size%BlockGranularity != 0 || off+uint64(size) > db.heapEnd {
			return errors.Wrapf(ErrFileCorrupted, "bad block at %#x (size %d)", off, size)
		}
		if !fn(off, size, flags&blockFlagUsed != 0) {
			return nil
		}
		off += uint64(size)
	}
	return nil
}

func (db *Database) blockHeader(off uint64) (uint32, uint32) {
	data := db.mm.Data()
	return binary.LittleEndian.Uint32(data[off : off+4]), binary.LittleEndian.Uint32(data[off+4 : off+8])
}

func (db *Database) putBlockHeader(off uint64, size, flags uint32) {
	data := db.mm.Data()
	binary.LittleEndian.PutUint32(data[off:off+4], size)
	binary.LittleEndian.PutUint32(data[off+4:off+8], flags)
}

// writeHeader stamps the current counters into the mapped header. Root
// slots are read back from the mapping so that PutRecPtr writes survive.
func (db *Database) writeHeader() error {
	data := db.mm.Data()

	h := NewFileHeader(db.chunkSize)
	h.HeapEnd = db.heapEnd
	h.UsedBytes = db.usedBytes
	h.UsedBlocks = db.usedBlocks
	for i := range h.RootSlots {
		off := rootSlotsOffset + i*8
		h.RootSlots[i] = Record(binary.LittleEndian.Uint64(data[off : off+8]))
	}

	return h.SerializeTo(data[:HeaderSize])
}

// blockSizeFor returns the block size needed for a payload of size bytes.
func blockSizeFor(size int) uint32 {
	n := uint32(size) + BlockHeaderSize
	if n < MinBlockSize {
		n = MinBlockSize
	}
	return (n + BlockGranularity - 1) &^ (BlockGranularity - 1)
}

func (db *Database) checkOpen() error {
	if db.closed {
		return ErrClosed
	}
	return nil
}

func (db *Database) checkWritable() error {
	if db.closed {
		return ErrClosed
	}
	if db.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Malloc allocates a zero-filled record with room for size bytes.
func (db *Database) Malloc(size int) (Record, error) {
	if err := db.checkWritable(); err != nil {
		return NullRecord, err
	}
	if size < 0 || size > MaxMallocSize {
		return NullRecord, errors.Wrapf(ErrMallocTooLarge, "malloc %d bytes", size)
	}

	need := blockSizeFor(size)
	var off uint64

	if b, ok := db.free.BestFit(need); ok {
		db.free.Remove(b)
		off = b.off
		if rest := b.size - need; rest >= MinBlockSize {
			db.putBlockHeader(off+uint64(need), rest, 0)
			db.free.Push(freeBlock{off: off + uint64(need), size: rest})
		} else {
			need = b.size
		}
	} else {
		off = db.heapEnd
		if err := db.ensureCapacity(off + uint64(need)); err != nil {
			return NullRecord, err
		}
		db.heapEnd = off + uint64(need)
	}

	db.putBlockHeader(off, need, blockFlagUsed)
	clear(db.mm.Data()[off+BlockHeaderSize : off+uint64(need)])

	db.usedBytes += uint64(need)
	db.usedBlocks++

	return Record(off + BlockHeaderSize), nil
}

// ensureCapacity grows the file so that end fits in the mapping.
func (db *Database) ensureCapacity(end uint64) error {
	cur := uint64(db.mm.Size())
	if end <= cur {
		return nil
	}

	growth := cur
	if growth > maxGrowth {
		growth = maxGrowth
	}
	if min := uint64(minGrowthChunks) * uint64(db.chunkSize); growth < min {
		growth = min
	}

	newSize := cur + growth
	if newSize < end {
		newSize = end
	}

	if err := db.mm.Remap(int64(newSize)); err != nil {
		return errors.Wrapf(err, "grow database to %d bytes", newSize)
	}

	db.log.Debug("database grown", "size", db.mm.Size())
	return nil
}

// usedBlockAt validates that rec heads an in-use block and returns the
// block offset and size.
func (db *Database) usedBlockAt(rec Record) (uint64, uint32, error) {
	r := uint64(rec)
	if r < HeaderSize+BlockHeaderSize || r%BlockGranularity != 0 || r-BlockHeaderSize+MinBlockSize > db.heapEnd {
		return 0, 0, errors.Wrapf(ErrInvalidRecord, "record %s", rec)
	}

	off := r - BlockHeaderSize
	size, flags := db.blockHeader(off)
	if flags&blockFlagUsed == 0 || size < MinBlockSize || size%BlockGranularity != 0 || off+uint64(size) > db.heapEnd {
		return 0, 0, errors.Wrapf(ErrInvalidRecord, "record %s is not allocated", rec)
	}
	return off, size, nil
}

// Free releases a record. Freeing a record that is not allocated fails
// with ErrInvalidRecord.
func (db *Database) Free(rec Record) error {
	if err := db.checkWritable(); err != nil {
		return err
	}

	off, size, err := db.usedBlockAt(rec)
	if err != nil {
		return err
	}

	db.usedBytes -= uint64(size)
	db.usedBlocks--

	// Absorbed block headers are cleared so that no header inside a free
	// block still reads as in use.
	db.putBlockHeader(off, size, 0)

	// Coalesce with the right neighbour.
	if next := off + uint64(size); next < db.heapEnd {
		if nb, ok := db.free.At(next); ok && uint64(size)+uint64(nb.size) <= maxBlockSize {
			db.free.Remove(nb)
			db.putBlockHeader(next, 0, 0)
			size += nb.size
		}
	}

	// Coalesce with the left neighbour.
	if pb, ok := db.free.Before(off); ok && pb.off+uint64(pb.size) == off && uint64(size)+uint64(pb.size) <= maxBlockSize {
		db.free.Remove(pb)
		db.putBlockHeader(off, 0, 0)
		off = pb.off
		size += pb.size
	}

	db.putBlockHeader(off, size, 0)
	db.free.Push(freeBlock{off: off, size: size})
	return nil
}

// span returns the mapped bytes [addr, addr+n). Header bytes are only
// reachable through the root slots.
func (db *Database) span(addr Record, n int, write bool) ([]byte, error) {
	if write {
		if err := db.checkWritable(); err != nil {
			return nil, err
		}
	} else if err := db.checkOpen(); err != nil {
		return nil, err
	}

	a := uint64(addr)
	end := a + uint64(n)
	if n < 0 || end < a {
		return nil, errors.Wrapf(ErrAddressOutOfRange, "%s+%d", addr, n)
	}

	if a < HeaderSize {
		if a < rootSlotsOffset || end > headerChecksumOffset {
			return nil, errors.Wrapf(ErrAddressOutOfRange, "%s+%d", addr, n)
		}
	} else if end > db.heapEnd {
		return nil, errors.Wrapf(ErrAddressOutOfRange, "%s+%d", addr, n)
	}

	return db.mm.Data()[a:end], nil
}

// GetByte reads one byte.
func (db *Database) GetByte(addr Record) (byte, error) {
	b, err := db.span(addr, 1, false)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// PutByte writes one byte.
func (db *Database) PutByte(addr Record, v byte) error {
	b, err := db.span(addr, 1, true)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

// GetInt reads a little-endian int32.
func (db *Database) GetInt(addr Record) (int32, error) {
	b, err := db.span(addr, 4, false)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// PutInt writes a little-endian int32.
func (db *Database) PutInt(addr Record, v int32) error {
	b, err := db.span(addr, 4, true)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, uint32(v))
	return nil
}

// GetRecPtr reads a record pointer.
func (db *Database) GetRecPtr(addr Record) (Record, error) {
	b, err := db.span(addr, 8, false)
	if err != nil {
		return NullRecord, err
	}
	return Record(binary.LittleEndian.Uint64(b)), nil
}

// PutRecPtr writes a record pointer.
func (db *Database) PutRecPtr(addr Record, v Record) error {
	b, err := db.span(addr, 8, true)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, uint64(v))
	return nil
}

// GetBytes fills buf with the bytes starting at addr.
func (db *Database) GetBytes(addr Record, buf []byte) error {
	b, err := db.span(addr, len(buf), false)
	if err != nil {
		return err
	}
	copy(buf, b)
	return nil
}

// PutBytes writes data starting at addr.
func (db *Database) PutBytes(addr Record, data []byte) error {
	b, err := db.span(addr, len(data), true)
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// RootSlot returns the address of header root slot i. Root slots hold
// record pointers that anchor top-level structures.
func (db *Database) RootSlot(i int) (Record, error) {
	if i < 0 || i >= RootSlotCount {
		return NullRecord, errors.Wrapf(ErrInvalidRootSlot, "slot %d", i)
	}
	return Record(rootSlotsOffset + i*8), nil
}

// BlockInfo describes one heap block.
type BlockInfo struct {
	// Record is the payload address of the block.
	Record Record
	// Size is the payload capacity in bytes.
	Size int
	// Used is true for allocated blocks.
	Used bool
}

// Walk calls fn for every block in address order until fn returns false.
func (db *Database) Walk(fn func(BlockInfo) bool) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	return db.scan(func(off uint64, size uint32, used bool) bool {
		return fn(BlockInfo{
			Record: Record(off + BlockHeaderSize),
			Size:   int(size) - BlockHeaderSize,
			Used:   used,
		})
	})
}

// Stats holds allocation statistics.
type Stats struct {
	FileSize   int64
	HeapEnd    uint64
	ChunkSize  int
	UsedBytes  uint64
	UsedBlocks uint64
	FreeBytes  uint64
	FreeBlocks int
}

// Stats returns current statistics.
func (db *Database) Stats() Stats {
	s := Stats{
		HeapEnd:    db.heapEnd,
		ChunkSize:  int(db.chunkSize),
		UsedBytes:  db.usedBytes,
		UsedBlocks: db.usedBlocks,
		FreeBytes:  db.free.Bytes(),
		FreeBlocks: db.free.Count(),
	}
	if db.mm != nil {
		s.FileSize = db.mm.Size()
	}
	return s
}

// Path returns the file path.
func (db *Database) Path() string {
	return db.path
}

// IsReadOnly returns true if the database was opened read-only.
func (db *Database) IsReadOnly() bool {
	return db.readOnly
}

// Flush stamps the header and flushes the mapping to the file.
func (db *Database) Flush() error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if db.readOnly {
		return nil
	}
	if err := db.writeHeader(); err != nil {
		return err
	}
	return db.mm.Sync()
}

// Close flushes the header, unmaps and closes the file and releases the lock.
func (db *Database) Close() error {
	if db.closed {
		return ErrClosed
	}

	var firstErr error
	if !db.readOnly {
		if err := db.writeHeader(); err != nil {
			firstErr = err
		}
		if db.syncOnClose {
			if err := db.mm.Sync(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := db.release(); err != nil && firstErr == nil {
		firstErr = err
	}

	db.log.Debug("database closed")
	return firstErr
}

// release tears down the mapping, the file handle and the lock.
func (db *Database) release() error {
	db.closed = true

	var firstErr error
	if db.mm != nil {
		if err := db.mm.Close(); err != nil {
			firstErr = err
		}
	}
	if db.file != nil {
		if db.syncOnClose && !db.readOnly {
			if err := db.file.Sync(); err != nil && firstErr == nil {
				firstErr = errors.Wrap(err, "sync database file")
			}
		}
		if err := db.file.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "close database file")
		}
	}
	if err := db.lock.release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
