package storage

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// MmapManager errors.
var (
	ErrMmapNotMapped   = errors.New("file is not memory mapped")
	ErrMmapClosed      = errors.New("mmap manager is closed")
	ErrMmapReadOnly    = errors.New("mmap is read-only")
	ErrMmapInvalidSize = errors.New("invalid mmap size")
)

// MmapManager maps a whole database file into memory and remaps it when the
// file grows. Slices handed out by Data are invalidated by Remap.
type MmapManager struct {
	file      *os.File
	data      mmap.MMap
	size      int64
	alignment int64
	readOnly  bool
	closed    bool
}

// NewMmapManager maps file. The file is extended to size (rounded up to
// alignment) unless it is already larger or the mapping is read-only.
func NewMmapManager(file *os.File, size int64, alignment int, readOnly bool) (*MmapManager, error) {
	if file == nil {
		return nil, ErrFileNotOpen
	}
	if alignment <= 0 {
		return nil, ErrMmapInvalidSize
	}

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat database file")
	}

	if readOnly || info.Size() > size {
		size = info.Size()
	}
	size = alignUp(size, int64(alignment))
	if size <= 0 {
		return nil, ErrMmapInvalidSize
	}

	if info.Size() < size && !readOnly {
		if err := file.Truncate(size); err != nil {
			return nil, errors.Wrap(err, "extend database file")
		}
	}

	m := &MmapManager{
		file:      file,
		size:      size,
		alignment: int64(alignment),
		readOnly:  readOnly,
	}

	if err := m.mapFile(); err != nil {
		return nil, err
	}

	return m, nil
}

// alignUp rounds size up to the next multiple of alignment.
func alignUp(size, alignment int64) int64 {
	if size%alignment == 0 {
		return size
	}
	return ((size / alignment) + 1) * alignment
}

func (m *MmapManager) mapFile() error {
	prot := mmap.RDWR
	if m.readOnly {
		prot = mmap.RDONLY
	}

	data, err := mmap.MapRegion(m.file, int(m.size), prot, 0, 0)
	if err != nil {
		return errors.Wrap(err, "map database file")
	}

	m.data = data
	return nil
}

func (m *MmapManager) unmapFile() error {
	if m.data == nil {
		return nil
	}

	err := m.data.Unmap()
	m.data = nil
	return errors.Wrap(err, "unmap database file")
}

// Data returns the mapped region.
func (m *MmapManager) Data() []byte {
	return m.data
}

// Size returns the current mapped size in bytes.
func (m *MmapManager) Size() int64 {
	return m.size
}

// IsMapped returns true if the file is currently mapped.
func (m *MmapManager) IsMapped() bool {
	return m.data != nil && !m.closed
}

// Remap grows the file and the mapping to newSize (rounded up to the
// alignment). Shrinking is not supported; a smaller size is a no-op.
func (m *MmapManager) Remap(newSize int64) error {
	if m.closed {
		return ErrMmapClosed
	}
	if m.readOnly {
		return ErrMmapReadOnly
	}
	if newSize <= 0 {
		return ErrMmapInvalidSize
	}

	newSize = alignUp(newSize, m.alignment)
	if newSize <= m.size {
		return nil
	}

	if err := m.data.Flush(); err != nil {
		return errors.Wrap(err, "flush before remap")
	}
	if err := m.unmapFile(); err != nil {
		return err
	}
	if err := m.file.Truncate(newSize); err != nil {
		return errors.Wrap(err, "grow database file")
	}

	m.size = newSize
	return m.mapFile()
}

// Sync flushes dirty pages of the mapping to the file.
func (m *MmapManager) Sync() error {
	if m.closed {
		return ErrMmapClosed
	}
	if m.data == nil {
		return ErrMmapNotMapped
	}
	if m.readOnly {
		return nil
	}
	return errors.Wrap(m.data.Flush(), "flush mapping")
}

// Close unmaps the file. The file itself stays open.
func (m *MmapManager) Close() error {
	if m.closed {
		return ErrMmapClosed
	}
	m.closed = true
	return m.unmapFile()
}
