package storage

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// File header constants.
const (
	// HeaderSize is the size of the file header. The heap starts right after it.
	HeaderSize = 4096

	// RootSlotCount is the number of pointer-sized anchor slots in the header.
	RootSlotCount = 16

	// CurrentVersion is the current file format version.
	CurrentVersion uint32 = 1

	rootSlotsOffset      = 36
	headerChecksumOffset = rootSlotsOffset + RootSlotCount*8
	headerChecksumEnd    = headerChecksumOffset + 8
)

// Magic is the magic number for tagstore database files ("TAG\x00").
var Magic = [4]byte{'T', 'A', 'G', 0x00}

// Errors for file header operations.
var (
	ErrInvalidMagic       = errors.New("invalid magic number: not a tagstore database")
	ErrUnsupportedVersion = errors.New("unsupported file format version")
	ErrHeaderChecksum     = errors.New("file header checksum mismatch")
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrInvalidChunkSize   = errors.New("invalid chunk size")
)

// FileHeader represents the header of a database file.
// Layout:
//   - Bytes 0-3:     Magic number ("TAG\x00")
//   - Bytes 4-7:     Version (uint32)
//   - Bytes 8-11:    ChunkSize (uint32)
//   - Bytes 12-19:   HeapEnd (uint64)
//   - Bytes 20-27:   UsedBytes (uint64)
//   - Bytes 28-35:   UsedBlocks (uint64)
//   - Bytes 36-163:  RootSlots (16 x uint64)
//   - Bytes 164-171: Checksum (xxhash64 of bytes 0-163)
//   - Bytes 172-4095: Reserved
type FileHeader struct {
	Magic      [4]byte
	Version    uint32
	ChunkSize  uint32
	HeapEnd    uint64
	UsedBytes  uint64
	UsedBlocks uint64
	RootSlots  [RootSlotCount]Record
	Checksum   uint64
}

// NewFileHeader creates a header for an empty database.
func NewFileHeader(chunkSize uint32) *FileHeader {
	return &FileHeader{
		Magic:     Magic,
		Version:   CurrentVersion,
		ChunkSize: chunkSize,
		HeapEnd:   HeaderSize,
	}
}

// SerializeTo writes the header into buf and stamps the checksum.
// Reserved bytes are left untouched.
func (h *FileHeader) SerializeTo(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrInvalidHeaderSize
	}

	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.ChunkSize)
	binary.LittleEndian.PutUint64(buf[12:20], h.HeapEnd)
	binary.LittleEndian.PutUint64(buf[20:28], h.UsedBytes)
	binary.LittleEndian.PutUint64(buf[28:36], h.UsedBlocks)
	for i, slot := range h.RootSlots {
		off := rootSlotsOffset + i*8
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(slot))
	}

	h.Checksum = checksumOf(buf)
	binary.LittleEndian.PutUint64(buf[headerChecksumOffset:headerChecksumEnd], h.Checksum)
	return nil
}

// Deserialize reads the header from buf without validating it.
func (h *FileHeader) Deserialize(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrInvalidHeaderSize
	}

	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.ChunkSize = binary.LittleEndian.Uint32(buf[8:12])
	h.HeapEnd = binary.LittleEndian.Uint64(buf[12:20])
	h.UsedBytes = binary.LittleEndian.Uint64(buf[20:28])
	h.UsedBlocks = binary.LittleEndian.Uint64(buf[28:36])
	for i := range h.RootSlots {
		off := rootSlotsOffset + i*8
		h.RootSlots[i] = Record(binary.LittleEndian.Uint64(buf[off : off+8]))
	}
	h.Checksum = binary.LittleEndian.Uint64(buf[headerChecksumOffset:headerChecksumEnd])
	return nil
}

// DeserializeAndValidate reads the header and checks magic, version,
// chunk size and checksum.
func (h *FileHeader) DeserializeAndValidate(buf []byte) error {
	if err := h.Deserialize(buf); err != nil {
		return err
	}

	if h.Magic != Magic {
		return ErrInvalidMagic
	}
	if h.Version == 0 || h.Version > CurrentVersion {
		return ErrUnsupportedVersion
	}
	if h.ChunkSize < MinChunkSize || h.ChunkSize%BlockGranularity != 0 {
		return ErrInvalidChunkSize
	}
	if h.Checksum != checksumOf(buf) {
		return ErrHeaderChecksum
	}
	return nil
}

// IsTagstoreFile reports whether buf starts with the database magic number.
func IsTagstoreFile(buf []byte) bool {
	if len(buf) < 4 {
		return false
	}
	var magic [4]byte
	copy(magic[:], buf[0:4])
	return magic == Magic
}

func checksumOf(buf []byte) uint64 {
	return xxhash.Sum64(buf[0:headerChecksumOffset])
}
