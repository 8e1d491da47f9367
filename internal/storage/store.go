package storage

// Store is the record-addressed view of a Database used by the B-tree and
// the tag index. Every operation returns an error instead of panicking so
// that callers can degrade gracefully on storage failures.
type Store interface {
	// Malloc allocates a zero-filled record with room for size bytes.
	Malloc(size int) (Record, error)
	// Free releases a record.
	Free(rec Record) error

	GetByte(addr Record) (byte, error)
	PutByte(addr Record, v byte) error
	GetInt(addr Record) (int32, error)
	PutInt(addr Record, v int32) error
	GetRecPtr(addr Record) (Record, error)
	PutRecPtr(addr Record, v Record) error
	GetBytes(addr Record, buf []byte) error
	PutBytes(addr Record, data []byte) error

	// NewString stores s in a fresh record.
	NewString(s string) (Record, error)
	// GetString reads the string stored at rec.
	GetString(rec Record) (string, error)
	// CompareString compares the string stored at rec with s.
	CompareString(rec Record, s string) (int, error)
	// CompareStrings compares two stored strings.
	CompareStrings(a, b Record) (int, error)
}
