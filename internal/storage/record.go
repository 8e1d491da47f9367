package storage

import "fmt"

// Record is an absolute byte offset into the database file identifying the
// start of a stored structure. Records are never reused while referenced;
// once freed, every copy of the offset is invalid.
type Record uint64

// NullRecord is the null record sentinel.
const NullRecord Record = 0

// IsNull returns true for the null record.
func (r Record) IsNull() bool {
	return r == NullRecord
}

// Field returns the address of the field offset bytes into the record.
func (r Record) Field(offset int) Record {
	return r + Record(offset)
}

// String returns a hex representation of the record.
func (r Record) String() string {
	return fmt.Sprintf("%#x", uint64(r))
}
