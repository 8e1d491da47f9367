package storage

import (
	"strings"

	"github.com/pkg/errors"
)

// Stored strings are laid out as a uint32 byte length followed by the UTF-8
// bytes.
const stringLengthSize = 4

// ErrStringTooLong is returned when a string does not fit in one record.
var ErrStringTooLong = errors.New("string too long")

// NewString stores s in a fresh record.
func (db *Database) NewString(s string) (Record, error) {
	if len(s) > MaxMallocSize-stringLengthSize {
		return NullRecord, errors.Wrapf(ErrStringTooLong, "%d bytes", len(s))
	}

	rec, err := db.Malloc(stringLengthSize + len(s))
	if err != nil {
		return NullRecord, err
	}

	// A fresh record is in bounds; errors here mean the mapping went away.
	if err := db.PutInt(rec, int32(len(s))); err != nil {
		_ = db.Free(rec)
		return NullRecord, err
	}
	if err := db.PutBytes(rec.Field(stringLengthSize), []byte(s)); err != nil {
		_ = db.Free(rec)
		return NullRecord, err
	}
	return rec, nil
}

// stringBytes returns the mapped bytes of the string stored at rec. The
// slice is only valid until the next allocation.
func (db *Database) stringBytes(rec Record) ([]byte, error) {
	n, err := db.GetInt(rec)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > MaxMallocSize {
		return nil, errors.Wrapf(ErrInvalidRecord, "string at %s has length %d", rec, n)
	}
	return db.span(rec.Field(stringLengthSize), int(n), false)
}

// GetString reads the string stored at rec.
func (db *Database) GetString(rec Record) (string, error) {
	b, err := db.stringBytes(rec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareString compares the string stored at rec with s byte-wise.
func (db *Database) CompareString(rec Record, s string) (int, error) {
	b, err := db.stringBytes(rec)
	if err != nil {
		return 0, err
	}
	return strings.Compare(string(b), s), nil
}

// CompareStrings compares the strings stored at a and b byte-wise.
func (db *Database) CompareStrings(a, b Record) (int, error) {
	ab, err := db.stringBytes(a)
	if err != nil {
		return 0, err
	}
	bb, err := db.stringBytes(b)
	if err != nil {
		return 0, err
	}
	return strings.Compare(string(ab), string(bb)), nil
}
