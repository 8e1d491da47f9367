package tags

import (
	"github.com/pkg/errors"

	"github.com/KilimcininKorOglu/tagstore/internal/logging"
	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

// Tag record layout:
//
//	+-------------+-----------------+----------------+-------------------+
//	| node: u64   | taggerID: u64   | dataLen: u32   | payload[dataLen]  |
//	+-------------+-----------------+----------------+-------------------+
const (
	nodeOffset     = 0
	taggerIDOffset = 8
	dataLenOffset  = 16

	// HeaderSize is the size of a tag record without its payload.
	HeaderSize = 20
)

// StoredTag is a tag record in the database. Records are allocated with
// exactly HeaderSize+dataLen bytes, so a payload can shrink in place but
// never grow.
type StoredTag struct {
	db  storage.Store
	rec storage.Record
	log logging.Logger
}

var _ WritableTag = (*StoredTag)(nil)

// createStoredTag allocates a tag record with room for dataLen payload
// bytes. node and tagger id are left zero.
func createStoredTag(db storage.Store, dataLen int, log logging.Logger) (*StoredTag, error) {
	if dataLen < 0 {
		return nil, errors.Errorf("negative tag length %d", dataLen)
	}

	rec, err := db.Malloc(HeaderSize + dataLen)
	if err != nil {
		return nil, errors.Wrap(err, "allocate tag")
	}
	if err := db.PutInt(rec.Field(dataLenOffset), int32(dataLen)); err != nil {
		_ = db.Free(rec)
		return nil, errors.Wrap(err, "write tag length")
	}
	return &StoredTag{db: db, rec: rec, log: log}, nil
}

// loadStoredTag wraps an existing tag record.
func loadStoredTag(db storage.Store, rec storage.Record, log logging.Logger) *StoredTag {
	return &StoredTag{db: db, rec: rec, log: log}
}

// Record returns the record of the tag.
func (t *StoredTag) Record() storage.Record {
	return t.rec
}

// Node returns the record of the tagged node, or NullRecord on error.
func (t *StoredTag) Node() storage.Record {
	rec, err := t.db.GetRecPtr(t.rec.Field(nodeOffset))
	if err != nil {
		t.logError(err, "failed to read tag node")
		return storage.NullRecord
	}
	return rec
}

// TaggerIDRecord returns the interned tagger id record, or NullRecord on
// error.
func (t *StoredTag) TaggerIDRecord() storage.Record {
	rec, err := t.db.GetRecPtr(t.rec.Field(taggerIDOffset))
	if err != nil {
		t.logError(err, "failed to read tagger id")
		return storage.NullRecord
	}
	return rec
}

func (t *StoredTag) setNode(node storage.Record) error {
	return t.db.PutRecPtr(t.rec.Field(nodeOffset), node)
}

func (t *StoredTag) setTaggerID(id storage.Record) error {
	return t.db.PutRecPtr(t.rec.Field(taggerIDOffset), id)
}

// TaggerID returns the tagger id string, or "" on error.
func (t *StoredTag) TaggerID() string {
	id := t.TaggerIDRecord()
	if id.IsNull() {
		return ""
	}
	s, err := t.db.GetString(id)
	if err != nil {
		t.logError(err, "failed to read tagger id")
		return ""
	}
	return s
}

func (t *StoredTag) dataLen() (int, error) {
	n, err := t.db.GetInt(t.rec.Field(dataLenOffset))
	return int(n), err
}

// DataLen returns the payload length, or 0 on error.
func (t *StoredTag) DataLen() int {
	n, err := t.dataLen()
	if err != nil {
		t.logError(err, "failed to read tag length")
		return 0
	}
	return n
}

func (t *StoredTag) Byte(offset int) (byte, bool) {
	if !isInBounds(offset, 1, t.DataLen()) {
		return 0, false
	}
	b, err := t.db.GetByte(t.rec.Field(HeaderSize + offset))
	if err != nil {
		t.logError(err, "failed to read tag payload")
		return 0, false
	}
	return b, true
}

func (t *StoredTag) Bytes(offset, length int) []byte {
	dataLen := t.DataLen()
	if length < 0 {
		length = dataLen - offset
	}
	if !isInBounds(offset, length, dataLen) {
		return nil
	}

	buf := make([]byte, length)
	if err := t.db.GetBytes(t.rec.Field(HeaderSize+offset), buf); err != nil {
		t.logError(err, "failed to read tag payload")
		return nil
	}
	return buf
}

func (t *StoredTag) PutByte(offset int, b byte) bool {
	if !isInBounds(offset, 1, t.DataLen()) {
		return false
	}
	if err := t.db.PutByte(t.rec.Field(HeaderSize+offset), b); err != nil {
		t.logError(err, "failed to write tag payload")
		return false
	}
	return true
}

func (t *StoredTag) PutBytes(offset int, data []byte, length int) bool {
	dataLen := t.DataLen()
	length, full := writeLength(offset, data, length)
	if length > len(data) || !isInBounds(offset, length, dataLen) {
		return false
	}

	if err := t.db.PutBytes(t.rec.Field(HeaderSize+offset), data[:length]); err != nil {
		t.logError(err, "failed to write tag payload")
		return false
	}

	if full && length < dataLen {
		if err := t.db.PutInt(t.rec.Field(dataLenOffset), int32(length)); err != nil {
			t.logError(err, "failed to shrink tag")
			return false
		}
	}
	return true
}

// CloneWith allocates a new tag for the same node and tagger holding data.
// Either a fully written clone is returned or nothing is left allocated.
func (t *StoredTag) CloneWith(data []byte) (*StoredTag, error) {
	node, err := t.db.GetRecPtr(t.rec.Field(nodeOffset))
	if err != nil {
		return nil, errors.Wrap(err, "read tag node")
	}
	id, err := t.db.GetRecPtr(t.rec.Field(taggerIDOffset))
	if err != nil {
		return nil, errors.Wrap(err, "read tagger id")
	}

	clone, err := createStoredTag(t.db, len(data), t.log)
	if err != nil {
		return nil, err
	}

	err = clone.setNode(node)
	if err == nil {
		err = clone.setTaggerID(id)
	}
	if err == nil {
		err = t.db.PutBytes(clone.rec.Field(HeaderSize), data)
	}
	if err != nil {
		_ = t.db.Free(clone.rec)
		return nil, errors.Wrap(err, "write tag clone")
	}
	return clone, nil
}

func (t *StoredTag) logError(err error, msg string) {
	t.log.WithError(err).Error(msg, "tag", t.rec)
}
