package btree

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

// B-tree constants.
const (
	// DefaultDegree is the minimum degree t of a tree. A node holds between
	// t-1 and 2t-1 records.
	DefaultDegree = 8

	// MinDegree is the smallest supported degree.
	MinDegree = 2

	slotSize = 8
)

// node is the in-memory copy of one node record.
//
// On disk a node is MaxRecords record slots followed by MaxChildren child
// slots, 8 bytes each. Empty slots are zero, so the record count is the
// length of the non-zero prefix and a node is a leaf when child 0 is zero.
type node struct {
	rec      storage.Record
	keys     []storage.Record
	children []storage.Record
}

func (n *node) leaf() bool {
	return len(n.children) == 0
}

// nodeSize returns the size of a node record in bytes.
func (t *BTree) nodeSize() int {
	return (t.maxRecords + t.maxChildren) * slotSize
}

// full reports whether n cannot take another record.
func (t *BTree) full(n *node) bool {
	return len(n.keys) == t.maxRecords
}

// readNode loads the node stored at rec.
func (t *BTree) readNode(rec storage.Record) (*node, error) {
	if rec.IsNull() {
		return nil, errors.Wrap(ErrCorruptNode, "null node pointer")
	}

	buf := make([]byte, t.nodeSize())
	if err := t.db.GetBytes(rec, buf); err != nil {
		return nil, errors.Wrapf(err, "read node %s", rec)
	}

	n := &node{rec: rec}
	for i := 0; i < t.maxRecords; i++ {
		k := storage.Record(binary.LittleEndian.Uint64(buf[i*slotSize:]))
		if k.IsNull() {
			break
		}
		n.keys = append(n.keys, k)
	}

	base := t.maxRecords * slotSize
	if binary.LittleEndian.Uint64(buf[base:]) == 0 {
		return n, nil
	}

	n.children = make([]storage.Record, len(n.keys)+1)
	for i := range n.children {
		c := storage.Record(binary.LittleEndian.Uint64(buf[base+i*slotSize:]))
		if c.IsNull() {
			return nil, errors.Wrapf(ErrCorruptNode, "node %s: missing child %d", rec, i)
		}
		n.children[i] = c
	}
	return n, nil
}

// writeNode stores n, clearing unused slots.
func (t *BTree) writeNode(n *node) error {
	buf := make([]byte, t.nodeSize())
	for i, k := range n.keys {
		binary.LittleEndian.PutUint64(buf[i*slotSize:], uint64(k))
	}

	base := t.maxRecords * slotSize
	for i, c := range n.children {
		binary.LittleEndian.PutUint64(buf[base+i*slotSize:], uint64(c))
	}

	return errors.Wrapf(t.db.PutBytes(n.rec, buf), "write node %s", n.rec)
}

// allocNode allocates an empty node record.
func (t *BTree) allocNode() (*node, error) {
	rec, err := t.db.Malloc(t.nodeSize())
	if err != nil {
		return nil, errors.Wrap(err, "allocate node")
	}
	return &node{rec: rec}, nil
}

// freeNode releases a node record. Failures are logged, the node is lost
// either way.
func (t *BTree) freeNode(rec storage.Record) {
	if err := t.db.Free(rec); err != nil {
		t.log.WithError(err).Warn("failed to free b-tree node", "node", rec)
	}
}

// search returns the index of the first record of n that is not less than
// rec, and whether that record compares equal.
func (t *BTree) search(n *node, rec storage.Record) (int, bool, error) {
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c, err := t.cmp.Compare(n.keys[mid], rec)
		if err != nil {
			return 0, false, err
		}
		switch {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid
		default:
			return mid, true, nil
		}
	}
	return lo, false, nil
}

func insertAt(s []storage.Record, i int, v storage.Record) []storage.Record {
	s = append(s, storage.NullRecord)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeAt(s []storage.Record, i int) []storage.Record {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}
