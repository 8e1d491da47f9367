package btree

import (
	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

// Insert adds rec to the tree. If a record comparing equal is already
// present, the tree is left unchanged and that record is returned instead;
// callers detect a duplicate by comparing the result with rec.
//
// Full nodes are split on the way down, so the walk never has to climb
// back up. Node records allocated by a failed insert are freed again.
func (t *BTree) Insert(rec storage.Record) (storage.Record, error) {
	if rec.IsNull() {
		return storage.NullRecord, ErrNullRecord
	}

	rootRec, err := t.root()
	if err != nil {
		return storage.NullRecord, err
	}

	if rootRec.IsNull() {
		return rec, t.insertFirst(rec)
	}

	x, err := t.readNode(rootRec)
	if err != nil {
		return storage.NullRecord, err
	}

	if i, found, err := t.search(x, rec); err != nil {
		return storage.NullRecord, err
	} else if found {
		return x.keys[i], nil
	}

	if t.full(x) {
		if x, err = t.splitRoot(x); err != nil {
			return storage.NullRecord, err
		}
	}

	for {
		i, found, err := t.search(x, rec)
		if err != nil {
			return storage.NullRecord, err
		}
		if found {
			return x.keys[i], nil
		}

		if x.leaf() {
			x.keys = insertAt(x.keys, i, rec)
			if err := t.writeNode(x); err != nil {
				return storage.NullRecord, err
			}
			return rec, nil
		}

		c, err := t.readNode(x.children[i])
		if err != nil {
			return storage.NullRecord, err
		}

		j, found, err := t.search(c, rec)
		if err != nil {
			return storage.NullRecord, err
		}
		if found {
			return c.keys[j], nil
		}

		if t.full(c) {
			z, err := t.splitChild(x, i, c, nil)
			if err != nil {
				return storage.NullRecord, err
			}
			cmp, err := t.cmp.Compare(x.keys[i], rec)
			if err != nil {
				return storage.NullRecord, err
			}
			if cmp < 0 {
				c = z
			}
		}

		x = c
	}
}

// insertFirst creates a single leaf root holding rec.
func (t *BTree) insertFirst(rec storage.Record) error {
	leaf, err := t.allocNode()
	if err != nil {
		return err
	}

	leaf.keys = []storage.Record{rec}
	if err := t.writeNode(leaf); err != nil {
		t.freeNode(leaf.rec)
		return err
	}
	if err := t.setRoot(leaf.rec); err != nil {
		t.freeNode(leaf.rec)
		return err
	}
	return nil
}

// splitRoot grows the tree by one level and returns the new root.
func (t *BTree) splitRoot(oldRoot *node) (*node, error) {
	s, err := t.allocNode()
	if err != nil {
		return nil, err
	}
	s.children = []storage.Record{oldRoot.rec}

	_, err = t.splitChild(s, 0, oldRoot, func() error {
		return t.setRoot(s.rec)
	})
	if err != nil {
		t.freeNode(s.rec)
		return nil, err
	}
	return s, nil
}

// splitChild moves the upper half of the full child y of x (at index i)
// into a new node and lifts the median into x. link, if set, runs after x
// is written. y is truncated last so that a failure up to that point
// leaves the tree unchanged apart from the freed new node.
func (t *BTree) splitChild(x *node, i int, y *node, link func() error) (*node, error) {
	z, err := t.allocNode()
	if err != nil {
		return nil, err
	}

	mid := t.degree - 1
	median := y.keys[mid]

	z.keys = append([]storage.Record(nil), y.keys[mid+1:]...)
	if !y.leaf() {
		z.children = append([]storage.Record(nil), y.children[mid+1:]...)
	}
	if err := t.writeNode(z); err != nil {
		t.freeNode(z.rec)
		return nil, err
	}

	keys := append([]storage.Record(nil), x.keys...)
	children := append([]storage.Record(nil), x.children...)
	x.keys = insertAt(x.keys, i, median)
	x.children = insertAt(x.children, i+1, z.rec)

	undo := func(err error) (*node, error) {
		x.keys, x.children = keys, children
		t.freeNode(z.rec)
		return nil, err
	}

	if err := t.writeNode(x); err != nil {
		return undo(err)
	}
	if link != nil {
		if err := link(); err != nil {
			return undo(err)
		}
	}

	y.keys = y.keys[:mid]
	if !y.leaf() {
		y.children = y.children[:mid+1]
	}
	if err := t.writeNode(y); err != nil {
		return nil, err
	}
	return z, nil
}
