package btree

import (
	"github.com/pkg/errors"

	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

// Validate checks the structural invariants of the tree: strict ordering
// within and across nodes, node occupancy and uniform leaf depth.
func (t *BTree) Validate() error {
	rootRec, err := t.root()
	if err != nil || rootRec.IsNull() {
		return err
	}
	leafDepth := -1
	return t.validate(rootRec, true, storage.NullRecord, storage.NullRecord, 0, &leafDepth)
}

// validate checks the subtree at rec. lo and hi bound its records
// exclusively; NullRecord means unbounded.
func (t *BTree) validate(rec storage.Record, isRoot bool, lo, hi storage.Record, depth int, leafDepth *int) error {
	n, err := t.readNode(rec)
	if err != nil {
		return err
	}

	if len(n.keys) == 0 {
		return errors.Wrapf(ErrCorruptNode, "node %s is empty", rec)
	}
	if !isRoot && len(n.keys) < t.degree-1 {
		return errors.Wrapf(ErrCorruptNode, "node %s underfull: %d records", rec, len(n.keys))
	}

	for i, k := range n.keys {
		if i > 0 {
			if err := t.checkLess(n.keys[i-1], k); err != nil {
				return err
			}
		}
		if !lo.IsNull() {
			if err := t.checkLess(lo, k); err != nil {
				return err
			}
		}
		if !hi.IsNull() {
			if err := t.checkLess(k, hi); err != nil {
				return err
			}
		}
	}

	if n.leaf() {
		if *leafDepth < 0 {
			*leafDepth = depth
		} else if *leafDepth != depth {
			return errors.Wrapf(ErrCorruptNode, "leaf %s at depth %d, want %d", rec, depth, *leafDepth)
		}
		return nil
	}

	for i, c := range n.children {
		clo, chi := lo, hi
		if i > 0 {
			clo = n.keys[i-1]
		}
		if i < len(n.keys) {
			chi = n.keys[i]
		}
		if err := t.validate(c, false, clo, chi, depth+1, leafDepth); err != nil {
			return err
		}
	}
	return nil
}

func (t *BTree) checkLess(a, b storage.Record) error {
	c, err := t.cmp.Compare(a, b)
	if err != nil {
		return err
	}
	if c >= 0 {
		return errors.Wrapf(ErrCorruptNode, "records %s and %s out of order", a, b)
	}
	return nil
}
