package btree

import (
	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

// Visitor drives Accept. Compare returns the order of rec relative to the
// visitor's target: negative if rec sorts before it, positive if after,
// zero if rec is in the visited range. Visit is called for every record in
// the range, in tree order; returning false stops the walk.
type Visitor interface {
	Compare(rec storage.Record) (int, error)
	Visit(rec storage.Record) (bool, error)
}

// Accept walks the records for which v.Compare returns zero. The target
// range must be contiguous in tree order.
func (t *BTree) Accept(v Visitor) error {
	rootRec, err := t.root()
	if err != nil || rootRec.IsNull() {
		return err
	}
	_, err = t.accept(rootRec, v)
	return err
}

func (t *BTree) accept(rec storage.Record, v Visitor) (bool, error) {
	n, err := t.readNode(rec)
	if err != nil {
		return false, err
	}

	// First record not sorting before the target.
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c, err := v.Compare(n.keys[mid])
		if err != nil {
			return false, err
		}
		if c < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	for i := lo; i < len(n.keys); i++ {
		c, err := v.Compare(n.keys[i])
		if err != nil {
			return false, err
		}
		if c > 0 {
			// Past the range; only the left subtree can still match.
			if n.leaf() {
				return true, nil
			}
			return t.accept(n.children[i], v)
		}

		if !n.leaf() {
			if more, err := t.accept(n.children[i], v); err != nil || !more {
				return false, err
			}
		}
		if more, err := v.Visit(n.keys[i]); err != nil || !more {
			return false, err
		}
	}

	if n.leaf() {
		return true, nil
	}
	return t.accept(n.children[len(n.keys)], v)
}

// VisitFunc is called for each visited record.
type VisitFunc func(rec storage.Record) (bool, error)

type matchAll struct {
	fn VisitFunc
}

// MatchAll returns a visitor that visits every record of a tree.
func MatchAll(fn VisitFunc) Visitor {
	return matchAll{fn: fn}
}

func (matchAll) Compare(storage.Record) (int, error) { return 0, nil }

func (m matchAll) Visit(rec storage.Record) (bool, error) { return m.fn(rec) }

// Descriptor orders a record relative to a search target, as in
// Visitor.Compare.
type Descriptor func(rec storage.Record) (int, error)

type rangeVisitor struct {
	desc Descriptor
	fn   VisitFunc
}

// Range returns a visitor that visits the records for which desc returns
// zero.
func Range(desc Descriptor, fn VisitFunc) Visitor {
	return rangeVisitor{desc: desc, fn: fn}
}

func (r rangeVisitor) Compare(rec storage.Record) (int, error) { return r.desc(rec) }

func (r rangeVisitor) Visit(rec storage.Record) (bool, error) { return r.fn(rec) }
