package btree

import (
	"github.com/pkg/errors"

	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

// Delete removes the record comparing equal to rec from the tree. The
// removed record itself is not freed. Returns ErrKeyNotFound if no such
// record exists.
//
// The walk is single pass: before descending into a child holding only
// the minimum number of records, the child borrows from a sibling or is
// merged with one.
func (t *BTree) Delete(rec storage.Record) error {
	rootRec, err := t.root()
	if err != nil {
		return err
	}
	if rootRec.IsNull() {
		return errors.Wrapf(ErrKeyNotFound, "delete %s", rec)
	}

	x, err := t.readNode(rootRec)
	if err != nil {
		return err
	}

	for {
		i, found, err := t.search(x, rec)
		if err != nil {
			return err
		}

		if x.leaf() {
			if !found {
				return errors.Wrapf(ErrKeyNotFound, "delete %s", rec)
			}
			x.keys = removeAt(x.keys, i)
			if len(x.keys) == 0 && x.rec == rootRec {
				if err := t.setRoot(storage.NullRecord); err != nil {
					return err
				}
				t.freeNode(x.rec)
				return nil
			}
			return t.writeNode(x)
		}

		parent := x
		if found {
			x, rec, err = t.deleteInternal(x, i, rootRec)
		} else {
			x, err = t.descend(x, i, rootRec)
		}
		if err != nil {
			return err
		}

		// A merge that empties the root makes the merged child the root.
		if parent.rec == rootRec && len(parent.keys) == 0 {
			rootRec = x.rec
		}
	}
}

// deleteInternal handles a match in the internal node x at index i. It
// returns the node to continue in and the record to delete from it.
func (t *BTree) deleteInternal(x *node, i int, rootRec storage.Record) (*node, storage.Record, error) {
	y, err := t.readNode(x.children[i])
	if err != nil {
		return nil, storage.NullRecord, err
	}
	if len(y.keys) >= t.degree {
		pred, err := t.maxRecord(y)
		if err != nil {
			return nil, storage.NullRecord, err
		}
		x.keys[i] = pred
		return y, pred, t.writeNode(x)
	}

	z, err := t.readNode(x.children[i+1])
	if err != nil {
		return nil, storage.NullRecord, err
	}
	if len(z.keys) >= t.degree {
		succ, err := t.minRecord(z)
		if err != nil {
			return nil, storage.NullRecord, err
		}
		x.keys[i] = succ
		return z, succ, t.writeNode(x)
	}

	rec := x.keys[i]
	y, err = t.merge(x, i, y, z, rootRec)
	return y, rec, err
}

// descend prepares child i of x so that it holds at least degree records
// and returns it.
func (t *BTree) descend(x *node, i int, rootRec storage.Record) (*node, error) {
	c, err := t.readNode(x.children[i])
	if err != nil {
		return nil, err
	}
	if len(c.keys) >= t.degree {
		return c, nil
	}

	var left, right *node
	if i > 0 {
		if left, err = t.readNode(x.children[i-1]); err != nil {
			return nil, err
		}
		if len(left.keys) >= t.degree {
			return c, t.borrowLeft(x, i, left, c)
		}
	}
	if i < len(x.keys) {
		if right, err = t.readNode(x.children[i+1]); err != nil {
			return nil, err
		}
		if len(right.keys) >= t.degree {
			return c, t.borrowRight(x, i, c, right)
		}
	}

	if left != nil {
		return t.merge(x, i-1, left, c, rootRec)
	}
	return t.merge(x, i, c, right, rootRec)
}

// borrowLeft rotates the last record of left through x into c.
func (t *BTree) borrowLeft(x *node, i int, left, c *node) error {
	c.keys = insertAt(c.keys, 0, x.keys[i-1])
	x.keys[i-1] = left.keys[len(left.keys)-1]
	left.keys = left.keys[:len(left.keys)-1]

	if !c.leaf() {
		c.children = insertAt(c.children, 0, left.children[len(left.children)-1])
		left.children = left.children[:len(left.children)-1]
	}

	return t.writeAll(c, x, left)
}

// borrowRight rotates the first record of right through x into c.
func (t *BTree) borrowRight(x *node, i int, c, right *node) error {
	c.keys = append(c.keys, x.keys[i])
	x.keys[i] = right.keys[0]
	right.keys = removeAt(right.keys, 0)

	if !c.leaf() {
		c.children = append(c.children, right.children[0])
		right.children = removeAt(right.children, 0)
	}

	return t.writeAll(c, x, right)
}

// merge folds record i of x and its right child z into the left child y,
// frees z and returns y. If x is the root and becomes empty, y becomes the
// new root and x is freed.
func (t *BTree) merge(x *node, i int, y, z *node, rootRec storage.Record) (*node, error) {
	y.keys = append(y.keys, x.keys[i])
	y.keys = append(y.keys, z.keys...)
	y.children = append(y.children, z.children...)

	x.keys = removeAt(x.keys, i)
	x.children = removeAt(x.children, i+1)

	if err := t.writeNode(y); err != nil {
		return nil, err
	}

	if len(x.keys) == 0 && x.rec == rootRec {
		if err := t.setRoot(y.rec); err != nil {
			return nil, err
		}
		t.freeNode(x.rec)
	} else if err := t.writeNode(x); err != nil {
		return nil, err
	}

	t.freeNode(z.rec)
	return y, nil
}

func (t *BTree) writeAll(nodes ...*node) error {
	for _, n := range nodes {
		if err := t.writeNode(n); err != nil {
			return err
		}
	}
	return nil
}

// maxRecord returns the greatest record in the subtree rooted at n.
func (t *BTree) maxRecord(n *node) (storage.Record, error) {
	for !n.leaf() {
		var err error
		if n, err = t.readNode(n.children[len(n.children)-1]); err != nil {
			return storage.NullRecord, err
		}
	}
	return n.keys[len(n.keys)-1], nil
}

// minRecord returns the smallest record in the subtree rooted at n.
func (t *BTree) minRecord(n *node) (storage.Record, error) {
	for !n.leaf() {
		var err error
		if n, err = t.readNode(n.children[0]); err != nil {
			return storage.NullRecord, err
		}
	}
	return n.keys[0], nil
}
