package btree

import (
	"github.com/pkg/errors"

	"github.com/KilimcininKorOglu/tagstore/internal/logging"
	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

// Tree errors.
var (
	ErrKeyNotFound          = errors.New("key not found")
	ErrCorruptNode          = errors.New("corrupt b-tree node")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrNullRecord           = errors.New("null record cannot be stored")
)

// Comparator orders two records stored in a tree.
type Comparator interface {
	Compare(a, b storage.Record) (int, error)
}

// ComparatorFunc adapts a function to the Comparator interface.
type ComparatorFunc func(a, b storage.Record) (int, error)

// Compare calls f(a, b).
func (f ComparatorFunc) Compare(a, b storage.Record) (int, error) {
	return f(a, b)
}

// Option configures a BTree.
type Option func(*BTree)

// WithDegree sets the minimum degree. Values below MinDegree are raised to
// MinDegree. All trees sharing a root pointer must use the same degree.
func WithDegree(degree int) Option {
	return func(t *BTree) {
		if degree < MinDegree {
			degree = MinDegree
		}
		t.degree = degree
	}
}

// WithLogger sets the logger used for non-fatal cleanup failures.
func WithLogger(l logging.Logger) Option {
	return func(t *BTree) {
		if l != nil {
			t.log = l
		}
	}
}

// BTree is an ordered set of records stored in a database. The tree keeps
// only record pointers; the comparator reads whatever key fields it needs
// from the records themselves.
//
// BTree is not safe for concurrent use.
type BTree struct {
	db       storage.Store
	rootAddr storage.Record
	cmp      Comparator
	log      logging.Logger

	degree      int
	maxRecords  int
	maxChildren int
}

// New creates a tree whose root pointer lives at rootAddr. A zero root
// pointer is an empty tree. New performs no I/O.
func New(db storage.Store, rootAddr storage.Record, cmp Comparator, opts ...Option) *BTree {
	t := &BTree{
		db:       db,
		rootAddr: rootAddr,
		cmp:      cmp,
		log:      logging.NewNop(),
		degree:   DefaultDegree,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.maxRecords = 2*t.degree - 1
	t.maxChildren = 2 * t.degree
	return t
}

// Degree returns the minimum degree of the tree.
func (t *BTree) Degree() int {
	return t.degree
}

// MaxRecords returns the record capacity of a node.
func (t *BTree) MaxRecords() int {
	return t.maxRecords
}

// MaxChildren returns the child capacity of a node.
func (t *BTree) MaxChildren() int {
	return t.maxChildren
}

// RootAddr returns the address of the root pointer.
func (t *BTree) RootAddr() storage.Record {
	return t.rootAddr
}

func (t *BTree) root() (storage.Record, error) {
	rec, err := t.db.GetRecPtr(t.rootAddr)
	return rec, errors.Wrap(err, "read b-tree root")
}

func (t *BTree) setRoot(rec storage.Record) error {
	return errors.Wrap(t.db.PutRecPtr(t.rootAddr, rec), "write b-tree root")
}

// IsEmpty reports whether the tree holds no records.
func (t *BTree) IsEmpty() (bool, error) {
	rec, err := t.root()
	if err != nil {
		return false, err
	}
	return rec.IsNull(), nil
}

// Count returns the number of records in the tree.
func (t *BTree) Count() (int, error) {
	n := 0
	err := t.Accept(MatchAll(func(storage.Record) (bool, error) {
		n++
		return true, nil
	}))
	return n, err
}

// Destroy frees every node of the tree and resets the root pointer. The
// records referenced by the tree are left alone.
func (t *BTree) Destroy() error {
	rec, err := t.root()
	if err != nil || rec.IsNull() {
		return err
	}
	if err := t.destroy(rec); err != nil {
		return err
	}
	return t.setRoot(storage.NullRecord)
}

func (t *BTree) destroy(rec storage.Record) error {
	n, err := t.readNode(rec)
	if err != nil {
		return err
	}
	for _, c := range n.children {
		if err := t.destroy(c); err != nil {
			return err
		}
	}
	return errors.Wrapf(t.db.Free(rec), "free node %s", rec)
}
