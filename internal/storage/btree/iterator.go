package btree

import (
	"iter"

	"github.com/KilimcininKorOglu/tagstore/internal/logging"
	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

// Iterable is a lazy sequence of objects built from the records of a tree
// range. Creating it performs no I/O; each Iterator call takes a fresh
// snapshot of the matching records.
type Iterable[T any] struct {
	tree    *BTree
	desc    Descriptor
	factory func(storage.Record) T
	log     logging.Logger
}

// NewIterable creates an iterable over the records of tree selected by
// desc. A nil desc selects every record. factory converts records to
// values as they are consumed.
func NewIterable[T any](tree *BTree, desc Descriptor, factory func(storage.Record) T, log logging.Logger) *Iterable[T] {
	if log == nil {
		log = logging.NewNop()
	}
	return &Iterable[T]{
		tree:    tree,
		desc:    desc,
		factory: factory,
		log:     log,
	}
}

// Iterator snapshots the matching records. A storage error during the
// snapshot is logged and yields an empty iterator.
func (it *Iterable[T]) Iterator() *Iterator[T] {
	if it == nil || it.tree == nil {
		return &Iterator[T]{}
	}

	var recs []storage.Record
	collect := func(rec storage.Record) (bool, error) {
		recs = append(recs, rec)
		return true, nil
	}

	var v Visitor
	if it.desc == nil {
		v = MatchAll(collect)
	} else {
		v = Range(it.desc, collect)
	}

	if err := it.tree.Accept(v); err != nil {
		it.log.WithError(err).Error("failed to scan b-tree")
		return &Iterator[T]{factory: it.factory}
	}

	return &Iterator[T]{recs: recs, factory: it.factory}
}

// All returns the sequence for use with range.
func (it *Iterable[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		i := it.Iterator()
		for {
			v, ok := i.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Collect returns all values of a fresh snapshot.
func (it *Iterable[T]) Collect() []T {
	var out []T
	for v := range it.All() {
		out = append(out, v)
	}
	return out
}

// Iterator walks a snapshot of records.
type Iterator[T any] struct {
	recs    []storage.Record
	pos     int
	factory func(storage.Record) T
}

// HasNext reports whether Next will return a value.
func (i *Iterator[T]) HasNext() bool {
	return i.pos < len(i.recs)
}

// Next converts and returns the next record.
func (i *Iterator[T]) Next() (T, bool) {
	var zero T
	if !i.HasNext() {
		return zero, false
	}
	rec := i.recs[i.pos]
	i.pos++
	return i.factory(rec), true
}

// Remove is not supported.
func (i *Iterator[T]) Remove() error {
	return ErrUnsupportedOperation
}
