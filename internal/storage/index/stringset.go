package index

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/KilimcininKorOglu/tagstore/internal/storage"
	"github.com/KilimcininKorOglu/tagstore/internal/storage/btree"
)

// DefaultCacheSize is the number of lookups a StringSet caches by default.
const DefaultCacheSize = 256

// Option configures a StringSet.
type Option func(*options)

type options struct {
	cacheSize int
	treeOpts  []btree.Option
}

// WithCacheSize sets the lookup cache capacity. Zero or less disables the
// cache.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithTreeOptions passes options to the underlying B-tree.
func WithTreeOptions(opts ...btree.Option) Option {
	return func(o *options) { o.treeOpts = append(o.treeOpts, opts...) }
}

// StringSet interns strings in a database. Each distinct string is stored
// once and identified by its record; records are never freed, so a cached
// lookup stays valid for the lifetime of the database.
//
// StringSet is not safe for concurrent use.
type StringSet struct {
	db    storage.Store
	tree  *btree.BTree
	cache *lru.Cache[string, storage.Record]
}

// NewStringSet creates a set whose B-tree root pointer lives at rootAddr.
func NewStringSet(db storage.Store, rootAddr storage.Record, opts ...Option) *StringSet {
	o := options{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	cmp := btree.ComparatorFunc(func(a, b storage.Record) (int, error) {
		return db.CompareStrings(a, b)
	})

	s := &StringSet{
		db:   db,
		tree: btree.New(db, rootAddr, cmp, o.treeOpts...),
	}
	if o.cacheSize > 0 {
		// lru.New only fails for non-positive sizes.
		s.cache, _ = lru.New[string, storage.Record](o.cacheSize)
	}
	return s
}

// Tree returns the underlying B-tree.
func (s *StringSet) Tree() *btree.BTree {
	return s.tree
}

// Find returns the record of str, or NullRecord if str was never added.
func (s *StringSet) Find(str string) (storage.Record, error) {
	if s.cache != nil {
		if rec, ok := s.cache.Get(str); ok {
			return rec, nil
		}
	}

	found := storage.NullRecord
	desc := func(rec storage.Record) (int, error) {
		return s.db.CompareString(rec, str)
	}
	err := s.tree.Accept(btree.Range(desc, func(rec storage.Record) (bool, error) {
		found = rec
		return false, nil
	}))
	if err != nil {
		return storage.NullRecord, errors.Wrapf(err, "find %q", str)
	}

	if !found.IsNull() && s.cache != nil {
		s.cache.Add(str, found)
	}
	return found, nil
}

// Add returns the record of str, storing it first if needed.
func (s *StringSet) Add(str string) (storage.Record, error) {
	if rec, err := s.Find(str); err != nil || !rec.IsNull() {
		return rec, err
	}

	rec, err := s.db.NewString(str)
	if err != nil {
		return storage.NullRecord, errors.Wrapf(err, "store %q", str)
	}

	got, err := s.tree.Insert(rec)
	if err != nil || got != rec {
		if ferr := s.db.Free(rec); ferr != nil && err == nil {
			err = ferr
		}
	}
	if err != nil {
		return storage.NullRecord, errors.Wrapf(err, "add %q", str)
	}

	if s.cache != nil {
		s.cache.Add(str, got)
	}
	return got, nil
}

// Strings returns every string of the set in byte order.
func (s *StringSet) Strings() ([]string, error) {
	var out []string
	err := s.tree.Accept(btree.MatchAll(func(rec storage.Record) (bool, error) {
		str, err := s.db.GetString(rec)
		if err != nil {
			return false, err
		}
		out = append(out, str)
		return true, nil
	}))
	return out, err
}

// CacheLen returns the number of cached lookups.
func (s *StringSet) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}
