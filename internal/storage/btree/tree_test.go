package btree

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"slices"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/tagstore/internal/logging"
	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

// =============================================================================
// Helpers
// =============================================================================

// intTree is a tree of records holding a single int32 key.
type intTree struct {
	t    *testing.T
	db   *storage.Database
	tree *BTree
}

func newIntTree(t *testing.T, opts ...Option) *intTree {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "tree.db"), storage.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	root, err := db.RootSlot(0)
	require.NoError(t, err)

	return &intTree{t: t, db: db, tree: New(db, root, intComparator(db), opts...)}
}

func intComparator(db storage.Store) Comparator {
	return ComparatorFunc(func(a, b storage.Record) (int, error) {
		av, err := db.GetInt(a)
		if err != nil {
			return 0, err
		}
		bv, err := db.GetInt(b)
		if err != nil {
			return 0, err
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	})
}

func (it *intTree) key(v int32) storage.Record {
	rec, err := it.db.Malloc(4)
	require.NoError(it.t, err)
	require.NoError(it.t, it.db.PutInt(rec, v))
	return rec
}

// insert stores v, freeing the new record if v was already present.
func (it *intTree) insert(v int32) (storage.Record, bool) {
	rec := it.key(v)
	got, err := it.tree.Insert(rec)
	require.NoError(it.t, err)
	if got != rec {
		require.NoError(it.t, it.db.Free(rec))
		return got, false
	}
	return rec, true
}

func (it *intTree) values() []int32 {
	var out []int32
	require.NoError(it.t, it.tree.Accept(MatchAll(func(rec storage.Record) (bool, error) {
		v, err := it.db.GetInt(rec)
		out = append(out, v)
		return true, err
	})))
	return out
}

func (it *intTree) usedBlocks() int {
	n := 0
	require.NoError(it.t, it.db.Walk(func(bi storage.BlockInfo) bool {
		if bi.Used {
			n++
		}
		return true
	}))
	return n
}

// valueDescriptor selects records with lo <= key < hi.
func valueDescriptor(db storage.Store, lo, hi int32) Descriptor {
	return func(rec storage.Record) (int, error) {
		v, err := db.GetInt(rec)
		if err != nil {
			return 0, err
		}
		switch {
		case v < lo:
			return -1, nil
		case v >= hi:
			return 1, nil
		}
		return 0, nil
	}
}

// faultyStore fails selected operations of the wrapped store.
type faultyStore struct {
	storage.Store
	failGetBytes  bool
	failPutRecPtr bool
}

var errInjected = errors.New("injected storage failure")

func (f *faultyStore) GetBytes(addr storage.Record, buf []byte) error {
	if f.failGetBytes {
		return errInjected
	}
	return f.Store.GetBytes(addr, buf)
}

func (f *faultyStore) PutRecPtr(addr, v storage.Record) error {
	if f.failPutRecPtr {
		return errInjected
	}
	return f.Store.PutRecPtr(addr, v)
}

// =============================================================================
// Tree Tests
// =============================================================================

func TestNewDefaults(t *testing.T) {
	it := newIntTree(t)
	assert.Equal(t, DefaultDegree, it.tree.Degree())
	assert.Equal(t, 2*DefaultDegree-1, it.tree.MaxRecords())
	assert.Equal(t, 2*DefaultDegree, it.tree.MaxChildren())

	small := New(it.db, it.tree.RootAddr(), intComparator(it.db), WithDegree(1))
	assert.Equal(t, MinDegree, small.Degree())
}

func TestEmptyTree(t *testing.T) {
	it := newIntTree(t)

	empty, err := it.tree.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	n, err := it.tree.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.NoError(t, it.tree.Validate())
	assert.ErrorIs(t, it.tree.Delete(it.key(1)), ErrKeyNotFound)

	_, err = it.tree.Insert(storage.NullRecord)
	assert.ErrorIs(t, err, ErrNullRecord)
}

func TestInsertReturnsExisting(t *testing.T) {
	it := newIntTree(t, WithDegree(2))

	for v := int32(0); v < 20; v++ {
		_, inserted := it.insert(v)
		require.True(t, inserted)
	}

	dup := it.key(7)
	got, err := it.tree.Insert(dup)
	require.NoError(t, err)
	assert.NotEqual(t, dup, got)

	v, err := it.db.GetInt(got)
	require.NoError(t, err)
	assert.EqualValues(t, 7, v)

	n, err := it.tree.Count()
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestRandomizedAgainstReference(t *testing.T) {
	for _, degree := range []int{2, 3, DefaultDegree} {
		t.Run(fmt.Sprintf("degree=%d", degree), func(t *testing.T) {
			it := newIntTree(t, WithDegree(degree))
			rng := rand.New(rand.NewSource(int64(degree)))

			live := map[int32]storage.Record{}
			for i := 0; i < 600; i++ {
				v := int32(rng.Intn(400))
				rec, inserted := it.insert(v)
				if prev, ok := live[v]; ok {
					require.False(t, inserted)
					require.Equal(t, prev, rec)
				} else {
					require.True(t, inserted)
					live[v] = rec
				}
				if i%50 == 0 {
					require.NoError(t, it.tree.Validate())
				}
			}
			require.NoError(t, it.tree.Validate())

			want := make([]int32, 0, len(live))
			for v := range live {
				want = append(want, v)
			}
			slices.Sort(want)
			assert.Equal(t, want, it.values())

			order := rng.Perm(len(want))
			for n, idx := range order[:len(order)/2] {
				v := want[idx]
				require.NoError(t, it.tree.Delete(live[v]), "delete %d", v)
				require.ErrorIs(t, it.tree.Delete(live[v]), ErrKeyNotFound)
				require.NoError(t, it.db.Free(live[v]))
				delete(live, v)
				if n%25 == 0 {
					require.NoError(t, it.tree.Validate())
				}
			}
			require.NoError(t, it.tree.Validate())

			want = want[:0]
			for v := range live {
				want = append(want, v)
			}
			slices.Sort(want)
			assert.Equal(t, want, it.values())

			for v, rec := range live {
				require.NoError(t, it.tree.Delete(rec))
				require.NoError(t, it.db.Free(rec))
				delete(live, v)
			}

			empty, err := it.tree.IsEmpty()
			require.NoError(t, err)
			assert.True(t, empty)
			assert.Zero(t, it.usedBlocks(), "every node must be freed")
		})
	}
}

func TestDeleteByEqualKey(t *testing.T) {
	it := newIntTree(t, WithDegree(2))
	for v := int32(0); v < 10; v++ {
		it.insert(v)
	}

	probe := it.key(4)
	require.NoError(t, it.tree.Delete(probe))
	assert.Equal(t, []int32{0, 1, 2, 3, 5, 6, 7, 8, 9}, it.values())
}

func TestDestroy(t *testing.T) {
	it := newIntTree(t, WithDegree(2))
	for v := int32(0); v < 50; v++ {
		it.insert(v)
	}

	require.NoError(t, it.tree.Destroy())
	empty, err := it.tree.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
	assert.Equal(t, 50, it.usedBlocks(), "only key records remain")
}

func TestInsertFreesNodesOnFailure(t *testing.T) {
	it := newIntTree(t)
	faulty := &faultyStore{Store: it.db, failPutRecPtr: true}
	tree := New(faulty, it.tree.RootAddr(), intComparator(it.db))

	rec := it.key(1)
	_, err := tree.Insert(rec)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, 1, it.usedBlocks(), "root node must not leak")

	// Splitting a full root also writes the root pointer.
	faulty.failPutRecPtr = false
	for v := int32(0); v < int32(tree.MaxRecords()); v++ {
		_, err := tree.Insert(it.key(v + 10))
		require.NoError(t, err)
	}
	before := it.usedBlocks()

	faulty.failPutRecPtr = true
	_, err = tree.Insert(it.key(100))
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, before+1, it.usedBlocks(), "split nodes must not leak")

	faulty.failPutRecPtr = false
	require.NoError(t, tree.Validate())
	n, err := tree.Count()
	require.NoError(t, err)
	assert.Equal(t, tree.MaxRecords(), n)
}

// =============================================================================
// Visitor Tests
// =============================================================================

func TestAcceptRange(t *testing.T) {
	it := newIntTree(t, WithDegree(2))
	for _, v := range rand.New(rand.NewSource(1)).Perm(100) {
		it.insert(int32(v))
	}

	var got []int32
	require.NoError(t, it.tree.Accept(Range(valueDescriptor(it.db, 20, 30), func(rec storage.Record) (bool, error) {
		v, err := it.db.GetInt(rec)
		got = append(got, v)
		return true, err
	})))
	assert.Equal(t, []int32{20, 21, 22, 23, 24, 25, 26, 27, 28, 29}, got)

	got = nil
	require.NoError(t, it.tree.Accept(Range(valueDescriptor(it.db, 50, 1000), func(rec storage.Record) (bool, error) {
		v, err := it.db.GetInt(rec)
		got = append(got, v)
		return len(got) < 3, err
	})))
	assert.Equal(t, []int32{50, 51, 52}, got, "visit returning false stops the walk")

	got = nil
	require.NoError(t, it.tree.Accept(Range(valueDescriptor(it.db, 200, 300), func(rec storage.Record) (bool, error) {
		got = append(got, 0)
		return true, nil
	})))
	assert.Empty(t, got)
}

func TestAcceptPropagatesErrors(t *testing.T) {
	it := newIntTree(t)
	it.insert(1)

	err := it.tree.Accept(MatchAll(func(storage.Record) (bool, error) {
		return false, errInjected
	}))
	assert.ErrorIs(t, err, errInjected)

	faulty := &faultyStore{Store: it.db, failGetBytes: true}
	tree := New(faulty, it.tree.RootAddr(), intComparator(it.db))
	assert.ErrorIs(t, tree.Accept(MatchAll(func(storage.Record) (bool, error) { return true, nil })), errInjected)
}

// =============================================================================
// Iterable Tests
// =============================================================================

func TestIterable(t *testing.T) {
	it := newIntTree(t, WithDegree(2))
	for v := int32(0); v < 10; v++ {
		it.insert(v)
	}

	value := func(rec storage.Record) int32 {
		v, err := it.db.GetInt(rec)
		require.NoError(t, err)
		return v
	}

	all := NewIterable(it.tree, nil, value, nil)
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all.Collect())

	some := NewIterable(it.tree, valueDescriptor(it.db, 3, 6), value, nil)
	iter := some.Iterator()
	assert.True(t, iter.HasNext())
	assert.ErrorIs(t, iter.Remove(), ErrUnsupportedOperation)

	// The snapshot is taken when the iterator is created.
	it.insert(4)
	it.insert(5)
	it.insert(-1)

	var got []int32
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int32{3, 4, 5}, got)
	assert.False(t, iter.HasNext())

	var ranged []int32
	for v := range all.All() {
		ranged = append(ranged, v)
		if len(ranged) == 2 {
			break
		}
	}
	assert.Equal(t, []int32{-1, 0}, ranged)
}

func TestIterableNilTree(t *testing.T) {
	iter := NewIterable[int](nil, nil, nil, nil)
	assert.Empty(t, iter.Collect())
	assert.False(t, iter.Iterator().HasNext())
}

func TestIterableStorageErrorIsEmpty(t *testing.T) {
	it := newIntTree(t)
	it.insert(1)

	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)

	faulty := &faultyStore{Store: it.db, failGetBytes: true}
	tree := New(faulty, it.tree.RootAddr(), intComparator(it.db))

	iter := NewIterable(tree, nil, func(rec storage.Record) storage.Record { return rec }, logging.FromLogrus(base))
	assert.Empty(t, iter.Collect())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.ErrorIs(t, hook.LastEntry().Data[logrus.ErrorKey].(error), errInjected)
}
