package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/tagstore/internal/storage"
	"github.com/KilimcininKorOglu/tagstore/internal/storage/btree"
)

func openSet(t *testing.T, opts ...Option) (*storage.Database, storage.Record, *StringSet) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "ids.db"), storage.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	root, err := db.RootSlot(1)
	require.NoError(t, err)
	return db, root, NewStringSet(db, root, opts...)
}

func TestStringSetAddFind(t *testing.T) {
	_, _, set := openSet(t, WithTreeOptions(btree.WithDegree(2)))

	rec, err := set.Find("typeinfo")
	require.NoError(t, err)
	assert.True(t, rec.IsNull())

	a, err := set.Add("typeinfo")
	require.NoError(t, err)
	require.False(t, a.IsNull())

	again, err := set.Add("typeinfo")
	require.NoError(t, err)
	assert.Equal(t, a, again)

	found, err := set.Find("typeinfo")
	require.NoError(t, err)
	assert.Equal(t, a, found)

	for _, s := range []string{"zeta", "alpha", "", "mu", "beta"} {
		_, err := set.Add(s)
		require.NoError(t, err)
	}

	strs, err := set.Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"", "alpha", "beta", "mu", "typeinfo", "zeta"}, strs)
	require.NoError(t, set.Tree().Validate())
}

func TestStringSetSurvivesReopenWithoutCache(t *testing.T) {
	db, root, set := openSet(t)

	want := map[string]storage.Record{}
	for _, s := range []string{"one", "two", "three"} {
		rec, err := set.Add(s)
		require.NoError(t, err)
		want[s] = rec
	}
	assert.Equal(t, 3, set.CacheLen())

	fresh := NewStringSet(db, root, WithCacheSize(0))
	for s, rec := range want {
		got, err := fresh.Find(s)
		require.NoError(t, err)
		assert.Equal(t, rec, got, s)
	}
	assert.Zero(t, fresh.CacheLen())
}

func TestStringSetDoesNotLeakDuplicates(t *testing.T) {
	db, root, set := openSet(t)
	_, err := set.Add("dup")
	require.NoError(t, err)

	// A second set without a cache goes through the tree.
	other := NewStringSet(db, root, WithCacheSize(0))
	before := db.Stats().UsedBlocks
	_, err = other.Add("dup")
	require.NoError(t, err)
	assert.Equal(t, before, db.Stats().UsedBlocks)
}
