package tags

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

func memTag(id string, n int, fill byte) Tag {
	return NewMemoryTagWithData(id, bytes.Repeat([]byte{fill}, n))
}

// =============================================================================
// SetTags Tests
// =============================================================================

func TestSetTagsConvergence(t *testing.T) {
	f := newFixture(t)
	const node storage.Record = 42

	require.True(t, f.idx.SetTags(node, []Tag{
		memTag("a", 3, 0xa),
		memTag("b", 5, 0xb),
		memTag("c", 1, 0xc),
	}))
	assert.Equal(t, map[string][]byte{
		"a": {0xa, 0xa, 0xa},
		"b": {0xb, 0xb, 0xb, 0xb, 0xb},
		"c": {0xc},
	}, f.payloads(node))

	oldA := f.idx.GetTag(node, "a").Record()

	require.True(t, f.idx.SetTags(node, []Tag{
		memTag("b", 2, 0x1b),
		memTag("c", 7, 0x1c),
		memTag("d", 4, 0x1d),
	}))
	assert.Equal(t, map[string][]byte{
		"b": {0x1b, 0x1b},
		"c": bytes.Repeat([]byte{0x1c}, 7),
		"d": {0x1d, 0x1d, 0x1d, 0x1d},
	}, f.payloads(node))

	assert.Nil(t, f.idx.GetTag(node, "a"))
	assert.Empty(t, f.orphans(node, f.idx.IDRecord("a", false)), "removed tag %s must be freed", oldA)
	require.NoError(t, f.idx.Validate())

	// root block, four tagger ids, one node per tree and three tags.
	assert.Equal(t, 1+4+2+3, f.usedBlocks())
}

func TestSetTagsShrinkInPlaceGrowReallocates(t *testing.T) {
	f := newFixture(t)
	const node storage.Record = 7

	require.True(t, f.idx.SetTags(node, []Tag{memTag("t", 10, 1)}))
	orig := f.idx.GetTag(node, "t").Record()

	require.True(t, f.idx.SetTags(node, []Tag{memTag("t", 5, 2)}))
	shrunk := f.idx.GetTag(node, "t")
	require.NotNil(t, shrunk)
	assert.Equal(t, orig, shrunk.Record(), "shrink keeps the record")
	assert.Equal(t, []byte{2, 2, 2, 2, 2}, shrunk.Bytes(0, -1))

	require.True(t, f.idx.SetTags(node, []Tag{memTag("t", 5, 3)}))
	same := f.idx.GetTag(node, "t")
	assert.Equal(t, orig, same.Record(), "equal length keeps the record")
	assert.Equal(t, []byte{3, 3, 3, 3, 3}, same.Bytes(0, -1))

	require.True(t, f.idx.SetTags(node, []Tag{memTag("t", 20, 4)}))
	grown := f.idx.GetTag(node, "t")
	require.NotNil(t, grown)
	assert.NotEqual(t, orig, grown.Record(), "growth reallocates")
	assert.Equal(t, bytes.Repeat([]byte{4}, 20), grown.Bytes(0, -1))
	assert.Len(t, f.idx.Tags(node).Collect(), 1)
	assert.Empty(t, f.orphans(node, f.idx.IDRecord("t", false)))
}

func TestSetTagsLastDuplicateWins(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.idx.SetTags(1, []Tag{
		memTag("dup", 1, 1),
		memTag("other", 1, 9),
		memTag("dup", 2, 2),
	}))
	assert.Equal(t, map[string][]byte{
		"dup":   {2, 2},
		"other": {9},
	}, f.payloads(1))
}

func TestSetTagsEmptyPayloads(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.idx.SetTags(3, []Tag{NewMemoryTag("empty", 0)}))
	tag := f.idx.GetTag(3, "empty")
	require.NotNil(t, tag)
	assert.Zero(t, tag.DataLen())

	require.True(t, f.idx.SetTags(3, []Tag{NewMemoryTag("empty", 0)}))
	assert.Equal(t, tag.Record(), f.idx.GetTag(3, "empty").Record())
	assert.Empty(t, f.hook.AllEntries())
}

func TestRemoveTags(t *testing.T) {
	f := newFixture(t, WithDegree(2))

	for node := storage.Record(1); node <= 5; node++ {
		require.True(t, f.idx.SetTags(node, []Tag{memTag("a", 2, 1), memTag("b", 3, 2)}))
	}

	require.True(t, f.idx.RemoveTags(3))
	assert.Empty(t, f.idx.Tags(3).Collect())
	assert.Len(t, f.idx.Tags(2).Collect(), 2)
	assert.Len(t, f.idx.Tags(4).Collect(), 2)
	require.NoError(t, f.idx.Validate())

	for node := storage.Record(1); node <= 5; node++ {
		require.True(t, f.idx.RemoveTags(node))
	}
	n, err := f.idx.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	// Only the root block, the tagger ids and their tree remain.
	assert.Equal(t, 1+2+1, f.usedBlocks())
}

func TestSetTagsRandomized(t *testing.T) {
	f := newFixture(t, WithDegree(2))
	rng := rand.New(rand.NewSource(7))
	ids := []string{"p", "q", "r", "s", "t", "u"}

	want := map[storage.Record]map[string][]byte{}
	for round := 0; round < 200; round++ {
		node := storage.Record(rng.Intn(6) + 1)

		var desired []Tag
		expect := map[string][]byte{}
		for _, id := range ids {
			if rng.Intn(2) == 0 {
				continue
			}
			data := make([]byte, rng.Intn(12))
			rng.Read(data)
			desired = append(desired, NewMemoryTagWithData(id, data))
			if len(data) == 0 {
				expect[id] = nil
			} else {
				expect[id] = data
			}
		}

		require.True(t, f.idx.SetTags(node, desired))
		want[node] = expect
	}

	require.NoError(t, f.idx.Validate())
	for node, expect := range want {
		assert.Equal(t, expect, f.payloads(node), "node %s", node)
	}
	assert.False(t, f.errorLogged())
}

func TestSetTagsScanFailure(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.idx.SetTags(1, []Tag{memTag("a", 2, 1)}))

	f.store.failGetBytes = true
	assert.False(t, f.idx.SetTags(1, []Tag{memTag("b", 2, 2)}))
	f.store.failGetBytes = false

	assert.True(t, f.errorLogged())
	assert.Equal(t, map[string][]byte{"a": {1, 1}}, f.payloads(1), "nothing changed")
}
