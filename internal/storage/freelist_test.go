package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FreeList Tests
// =============================================================================

func TestFreeListBestFit(t *testing.T) {
	fl := NewFreeList()
	fl.Push(freeBlock{off: 4096, size: 64})
	fl.Push(freeBlock{off: 8192, size: 32})
	fl.Push(freeBlock{off: 9000, size: 32})
	fl.Push(freeBlock{off: 12000, size: 128})

	assert.Equal(t, 4, fl.Count())
	assert.EqualValues(t, 256, fl.Bytes())

	b, ok := fl.BestFit(24)
	require.True(t, ok)
	assert.Equal(t, freeBlock{off: 8192, size: 32}, b, "smallest fit, lowest offset first")

	b, ok = fl.BestFit(65)
	require.True(t, ok)
	assert.EqualValues(t, 128, b.size)

	_, ok = fl.BestFit(129)
	assert.False(t, ok)
}

func TestFreeListNeighbours(t *testing.T) {
	fl := NewFreeList()
	fl.Push(freeBlock{off: 4096, size: 16})
	fl.Push(freeBlock{off: 4160, size: 32})

	b, ok := fl.At(4160)
	require.True(t, ok)
	assert.EqualValues(t, 32, b.size)

	_, ok = fl.At(4100)
	assert.False(t, ok)

	b, ok = fl.Before(4160)
	require.True(t, ok)
	assert.EqualValues(t, 4096, b.off)

	_, ok = fl.Before(4096)
	assert.False(t, ok)
}

func TestFreeListRemoveAndClear(t *testing.T) {
	fl := NewFreeList()
	blk := freeBlock{off: 4096, size: 48}
	fl.Push(blk)

	assert.True(t, fl.Remove(blk))
	assert.False(t, fl.Remove(blk))
	assert.Zero(t, fl.Count())
	assert.Zero(t, fl.Bytes())

	_, ok := fl.BestFit(16)
	assert.False(t, ok)

	fl.Push(blk)
	fl.Clear()
	assert.Zero(t, fl.Count())
	assert.Zero(t, fl.Bytes())
}
