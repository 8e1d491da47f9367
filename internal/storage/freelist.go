package storage

import (
	"github.com/google/btree"
)

// freeIndexDegree is the degree of the in-memory free block trees.
const freeIndexDegree = 32

// freeBlock describes a free heap block by offset and total size.
type freeBlock struct {
	off  uint64
	size uint32
}

// FreeList indexes the free blocks of the heap twice: by (size, offset) for
// best-fit allocation and by offset for coalescing with the left neighbour.
// It lives only in memory and is rebuilt from the block chain on open.
type FreeList struct {
	bySize   *btree.BTreeG[freeBlock]
	byOffset *btree.BTreeG[freeBlock]
	bytes    uint64
}

// NewFreeList creates a new empty FreeList.
func NewFreeList() *FreeList {
	return &FreeList{
		bySize: btree.NewG(freeIndexDegree, func(a, b freeBlock) bool {
			if a.size != b.size {
				return a.size < b.size
			}
			return a.off < b.off
		}),
		byOffset: btree.NewG(freeIndexDegree, func(a, b freeBlock) bool {
			return a.off < b.off
		}),
	}
}

// Count returns the number of free blocks.
func (fl *FreeList) Count() int {
	return fl.byOffset.Len()
}

// Bytes returns the total size of all free blocks.
func (fl *FreeList) Bytes() uint64 {
	return fl.bytes
}

// Push adds a free block.
func (fl *FreeList) Push(b freeBlock) {
	fl.bySize.ReplaceOrInsert(b)
	fl.byOffset.ReplaceOrInsert(b)
	fl.bytes += uint64(b.size)
}

// Remove removes a free block. Returns true if it was present.
func (fl *FreeList) Remove(b freeBlock) bool {
	if _, ok := fl.byOffset.Delete(b); !ok {
		return false
	}
	fl.bySize.Delete(b)
	fl.bytes -= uint64(b.size)
	return true
}

// BestFit returns the smallest free block of at least size bytes.
func (fl *FreeList) BestFit(size uint32) (freeBlock, bool) {
	var found freeBlock
	ok := false
	fl.bySize.AscendGreaterOrEqual(freeBlock{size: size}, func(b freeBlock) bool {
		found, ok = b, true
		return false
	})
	return found, ok
}

// At returns the free block starting at off.
func (fl *FreeList) At(off uint64) (freeBlock, bool) {
	return fl.byOffset.Get(freeBlock{off: off})
}

// Before returns the free block with the greatest offset below off.
func (fl *FreeList) Before(off uint64) (freeBlock, bool) {
	var found freeBlock
	ok := false
	if off == 0 {
		return found, false
	}
	fl.byOffset.DescendLessOrEqual(freeBlock{off: off - 1}, func(b freeBlock) bool {
		found, ok = b, true
		return false
	})
	return found, ok
}

// Clear removes all entries from the free list.
func (fl *FreeList) Clear() {
	fl.bySize.Clear(false)
	fl.byOffset.Clear(false)
	fl.bytes = 0
}
