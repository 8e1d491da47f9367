// Package storage implements the tagstore database file: a single
// memory-mapped file holding a heap of variable-size records.
//
// # File Layout
//
// The file starts with a 4096 byte header (see FileHeader) followed by the
// heap. Every heap block carries an 8 byte header:
//
//	+--------------+--------------+---------------------+
//	| size: uint32 | flags: uint32| payload ...         |
//	+--------------+--------------+---------------------+
//
// size covers the header and payload and is a multiple of 8. Bit 0 of
// flags marks the block as in use. A Record is the offset of a block
// payload, so the smallest valid record is HeaderSize+8.
//
// # Allocation
//
// Malloc serves requests best-fit from an in-memory FreeList and splits
// blocks whose remainder is large enough to stand alone. When no free block
// fits, the heap is extended and the file grows in chunk-size multiples.
// Free coalesces with free neighbours. The free list is rebuilt by walking
// the heap on Open.
//
// # Root Slots
//
// The header reserves RootSlotCount pointer slots that anchor top-level
// structures. RootSlot returns their addresses; they are the only header
// bytes reachable through the typed primitives.
//
// # Durability
//
// Heap bytes and root slots are written straight through the mapping. The
// header counters, the heap end and the checksum are stamped only by Flush
// and Close, so a valid checksum marks a cleanly closed file. A file that
// was not flushed after its last write fails Open with ErrHeaderChecksum;
// there is no log to recover it from.
//
// # Concurrency
//
// A Database is used by one goroutine at a time. Writers take an exclusive
// lock file next to the database; read-only handles do not.
package storage
