// Package btree implements a B-tree of record pointers stored inside a
// storage.Store.
//
// # Overview
//
// The tree only holds 8 byte record pointers. Ordering is defined by a
// Comparator that reads key fields from the records, so the same tree code
// indexes tags, interned strings or anything else that lives in the
// database.
//
// # Node Structure
//
// A tree of minimum degree t stores nodes as records of 4t-1 slots:
//
//	+-----------------------------+------------------------------+
//	| records: (2t-1) x uint64    | children: 2t x uint64        |
//	+-----------------------------+------------------------------+
//
// Unused slots are zero. A node whose first child slot is zero is a leaf.
// The root pointer is stored at a caller-supplied address; zero is an
// empty tree.
//
// # Insertion and Deletion
//
// Both operations make a single pass from the root. Insert splits full
// nodes on the way down and returns the existing record when an equal one
// is already present. Delete borrows from or merges with siblings before
// descending into a minimal child.
//
// # Visitors
//
// Accept narrows to the contiguous range where a Visitor's Compare returns
// zero and calls Visit for each record in order:
//
//	err := tree.Accept(btree.Range(byNode(node), func(rec storage.Record) (bool, error) {
//	    fmt.Println(rec)
//	    return true, nil
//	}))
//
// MatchAll visits everything. Iterable wraps a range in a lazy sequence of
// typed values.
//
// A BTree must not be modified while Accept is running over it.
package btree
