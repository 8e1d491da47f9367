// Package index implements interned string tables for the tag store.
//
// A StringSet keeps one record per distinct string in a B-tree ordered by
// byte-wise string comparison:
//
//	ids := index.NewStringSet(db, rootAddr)
//
//	rec, err := ids.Add("typeinfo")   // stores once, returns the same record afterwards
//	rec, err = ids.Find("typeinfo")   // NullRecord when absent
//
// Strings are never removed, which lets positive lookups be served from an
// LRU cache without invalidation.
package index
