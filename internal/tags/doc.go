// Package tags attaches tagged byte payloads to database records.
//
// A tag belongs to one node record and one tagger, a string naming the
// contributor of the payload. Index keeps all tags in a single B-tree
// ordered by (node, tagger id record) so that the tags of a node form a
// contiguous range:
//
//	idx := tags.NewIndex(db, anchor, tags.WithLogger(log))
//
//	tag := idx.CreateTag(node, "typeinfo", 3)
//	tag.PutBytes(0, []byte{1, 2, 3}, -1)
//
//	for t := range idx.Tags(node).All() {
//	    fmt.Println(t.TaggerID(), t.Bytes(0, -1))
//	}
//
// SetTags replaces the tags of a node with as little reallocation as
// possible: payloads that fit are rewritten in place, larger ones are
// cloned into new records, and tags of absent taggers are removed.
//
// The index is a rebuildable cache, so storage failures are logged and
// turned into nil, false or empty results instead of being returned.
package tags
