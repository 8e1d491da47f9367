package tags

import (
	"cmp"

	"github.com/KilimcininKorOglu/tagstore/internal/storage"
	"github.com/KilimcininKorOglu/tagstore/internal/storage/btree"
)

// tagKey reads the (node, tagger id) key of a tag record.
func tagKey(db storage.Store, rec storage.Record) (node, id storage.Record, err error) {
	if node, err = db.GetRecPtr(rec.Field(nodeOffset)); err != nil {
		return
	}
	id, err = db.GetRecPtr(rec.Field(taggerIDOffset))
	return
}

// recordComparator orders tag records by node, then tagger id.
func recordComparator(db storage.Store) btree.Comparator {
	return btree.ComparatorFunc(func(a, b storage.Record) (int, error) {
		an, aid, err := tagKey(db, a)
		if err != nil {
			return 0, err
		}
		bn, bid, err := tagKey(db, b)
		if err != nil {
			return 0, err
		}
		if c := cmp.Compare(an, bn); c != 0 {
			return c, nil
		}
		return cmp.Compare(aid, bid), nil
	})
}

// nodeDescriptor selects every tag of node. It agrees with
// recordComparator on the node field, so the tags of one node are a
// contiguous range of the tree.
func nodeDescriptor(db storage.Store, node storage.Record) btree.Descriptor {
	return func(rec storage.Record) (int, error) {
		n, err := db.GetRecPtr(rec.Field(nodeOffset))
		if err != nil {
			return 0, err
		}
		return cmp.Compare(n, node), nil
	}
}

// lookupVisitor finds the tag of one (node, tagger id) pair.
type lookupVisitor struct {
	db    storage.Store
	node  storage.Record
	id    storage.Record
	found storage.Record
}

func (v *lookupVisitor) Compare(rec storage.Record) (int, error) {
	n, id, err := tagKey(v.db, rec)
	if err != nil {
		return 0, err
	}
	if c := cmp.Compare(n, v.node); c != 0 {
		return c, nil
	}
	return cmp.Compare(id, v.id), nil
}

func (v *lookupVisitor) Visit(rec storage.Record) (bool, error) {
	v.found = rec
	return false, nil
}
