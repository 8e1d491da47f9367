package tags

import (
	"github.com/pkg/errors"

	"github.com/KilimcininKorOglu/tagstore/internal/logging"
	"github.com/KilimcininKorOglu/tagstore/internal/storage"
	"github.com/KilimcininKorOglu/tagstore/internal/storage/btree"
	"github.com/KilimcininKorOglu/tagstore/internal/storage/index"
)

// Root block layout. The block is reached through the anchor pointer and
// allocated on the first write. The node layout of both trees depends on
// the degree, so it is stored with them.
const (
	rootTaggerIDsOffset = 0
	rootTagsOffset      = 8
	rootDegreeOffset    = 16
	rootBlockSize       = 20
)

// Index errors.
var (
	ErrInvalidDegree = errors.New("invalid tag index degree")
	ErrNullNode      = errors.New("tags cannot be attached to the null record")
)

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger that receives storage failures.
func WithLogger(l logging.Logger) Option {
	return func(idx *Index) {
		if l != nil {
			idx.log = l
		}
	}
}

// WithDegree sets the minimum degree of both trees when the index is
// created. An existing index keeps the degree it was created with.
func WithDegree(degree int) Option {
	return func(idx *Index) { idx.degree = degree }
}

// WithIDCacheSize sets the size of the tagger id lookup cache.
func WithIDCacheSize(n int) Option {
	return func(idx *Index) { idx.idCacheSize = n }
}

// Index stores the tags of nodes: one B-tree of tag records ordered by
// (node, tagger id) and one interned set of tagger id strings.
//
// Storage failures never escape an Index. They are logged and reported as
// nil, false or an empty sequence.
//
// Index is not safe for concurrent use.
type Index struct {
	db          storage.Store
	anchor      storage.Record
	log         logging.Logger
	degree      int
	idCacheSize int

	root storage.Record
	ids  *index.StringSet
	tree *btree.BTree
}

// NewIndex creates an index whose root block pointer lives at anchor.
// NewIndex performs no I/O.
func NewIndex(db storage.Store, anchor storage.Record, opts ...Option) *Index {
	idx := &Index{
		db:          db,
		anchor:      anchor,
		log:         logging.NewNop(),
		degree:      btree.DefaultDegree,
		idCacheSize: index.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// load attaches the trees, allocating the root block if create is set.
// It reports whether the root block exists.
func (idx *Index) load(create bool) (bool, error) {
	if !idx.root.IsNull() {
		return true, nil
	}

	root, err := idx.db.GetRecPtr(idx.anchor)
	if err != nil {
		return false, errors.Wrap(err, "read tag index root")
	}

	var degree int
	if root.IsNull() {
		if !create {
			return false, nil
		}
		degree = max(idx.degree, btree.MinDegree)
		if root, err = idx.createRoot(degree); err != nil {
			return false, err
		}
	} else {
		stored, err := idx.db.GetInt(root.Field(rootDegreeOffset))
		if err != nil {
			return false, errors.Wrap(err, "read tag index degree")
		}
		if stored < btree.MinDegree {
			return false, errors.Wrapf(ErrInvalidDegree, "degree %d", stored)
		}
		degree = int(stored)
		if degree != idx.degree {
			idx.log.Warn("ignoring configured degree of existing tag index",
				"configured", idx.degree, "stored", degree)
		}
	}
	idx.degree = degree

	treeOpts := []btree.Option{btree.WithDegree(degree), btree.WithLogger(idx.log)}
	idx.root = root
	idx.ids = index.NewStringSet(idx.db, root.Field(rootTaggerIDsOffset),
		index.WithCacheSize(idx.idCacheSize), index.WithTreeOptions(treeOpts...))
	idx.tree = btree.New(idx.db, root.Field(rootTagsOffset), recordComparator(idx.db), treeOpts...)
	return true, nil
}

// createRoot allocates the root block and links it to the anchor.
func (idx *Index) createRoot(degree int) (storage.Record, error) {
	root, err := idx.db.Malloc(rootBlockSize)
	if err != nil {
		return storage.NullRecord, errors.Wrap(err, "allocate tag index root")
	}

	err = idx.db.PutInt(root.Field(rootDegreeOffset), int32(degree))
	if err == nil {
		err = idx.db.PutRecPtr(idx.anchor, root)
	}
	if err != nil {
		_ = idx.db.Free(root)
		return storage.NullRecord, errors.Wrap(err, "write tag index root")
	}
	return root, nil
}

// Degree returns the minimum degree of both trees. It reflects the stored
// degree once the index has been loaded.
func (idx *Index) Degree() int {
	return idx.degree
}

// checkNode logs and rejects the null node.
func (idx *Index) checkNode(node storage.Record) bool {
	if node.IsNull() {
		idx.log.WithError(ErrNullNode).Error("invalid node")
		return false
	}
	return true
}

// IDRecord returns the interned record of taggerID, adding it when create
// is set. Returns NullRecord when the id is unknown or on error.
func (idx *Index) IDRecord(taggerID string, create bool) storage.Record {
	ok, err := idx.load(create)
	if err != nil {
		idx.log.WithError(err).Error("failed to open tag index")
		return storage.NullRecord
	}
	if !ok {
		return storage.NullRecord
	}

	var rec storage.Record
	if create {
		rec, err = idx.ids.Add(taggerID)
	} else {
		rec, err = idx.ids.Find(taggerID)
	}
	if err != nil {
		idx.log.WithError(err).Error("failed to look up tagger id", "taggerID", taggerID)
		return storage.NullRecord
	}
	return rec
}

// CreateTag creates the tag of (node, taggerID) with a zeroed payload of
// length bytes. If the tag already exists it is returned unchanged. Returns
// nil on error, leaving nothing allocated for the failed tag.
func (idx *Index) CreateTag(node storage.Record, taggerID string, length int) *StoredTag {
	if !idx.checkNode(node) {
		return nil
	}

	id := idx.IDRecord(taggerID, true)
	if id.IsNull() {
		return nil
	}

	log := idx.log.WithFields("node", node, "taggerID", taggerID)

	tag, err := createStoredTag(idx.db, length, idx.log)
	if err != nil {
		log.WithError(err).Error("failed to create tag")
		return nil
	}

	err = tag.setNode(node)
	if err == nil {
		err = tag.setTaggerID(id)
	}

	var got storage.Record
	if err == nil {
		got, err = idx.tree.Insert(tag.rec)
	}
	if err != nil {
		log.WithError(err).Error("failed to create tag")
		if ferr := idx.db.Free(tag.rec); ferr != nil {
			log.WithError(ferr).Error("failed to free tag")
		}
		return nil
	}

	if got != tag.rec {
		if err := idx.db.Free(tag.rec); err != nil {
			log.WithError(err).Error("failed to free duplicate tag")
		}
		return loadStoredTag(idx.db, got, idx.log)
	}
	return tag
}

// GetTag returns the tag of (node, taggerID), or nil if there is none.
func (idx *Index) GetTag(node storage.Record, taggerID string) *StoredTag {
	if !idx.checkNode(node) {
		return nil
	}

	id := idx.IDRecord(taggerID, false)
	if id.IsNull() {
		return nil
	}

	v := &lookupVisitor{db: idx.db, node: node, id: id}
	if err := idx.tree.Accept(v); err != nil {
		idx.log.WithError(err).Error("failed to look up tag", "node", node, "taggerID", taggerID)
		return nil
	}
	if v.found.IsNull() {
		return nil
	}
	return loadStoredTag(idx.db, v.found, idx.log)
}

// Tags returns the tags of node in tagger id record order.
func (idx *Index) Tags(node storage.Record) *btree.Iterable[*StoredTag] {
	factory := func(rec storage.Record) *StoredTag {
		return loadStoredTag(idx.db, rec, idx.log)
	}

	if !idx.checkNode(node) {
		return btree.NewIterable[*StoredTag](nil, nil, factory, idx.log)
	}

	ok, err := idx.load(false)
	if err != nil {
		idx.log.WithError(err).Error("failed to open tag index")
	}
	if !ok {
		return btree.NewIterable[*StoredTag](nil, nil, factory, idx.log)
	}
	return btree.NewIterable(idx.tree, nodeDescriptor(idx.db, node), factory, idx.log)
}

// SetTags replaces the tags of node with tags. Existing tags are
// overwritten in place when the new payload fits, reallocated when it
// grows, and removed when their tagger is absent from tags. When several
// tags share a tagger id the last one wins.
//
// SetTags returns false if the existing tags could not be scanned. Changes
// are not rolled back, so the stored tags may be partially updated after
// a failure.
func (idx *Index) SetTags(node storage.Record, tags []Tag) bool {
	if !idx.checkNode(node) {
		return false
	}

	ok, err := idx.load(len(tags) > 0)
	if err != nil {
		idx.log.WithError(err).Error("failed to open tag index")
		return false
	}
	if !ok {
		return true
	}

	desired := make(map[string]Tag, len(tags))
	for _, t := range tags {
		desired[t.TaggerID()] = t
	}

	sync := newSynchronizer(idx.db, node, desired, idx.log)
	if err := idx.tree.Accept(sync); err != nil {
		idx.log.WithError(err).Error("failed to scan tags", "node", node)
		sync.synchronize(idx.tree)
		return false
	}
	sync.synchronize(idx.tree)

	for _, t := range tags {
		id := t.TaggerID()
		d, ok := desired[id]
		if !ok {
			continue
		}
		delete(desired, id)

		data := d.Bytes(0, -1)
		tag := idx.CreateTag(node, id, len(data))
		if tag == nil || len(data) == 0 {
			continue
		}
		if !tag.PutBytes(0, data, -1) {
			idx.log.Warn("failed to write tag payload", "node", node, "taggerID", id)
		}
	}
	return true
}

// RemoveTags deletes every tag of node.
func (idx *Index) RemoveTags(node storage.Record) bool {
	return idx.SetTags(node, nil)
}

// TaggerIDs returns every interned tagger id.
func (idx *Index) TaggerIDs() ([]string, error) {
	ok, err := idx.load(false)
	if err != nil || !ok {
		return nil, err
	}
	return idx.ids.Strings()
}

// Validate checks the structure of both trees.
func (idx *Index) Validate() error {
	ok, err := idx.load(false)
	if err != nil || !ok {
		return err
	}
	if err := idx.ids.Tree().Validate(); err != nil {
		return errors.Wrap(err, "tagger id tree")
	}
	return errors.Wrap(idx.tree.Validate(), "tag tree")
}

// Count returns the number of stored tags.
func (idx *Index) Count() (int, error) {
	ok, err := idx.load(false)
	if err != nil || !ok {
		return 0, err
	}
	return idx.tree.Count()
}
