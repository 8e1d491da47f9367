package tags

import (
	"github.com/KilimcininKorOglu/tagstore/internal/logging"
	"github.com/KilimcininKorOglu/tagstore/internal/storage"
	"github.com/KilimcininKorOglu/tagstore/internal/storage/btree"
)

// synchronizer reconciles the stored tags of one node with a desired set
// during a single Accept pass. Payloads that fit are overwritten in place
// while visiting; removals and reallocations change the tree and are
// queued until synchronize runs after the walk.
type synchronizer struct {
	db      storage.Store
	node    storage.Record
	desc    btree.Descriptor
	desired map[string]Tag
	log     logging.Logger

	toDelete []storage.Record
	toInsert []storage.Record
}

func newSynchronizer(db storage.Store, node storage.Record, desired map[string]Tag, log logging.Logger) *synchronizer {
	return &synchronizer{
		db:      db,
		node:    node,
		desc:    nodeDescriptor(db, node),
		desired: desired,
		log:     log.WithFields("node", node),
	}
}

func (s *synchronizer) Compare(rec storage.Record) (int, error) {
	return s.desc(rec)
}

// Visit reconciles one stored tag. Matched tagger ids are removed from the
// desired set, leaving only tags that still have to be created.
func (s *synchronizer) Visit(rec storage.Record) (bool, error) {
	existing := loadStoredTag(s.db, rec, s.log)

	idRec, err := s.db.GetRecPtr(rec.Field(taggerIDOffset))
	if err != nil {
		return false, err
	}
	id, err := s.db.GetString(idRec)
	if err != nil {
		return false, err
	}

	want, ok := s.desired[id]
	if !ok {
		s.toDelete = append(s.toDelete, rec)
		return true, nil
	}
	delete(s.desired, id)

	dataLen, err := existing.dataLen()
	if err != nil {
		return false, err
	}

	data := want.Bytes(0, -1)
	switch {
	case len(data) > dataLen:
		s.toDelete = append(s.toDelete, rec)
		clone, err := existing.CloneWith(data)
		if err != nil {
			s.log.WithError(err).Error("failed to reallocate tag", "taggerID", id)
			break
		}
		s.toInsert = append(s.toInsert, clone.Record())
	case len(data) == 0 && dataLen == 0:
	default:
		if !existing.PutBytes(0, data, -1) {
			s.log.Warn("failed to overwrite tag", "taggerID", id)
		}
	}
	return true, nil
}

// synchronize applies the queued removals, then the queued insertions.
// Failures are logged and skipped. A clone that does not end up in the
// tree is freed.
func (s *synchronizer) synchronize(tree *btree.BTree) {
	for _, rec := range s.toDelete {
		if err := tree.Delete(rec); err != nil {
			s.log.WithError(err).Error("failed to remove tag", "tag", rec)
			continue
		}
		if err := s.db.Free(rec); err != nil {
			s.log.WithError(err).Error("failed to free tag", "tag", rec)
		}
	}

	for _, rec := range s.toInsert {
		got, err := tree.Insert(rec)
		if err == nil && got == rec {
			continue
		}
		if err != nil {
			s.log.WithError(err).Error("failed to insert tag", "tag", rec)
		}
		if err := s.db.Free(rec); err != nil {
			s.log.WithError(err).Error("failed to free tag", "tag", rec)
		}
	}

	s.toDelete, s.toInsert = nil, nil
}
