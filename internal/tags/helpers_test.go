package tags

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/tagstore/internal/logging"
	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

var errInjected = errors.New("injected storage failure")

// faultyStore fails selected operations of the wrapped store.
type faultyStore struct {
	storage.Store
	failGetBytes bool
	failPutBytes bool
	failMalloc   bool
}

func (f *faultyStore) GetBytes(addr storage.Record, buf []byte) error {
	if f.failGetBytes {
		return errInjected
	}
	return f.Store.GetBytes(addr, buf)
}

func (f *faultyStore) PutBytes(addr storage.Record, data []byte) error {
	if f.failPutBytes {
		return errInjected
	}
	return f.Store.PutBytes(addr, data)
}

func (f *faultyStore) Malloc(size int) (storage.Record, error) {
	if f.failMalloc {
		return storage.NullRecord, errInjected
	}
	return f.Store.Malloc(size)
}

type fixture struct {
	t      *testing.T
	path   string
	db     *storage.Database
	store  *faultyStore
	anchor storage.Record
	idx    *Index
	hook   *test.Hook
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tags.db")
	db, err := storage.Open(path, storage.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	anchor, err := db.RootSlot(0)
	require.NoError(t, err)

	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)

	f := &fixture{
		t:      t,
		path:   path,
		db:     db,
		store:  &faultyStore{Store: db},
		anchor: anchor,
		hook:   hook,
	}
	opts = append([]Option{WithLogger(logging.FromLogrus(base))}, opts...)
	f.idx = NewIndex(f.store, anchor, opts...)
	return f
}

func (f *fixture) usedBlocks() int {
	n := 0
	require.NoError(f.t, f.db.Walk(func(bi storage.BlockInfo) bool {
		if bi.Used {
			n++
		}
		return true
	}))
	return n
}

// orphans returns allocated blocks that look like tags of (node, id) but
// are not reachable through the index.
func (f *fixture) orphans(node, id storage.Record) []storage.Record {
	reachable := map[storage.Record]bool{}
	for tag := range f.idx.Tags(node).All() {
		reachable[tag.Record()] = true
	}

	var out []storage.Record
	require.NoError(f.t, f.db.Walk(func(bi storage.BlockInfo) bool {
		if !bi.Used || bi.Size < HeaderSize || reachable[bi.Record] {
			return true
		}
		n, tid, err := tagKey(f.db, bi.Record)
		require.NoError(f.t, err)
		if n == node && tid == id {
			out = append(out, bi.Record)
		}
		return true
	}))
	return out
}

func (f *fixture) errorLogged() bool {
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			return true
		}
	}
	return false
}

// payloads returns tagger id -> payload for the tags of node.
func (f *fixture) payloads(node storage.Record) map[string][]byte {
	out := map[string][]byte{}
	for tag := range f.idx.Tags(node).All() {
		out[tag.TaggerID()] = tag.Bytes(0, -1)
	}
	return out
}
