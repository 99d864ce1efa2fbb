package badger

import (
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/objectdb/keys"
	"github.com/poiesic/objectdb/schema"
	"github.com/poiesic/objectdb/storage"
)

// txn implements storage.Tx and, in version-change mode, storage.UpgradeTx.
// A txn is not safe for concurrent use.
type txn struct {
	backend *Backend
	meta    *storage.DatabaseMeta
	mode    storage.TxMode
	scope   map[string]struct{} // nil means every store
	btx     *badger.Txn
	release func()

	done      bool
	cursors   []*cursor
	iterators int
}

var (
	_ storage.Tx        = (*txn)(nil)
	_ storage.UpgradeTx = (*txn)(nil)
)

func newTxn(b *Backend, meta *storage.DatabaseMeta, mode storage.TxMode, stores []string, release func()) *txn {
	t := &txn{
		backend: b,
		meta:    meta,
		mode:    mode,
		btx:     b.db.NewTransaction(mode != storage.ReadOnly),
		release: release,
	}
	if stores != nil {
		t.scope = make(map[string]struct{}, len(stores))
		for _, s := range stores {
			t.scope[s] = struct{}{}
		}
	}
	return t
}

func (t *txn) Mode() storage.TxMode {
	return t.mode
}

func (t *txn) Store(name string) (storage.ObjectStore, error) {
	if t.done {
		return nil, storage.ErrTransactionFinished
	}
	if t.scope != nil {
		if _, ok := t.scope[name]; !ok {
			return nil, fmt.Errorf("%w: %q", storage.ErrOutOfScope, name)
		}
	}
	if _, ok := t.meta.Store(name); !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrStoreNotFound, name)
	}
	return &objectStore{tx: t, name: name}, nil
}

// Commit makes the transaction's writes durable. Version-change
// transactions are committed by the engine once the upgrade callback returns.
func (t *txn) Commit() error {
	if t.done {
		return storage.ErrTransactionFinished
	}
	if t.mode == storage.VersionChange {
		return fmt.Errorf("%w: version-change transactions commit when the upgrade completes", storage.ErrInvalidState)
	}
	return t.finish(true)
}

func (t *txn) Abort() {
	if t.done {
		return
	}
	_ = t.finish(false)
}

// finish closes every open cursor, then commits or discards the badger
// transaction and releases the scope locks.
func (t *txn) finish(commit bool) error {
	t.done = true
	for _, c := range t.cursors {
		c.Close()
	}
	t.cursors = nil

	var err error
	if commit && t.mode != storage.ReadOnly {
		if cerr := t.btx.Commit(); cerr != nil {
			err = fmt.Errorf("%w: %w", storage.ErrTransactionFailed, cerr)
		}
	} else {
		t.btx.Discard()
	}
	t.release()
	return err
}

func (t *txn) checkActive() error {
	if t.done {
		return storage.ErrTransactionFinished
	}
	return nil
}

func (t *txn) checkWritable() error {
	if t.done {
		return storage.ErrTransactionFinished
	}
	if t.mode == storage.ReadOnly {
		return storage.ErrReadOnly
	}
	return nil
}

// newIterator opens a badger iterator. Badger allows one open iterator per
// read-write transaction, so a second one fails here instead of panicking.
func (t *txn) newIterator(opts badger.IteratorOptions) (*badger.Iterator, error) {
	if t.done {
		return nil, storage.ErrTransactionFinished
	}
	if t.mode != storage.ReadOnly && t.iterators > 0 {
		return nil, fmt.Errorf("%w: a read-write transaction allows one open cursor", storage.ErrInvalidState)
	}
	t.iterators++
	return t.btx.NewIterator(opts), nil
}

func (t *txn) closeIterator(iter *badger.Iterator) {
	iter.Close()
	t.iterators--
}

// deletePrefix removes every key under prefix.
func (t *txn) deletePrefix(prefix []byte) error {
	if t.mode != storage.ReadOnly && t.iterators > 0 {
		return fmt.Errorf("%w: close open cursors before bulk deletes", storage.ErrInvalidState)
	}
	return deletePrefix(t.btx, prefix)
}

// Upgrade operations. These mutate the working catalog; the engine persists
// it when the version change commits.

func (t *txn) checkUpgrade() error {
	if t.done {
		return storage.ErrTransactionFinished
	}
	if t.mode != storage.VersionChange {
		return fmt.Errorf("%w: schema changes require a version-change transaction", storage.ErrInvalidState)
	}
	return nil
}

func (t *txn) StoreNames() []string {
	return t.meta.StoreNames()
}

func (t *txn) HasStore(name string) bool {
	_, ok := t.meta.Store(name)
	return ok
}

func (t *txn) CreateStore(name string, key schema.KeyConfig) (storage.ObjectStore, error) {
	if err := t.checkUpgrade(); err != nil {
		return nil, err
	}
	s := schema.StoreSchema{Name: name, Key: key}.Clone()
	if err := schema.ValidateStore(s); err != nil {
		return nil, err
	}
	if t.HasStore(name) {
		return nil, fmt.Errorf("%w: %q", storage.ErrStoreExists, name)
	}
	t.meta.AddStore(s)
	t.backend.logger.Debug("store created", "db", t.meta.Name, "store", name)
	return &objectStore{tx: t, name: name}, nil
}

func (t *txn) DeleteStore(name string) error {
	if err := t.checkUpgrade(); err != nil {
		return err
	}
	if !t.HasStore(name) {
		return fmt.Errorf("%w: %q", storage.ErrStoreNotFound, name)
	}
	db := t.meta.Name
	if err := t.deletePrefix(makeStorePrefix(db, name)); err != nil {
		return err
	}
	if err := t.deletePrefix(makeStoreIndexPrefix(db, name)); err != nil {
		return err
	}
	if err := t.btx.Delete(makeGeneratorKey(db, name)); err != nil {
		return err
	}
	t.meta.RemoveStore(name)
	t.backend.logger.Debug("store deleted", "db", db, "store", name)
	return nil
}

func (t *txn) CreateIndex(store string, idx schema.IndexSchema) error {
	if err := t.checkUpgrade(); err != nil {
		return err
	}
	if err := schema.ValidateIndex(idx); err != nil {
		return err
	}
	s, ok := t.meta.Store(store)
	if !ok {
		return fmt.Errorf("%w: %q", storage.ErrStoreNotFound, store)
	}
	if _, exists := s.Index(idx.Name); exists {
		return fmt.Errorf("%w: %q on %q", storage.ErrIndexExists, idx.Name, store)
	}

	entries, err := t.buildIndexEntries(store, idx)
	if err != nil {
		return err
	}
	for _, key := range entries {
		if err := t.btx.Set(key, nil); err != nil {
			return err
		}
	}

	idx.KeyPath = slices.Clone(idx.KeyPath)
	s.Indexes = append(s.Indexes, idx)
	t.backend.logger.Debug("index created", "db", t.meta.Name, "store", store, "index", idx.Name,
		"entries", len(entries))
	return nil
}

// buildIndexEntries computes the index entries of every existing record,
// enforcing uniqueness across them.
func (t *txn) buildIndexEntries(store string, idx schema.IndexSchema) ([][]byte, error) {
	db := t.meta.Name
	prefix := makeStorePrefix(db, store)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter, err := t.newIterator(opts)
	if err != nil {
		return nil, err
	}
	defer t.closeIterator(iter)

	var entries [][]byte
	owners := make(map[string]string)
	for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		pk := item.KeyCopy(nil)[len(prefix):]
		var doc any
		err := item.Value(func(val []byte) error {
			var derr error
			doc, derr = storage.DecodeDocument(val)
			return derr
		})
		if err != nil {
			return nil, err
		}
		for _, ik := range keys.ExtractIndexKeys(doc, idx.KeyPath, idx.MultiEntry) {
			ikEnc := keys.MustEncode(ik)
			if idx.Unique {
				if owner, taken := owners[string(ikEnc)]; taken && owner != string(pk) {
					return nil, fmt.Errorf("%w: index %q key %v", storage.ErrConstraint, idx.Name, ik)
				}
				owners[string(ikEnc)] = string(pk)
			}
			entries = append(entries, makeIndexKey(db, store, idx.Name, ikEnc, pk))
		}
	}
	return entries, nil
}

func (t *txn) DeleteIndex(store, index string) error {
	if err := t.checkUpgrade(); err != nil {
		return err
	}
	s, ok := t.meta.Store(store)
	if !ok {
		return fmt.Errorf("%w: %q", storage.ErrStoreNotFound, store)
	}
	if _, exists := s.Index(index); !exists {
		return fmt.Errorf("%w: %q on %q", storage.ErrIndexNotFound, index, store)
	}
	if err := t.deletePrefix(makeIndexPrefix(t.meta.Name, store, index)); err != nil {
		return err
	}
	s.Indexes = slices.DeleteFunc(s.Indexes, func(idx schema.IndexSchema) bool { return idx.Name == index })
	t.backend.logger.Debug("index deleted", "db", t.meta.Name, "store", store, "index", index)
	return nil
}
