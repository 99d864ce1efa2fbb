package badger

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/objectdb/keys"
	"github.com/poiesic/objectdb/schema"
	"github.com/poiesic/objectdb/storage"
)

// maxGeneratedKey is the largest key a key generator hands out.
const maxGeneratedKey = 1 << 53

// objectStore implements storage.ObjectStore. The schema is looked up on
// every call because an upgrade transaction may change or delete the store
// after the handle was obtained.
type objectStore struct {
	tx   *txn
	name string
}

var _ storage.ObjectStore = (*objectStore)(nil)

func (s *objectStore) Name() string {
	return s.name
}

func (s *objectStore) Schema() schema.StoreSchema {
	sch, ok := s.tx.meta.Store(s.name)
	if !ok {
		return schema.StoreSchema{Name: s.name}
	}
	return sch.Clone()
}

func (s *objectStore) lookup() (*schema.StoreSchema, error) {
	sch, ok := s.tx.meta.Store(s.name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrStoreNotFound, s.name)
	}
	return sch, nil
}

func (s *objectStore) Add(value any, key any) (any, error) {
	return s.write(value, key, false)
}

func (s *objectStore) Put(value any, key any) (any, error) {
	return s.write(value, key, true)
}

func (s *objectStore) write(value any, key any, overwrite bool) (any, error) {
	if err := s.tx.checkWritable(); err != nil {
		return nil, err
	}
	sch, err := s.lookup()
	if err != nil {
		return nil, err
	}

	data, err := storage.EncodeValue(value)
	if err != nil {
		return nil, err
	}
	doc, err := storage.DecodeDocument(data)
	if err != nil {
		return nil, err
	}

	pk, injected, err := s.resolveKey(sch, doc, key)
	if err != nil {
		return nil, err
	}
	if injected != nil {
		doc = injected
		if data, err = storage.EncodeValue(doc); err != nil {
			return nil, err
		}
	}

	pkEnc := keys.MustEncode(pk)
	recordKey := makeRecordKey(s.tx.meta.Name, s.name, pkEnc)
	old, err := s.tx.getValue(recordKey)
	if err != nil {
		return nil, err
	}
	if old != nil && !overwrite {
		return nil, fmt.Errorf("%w: %v in %q", storage.ErrDuplicateKey, pk, s.name)
	}

	entries, err := s.indexEntries(sch, doc, pkEnc)
	if err != nil {
		return nil, err
	}
	if old != nil {
		if err := s.removeIndexEntries(sch, old, pkEnc); err != nil {
			return nil, err
		}
	}
	for _, e := range entries {
		if err := s.tx.btx.Set(e, nil); err != nil {
			return nil, err
		}
	}
	if err := s.tx.btx.Set(recordKey, data); err != nil {
		return nil, err
	}
	return pk, nil
}

// resolveKey determines the primary key of a write. When a generated key is
// injected into the value, the modified document is returned; otherwise the
// returned document is nil.
func (s *objectStore) resolveKey(sch *schema.StoreSchema, doc any, explicit any) (any, any, error) {
	if sch.Key.Inline() {
		if explicit != nil {
			return nil, nil, fmt.Errorf("%w: store %q uses inline keys; an explicit key is not allowed", storage.ErrInvalidKey, s.name)
		}
		if _, present := keys.Extract(doc, sch.Key.KeyPath); !present && sch.Key.AutoIncrement {
			pk, err := s.nextKey()
			if err != nil {
				return nil, nil, err
			}
			if err := keys.Inject(doc, sch.Key.KeyPath[0], pk); err != nil {
				return nil, nil, fmt.Errorf("%w: %w", storage.ErrInvalidKey, err)
			}
			return pk, doc, nil
		}
		pk, err := keys.ExtractKey(doc, sch.Key.KeyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", storage.ErrInvalidKey, err)
		}
		return pk, nil, s.observeKey(sch, pk)
	}

	if explicit == nil {
		if !sch.Key.AutoIncrement {
			return nil, nil, fmt.Errorf("%w: store %q requires an explicit key", storage.ErrInvalidKey, s.name)
		}
		pk, err := s.nextKey()
		return pk, nil, err
	}
	pk, err := keys.Normalize(explicit)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", storage.ErrInvalidKey, err)
	}
	return pk, nil, s.observeKey(sch, pk)
}

func (s *objectStore) generator() ([]byte, uint64, error) {
	genKey := makeGeneratorKey(s.tx.meta.Name, s.name)
	raw, err := s.tx.getValue(genKey)
	if err != nil {
		return nil, 0, err
	}
	if raw == nil {
		return genKey, 1, nil
	}
	next, err := storage.UnmarshalGenerator(raw)
	return genKey, next, err
}

// nextKey hands out the next generated key and advances the generator.
func (s *objectStore) nextKey() (any, error) {
	genKey, next, err := s.generator()
	if err != nil {
		return nil, err
	}
	if next > maxGeneratedKey {
		return nil, fmt.Errorf("%w: store %q", storage.ErrKeyGeneratorExhausted, s.name)
	}
	if err := s.tx.btx.Set(genKey, storage.MarshalGenerator(next+1)); err != nil {
		return nil, err
	}
	return float64(next), nil
}

// observeKey moves the generator past an explicitly supplied numeric key.
func (s *objectStore) observeKey(sch *schema.StoreSchema, pk any) error {
	if !sch.Key.AutoIncrement {
		return nil
	}
	f, ok := keys.AsNumber(pk)
	if !ok || f < 1 {
		return nil
	}
	genKey, next, err := s.generator()
	if err != nil {
		return err
	}
	var candidate uint64 = maxGeneratedKey + 1
	if f < maxGeneratedKey {
		candidate = uint64(math.Floor(f)) + 1
	}
	if candidate <= next {
		return nil
	}
	return s.tx.btx.Set(genKey, storage.MarshalGenerator(candidate))
}

// indexEntries computes the index entries a record contributes and checks
// unique indexes for conflicts with other records.
func (s *objectStore) indexEntries(sch *schema.StoreSchema, doc any, pkEnc []byte) ([][]byte, error) {
	var entries [][]byte
	for _, idx := range sch.Indexes {
		for _, ik := range keys.ExtractIndexKeys(doc, idx.KeyPath, idx.MultiEntry) {
			ikEnc := keys.MustEncode(ik)
			if idx.Unique {
				taken, err := s.indexKeyTaken(idx.Name, ikEnc, pkEnc)
				if err != nil {
					return nil, err
				}
				if taken {
					return nil, fmt.Errorf("%w: index %q key %v", storage.ErrConstraint, idx.Name, ik)
				}
			}
			entries = append(entries, makeIndexKey(s.tx.meta.Name, s.name, idx.Name, ikEnc, pkEnc))
		}
	}
	return entries, nil
}

// indexKeyTaken reports whether a record other than pkEnc holds ikEnc.
func (s *objectStore) indexKeyTaken(index string, ikEnc, pkEnc []byte) (bool, error) {
	prefix := withSuffix(makeIndexPrefix(s.tx.meta.Name, s.name, index), ikEnc)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter, err := s.tx.newIterator(opts)
	if err != nil {
		return false, err
	}
	defer s.tx.closeIterator(iter)

	for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
		if !bytes.Equal(iter.Item().Key()[len(prefix):], pkEnc) {
			return true, nil
		}
	}
	return false, nil
}

func (s *objectStore) removeIndexEntries(sch *schema.StoreSchema, oldData []byte, pkEnc []byte) error {
	if len(sch.Indexes) == 0 {
		return nil
	}
	doc, err := storage.DecodeDocument(oldData)
	if err != nil {
		return err
	}
	for _, idx := range sch.Indexes {
		for _, ik := range keys.ExtractIndexKeys(doc, idx.KeyPath, idx.MultiEntry) {
			key := makeIndexKey(s.tx.meta.Name, s.name, idx.Name, keys.MustEncode(ik), pkEnc)
			if err := s.tx.btx.Delete(key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *objectStore) Get(key any) ([]byte, error) {
	if err := s.tx.checkActive(); err != nil {
		return nil, err
	}
	if _, err := s.lookup(); err != nil {
		return nil, err
	}
	pkEnc, err := encodeKey(key)
	if err != nil {
		return nil, err
	}
	return s.tx.getValue(makeRecordKey(s.tx.meta.Name, s.name, pkEnc))
}

func (s *objectStore) GetAll(rng *keys.Range, limit int) ([][]byte, error) {
	c, err := s.openCursor(rng, storage.Next, false)
	if err != nil {
		return nil, err
	}
	return collectValues(c, limit)
}

func (s *objectStore) Count(rng *keys.Range) (int, error) {
	c, err := s.openCursor(rng, storage.Next, true)
	if err != nil {
		return 0, err
	}
	return countEntries(c)
}

func (s *objectStore) Delete(key any) error {
	if err := s.tx.checkWritable(); err != nil {
		return err
	}
	sch, err := s.lookup()
	if err != nil {
		return err
	}
	pkEnc, err := encodeKey(key)
	if err != nil {
		return err
	}
	return s.deleteRecord(sch, pkEnc)
}

func (s *objectStore) deleteRecord(sch *schema.StoreSchema, pkEnc []byte) error {
	recordKey := makeRecordKey(s.tx.meta.Name, s.name, pkEnc)
	old, err := s.tx.getValue(recordKey)
	if err != nil || old == nil {
		return err
	}
	if err := s.removeIndexEntries(sch, old, pkEnc); err != nil {
		return err
	}
	return s.tx.btx.Delete(recordKey)
}

func (s *objectStore) DeleteRange(rng *keys.Range) error {
	if err := s.tx.checkWritable(); err != nil {
		return err
	}
	sch, err := s.lookup()
	if err != nil {
		return err
	}
	c, err := s.openCursor(rng, storage.Next, true)
	if err != nil {
		return err
	}
	var doomed [][]byte
	for c.Next() {
		doomed = append(doomed, c.pkEnc)
	}
	c.Close()
	if err := c.Err(); err != nil {
		return err
	}
	for _, pkEnc := range doomed {
		if err := s.deleteRecord(sch, pkEnc); err != nil {
			return err
		}
	}
	return nil
}

func (s *objectStore) Clear() error {
	if err := s.tx.checkWritable(); err != nil {
		return err
	}
	if _, err := s.lookup(); err != nil {
		return err
	}
	if err := s.tx.deletePrefix(makeStorePrefix(s.tx.meta.Name, s.name)); err != nil {
		return err
	}
	return s.tx.deletePrefix(makeStoreIndexPrefix(s.tx.meta.Name, s.name))
}

func (s *objectStore) OpenCursor(rng *keys.Range, dir storage.Direction) (storage.Cursor, error) {
	return s.openCursor(rng, dir, false)
}

func (s *objectStore) openCursor(rng *keys.Range, dir storage.Direction, keysOnly bool) (*cursor, error) {
	if err := s.tx.checkActive(); err != nil {
		return nil, err
	}
	if _, err := s.lookup(); err != nil {
		return nil, err
	}
	return s.tx.openCursor(cursorSpec{
		prefix:   makeStorePrefix(s.tx.meta.Name, s.name),
		rng:      rng,
		dir:      dir,
		keysOnly: keysOnly,
	})
}

func (s *objectStore) Index(name string) (storage.Index, error) {
	if err := s.tx.checkActive(); err != nil {
		return nil, err
	}
	sch, err := s.lookup()
	if err != nil {
		return nil, err
	}
	if _, ok := sch.Index(name); !ok {
		return nil, fmt.Errorf("%w: %q on %q", storage.ErrIndexNotFound, name, s.name)
	}
	return &index{store: s, name: name}, nil
}

// getValue returns a copy of the value stored under key, or nil.
func (t *txn) getValue(key []byte) ([]byte, error) {
	item, err := t.btx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func encodeKey(key any) ([]byte, error) {
	enc, err := keys.Encode(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrInvalidKey, err)
	}
	return enc, nil
}

func collectValues(c *cursor, limit int) ([][]byte, error) {
	defer c.Close()
	var out [][]byte
	for (limit <= 0 || len(out) < limit) && c.Next() {
		v, err := c.Value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, c.Err()
}

func countEntries(c *cursor) (int, error) {
	defer c.Close()
	n := 0
	for c.Next() {
		n++
	}
	return n, c.Err()
}
