package badger

import (
	"fmt"

	"github.com/poiesic/objectdb/keys"
	"github.com/poiesic/objectdb/schema"
	"github.com/poiesic/objectdb/storage"
)

// index implements storage.Index. Entries live under i|db|store|index and
// are ordered by index key, then primary key.
type index struct {
	store *objectStore
	name  string
}

var _ storage.Index = (*index)(nil)

func (ix *index) Name() string {
	return ix.name
}

func (ix *index) Schema() schema.IndexSchema {
	sch, ok := ix.store.tx.meta.Store(ix.store.name)
	if !ok {
		return schema.IndexSchema{Name: ix.name}
	}
	idx, _ := sch.Index(ix.name)
	return idx
}

func (ix *index) Get(key any) ([]byte, error) {
	c, err := ix.first(key)
	if c == nil || err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Value()
}

func (ix *index) GetKey(key any) (any, error) {
	c, err := ix.first(key)
	if c == nil || err != nil {
		return nil, err
	}
	defer c.Close()
	return c.PrimaryKey(), nil
}

// first positions a cursor on the first entry matching key. It returns a
// nil cursor when nothing matches.
func (ix *index) first(key any) (*cursor, error) {
	if _, err := encodeKey(key); err != nil {
		return nil, err
	}
	c, err := ix.openCursor(keys.Only(key), storage.Next, false)
	if err != nil {
		return nil, err
	}
	if !c.Next() {
		c.Close()
		return nil, c.Err()
	}
	return c, nil
}

func (ix *index) GetAll(rng *keys.Range, limit int) ([][]byte, error) {
	c, err := ix.openCursor(rng, storage.Next, false)
	if err != nil {
		return nil, err
	}
	return collectValues(c, limit)
}

func (ix *index) Count(rng *keys.Range) (int, error) {
	c, err := ix.openCursor(rng, storage.Next, true)
	if err != nil {
		return 0, err
	}
	return countEntries(c)
}

func (ix *index) OpenCursor(rng *keys.Range, dir storage.Direction) (storage.Cursor, error) {
	return ix.openCursor(rng, dir, false)
}

func (ix *index) openCursor(rng *keys.Range, dir storage.Direction, keysOnly bool) (*cursor, error) {
	t := ix.store.tx
	if err := t.checkActive(); err != nil {
		return nil, err
	}
	sch, err := ix.store.lookup()
	if err != nil {
		return nil, err
	}
	if _, ok := sch.Index(ix.name); !ok {
		return nil, fmt.Errorf("%w: %q on %q", storage.ErrIndexNotFound, ix.name, ix.store.name)
	}
	db := t.meta.Name
	return t.openCursor(cursorSpec{
		prefix:       makeIndexPrefix(db, ix.store.name, ix.name),
		recordPrefix: makeStorePrefix(db, ix.store.name),
		rng:          rng,
		dir:          dir,
		keysOnly:     keysOnly,
	})
}
