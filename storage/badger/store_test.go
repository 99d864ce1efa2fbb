package badger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/poiesic/objectdb/keys"
	"github.com/poiesic/objectdb/schema"
	"github.com/poiesic/objectdb/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inStore runs fn against one store in a transaction and commits it when fn
// returns without failing the test.
func inStore(t *testing.T, c storage.Conn, mode storage.TxMode, name string, fn func(s storage.ObjectStore)) {
	t.Helper()
	tx, err := c.Begin(context.Background(), mode, name)
	require.NoError(t, err)
	defer tx.Abort()
	s, err := tx.Store(name)
	require.NoError(t, err)
	fn(s)
	require.NoError(t, tx.Commit())
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestStore_OutOfLineKeys(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{Name: "notes"})

	inStore(t, c, storage.ReadWrite, "notes", func(s storage.ObjectStore) {
		pk, err := s.Add(map[string]any{"text": "one"}, "n1")
		require.NoError(t, err)
		assert.Equal(t, "n1", pk)

		_, err = s.Add(map[string]any{"text": "dup"}, "n1")
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)

		_, err = s.Add(map[string]any{"text": "nokey"}, nil)
		assert.ErrorIs(t, err, storage.ErrInvalidKey)

		_, err = s.Add(map[string]any{"text": "badkey"}, true)
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})

	inStore(t, c, storage.ReadOnly, "notes", func(s storage.ObjectStore) {
		v, err := s.Get("n1")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"text": "one"}, decode(t, v))

		v, err = s.Get("missing")
		require.NoError(t, err)
		assert.Nil(t, v)

		_, err = s.Get(map[string]any{})
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})
}

func TestStore_InlineKeys(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{
		Name: "people",
		Key:  schema.KeyConfig{KeyPath: []string{"profile.id"}},
	})

	inStore(t, c, storage.ReadWrite, "people", func(s storage.ObjectStore) {
		pk, err := s.Add(map[string]any{"profile": map[string]any{"id": "p1"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "p1", pk)

		_, err = s.Add(map[string]any{"profile": map[string]any{"id": "p2"}}, "p2")
		assert.ErrorIs(t, err, storage.ErrInvalidKey)

		_, err = s.Add(map[string]any{"name": "no id"}, nil)
		assert.ErrorIs(t, err, storage.ErrInvalidKey)

		_, err = s.Add(map[string]any{"profile": map[string]any{"id": true}}, nil)
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})
}

func TestStore_CompoundKey(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{
		Name: "people",
		Key:  schema.KeyConfig{KeyPath: []string{"last", "first"}},
	})

	inStore(t, c, storage.ReadWrite, "people", func(s storage.ObjectStore) {
		pk, err := s.Add(map[string]any{"first": "ada", "last": "lovelace"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []any{"lovelace", "ada"}, pk)

		v, err := s.Get([]string{"lovelace", "ada"})
		require.NoError(t, err)
		assert.NotNil(t, v)
	})
}

func TestStore_AutoIncrement(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app",
		schema.StoreSchema{Name: "inline", Key: schema.KeyConfig{KeyPath: []string{"id"}, AutoIncrement: true}},
		schema.StoreSchema{Name: "outline", Key: schema.KeyConfig{AutoIncrement: true}},
	)

	inStore(t, c, storage.ReadWrite, "inline", func(s storage.ObjectStore) {
		pk, err := s.Add(map[string]any{"name": "a"}, nil)
		require.NoError(t, err)
		assert.Equal(t, float64(1), pk)

		v, err := s.Get(1)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"id": float64(1), "name": "a"}, decode(t, v))

		// explicit numeric keys move the generator forward
		pk, err = s.Add(map[string]any{"id": 10.5, "name": "b"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 10.5, pk)

		pk, err = s.Add(map[string]any{"name": "c"}, nil)
		require.NoError(t, err)
		assert.Equal(t, float64(11), pk)

		// strings leave it alone
		_, err = s.Add(map[string]any{"id": "x", "name": "d"}, nil)
		require.NoError(t, err)
		pk, err = s.Add(map[string]any{"name": "e"}, nil)
		require.NoError(t, err)
		assert.Equal(t, float64(12), pk)

		// a value that is not an object cannot receive a key
		_, err = s.Add("scalar", nil)
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})

	inStore(t, c, storage.ReadWrite, "outline", func(s storage.ObjectStore) {
		pk, err := s.Add("first", nil)
		require.NoError(t, err)
		assert.Equal(t, float64(1), pk)

		pk, err = s.Add("explicit", 5)
		require.NoError(t, err)
		assert.Equal(t, float64(5), pk)

		pk, err = s.Add("next", nil)
		require.NoError(t, err)
		assert.Equal(t, float64(6), pk)

		_, err = s.Add("small int", uint8(20))
		require.NoError(t, err)
		pk, err = s.Add("after", nil)
		require.NoError(t, err)
		assert.Equal(t, float64(21), pk)
	})
}

func TestStore_KeyGeneratorExhausted(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{Name: "s", Key: schema.KeyConfig{AutoIncrement: true}})

	inStore(t, c, storage.ReadWrite, "s", func(s storage.ObjectStore) {
		_, err := s.Add("max", float64(1<<53))
		require.NoError(t, err)

		_, err = s.Add("over", nil)
		assert.ErrorIs(t, err, storage.ErrKeyGeneratorExhausted)

		// explicit keys still work
		_, err = s.Add("explicit", 7)
		assert.NoError(t, err)
	})
}

func TestStore_GeneratorRollsBackWithTransaction(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{Name: "s", Key: schema.KeyConfig{AutoIncrement: true}})

	tx, err := c.Begin(context.Background(), storage.ReadWrite, "s")
	require.NoError(t, err)
	s, err := tx.Store("s")
	require.NoError(t, err)
	_, err = s.Add("discarded", nil)
	require.NoError(t, err)
	tx.Abort()

	inStore(t, c, storage.ReadWrite, "s", func(s storage.ObjectStore) {
		pk, err := s.Add("kept", nil)
		require.NoError(t, err)
		assert.Equal(t, float64(1), pk)
	})
}

func TestStore_PutReplaces(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{
		Name:    "people",
		Key:     schema.KeyConfig{KeyPath: []string{"id"}},
		Indexes: []schema.IndexSchema{{Name: "email", KeyPath: []string{"email"}, Unique: true}},
	})

	inStore(t, c, storage.ReadWrite, "people", func(s storage.ObjectStore) {
		_, err := s.Put(map[string]any{"id": 1, "email": "old@x"}, nil)
		require.NoError(t, err)
		_, err = s.Put(map[string]any{"id": 1, "email": "new@x"}, nil)
		require.NoError(t, err)

		n, err := s.Count(nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		idx, err := s.Index("email")
		require.NoError(t, err)
		pk, err := idx.GetKey("old@x")
		require.NoError(t, err)
		assert.Nil(t, pk)
		pk, err = idx.GetKey("new@x")
		require.NoError(t, err)
		assert.Equal(t, float64(1), pk)

		// another record may now take the old address
		_, err = s.Put(map[string]any{"id": 2, "email": "old@x"}, nil)
		require.NoError(t, err)
		_, err = s.Put(map[string]any{"id": 3, "email": "new@x"}, nil)
		assert.ErrorIs(t, err, storage.ErrConstraint)
	})
}

func TestStore_InvalidValue(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{Name: "s"})

	inStore(t, c, storage.ReadWrite, "s", func(s storage.ObjectStore) {
		_, err := s.Add(func() {}, 1)
		assert.ErrorIs(t, err, storage.ErrInvalidValue)
	})
}

func TestStore_RangesAndCounts(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{Name: "nums"})

	inStore(t, c, storage.ReadWrite, "nums", func(s storage.ObjectStore) {
		for i := 1; i <= 10; i++ {
			_, err := s.Add(map[string]any{"n": i}, i)
			require.NoError(t, err)
		}
	})

	inStore(t, c, storage.ReadOnly, "nums", func(s storage.ObjectStore) {
		n, err := s.Count(nil)
		require.NoError(t, err)
		assert.Equal(t, 10, n)

		n, err = s.Count(keys.Bound(3, 7, true, false))
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		all, err := s.GetAll(keys.LowerBound(8, false), 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, float64(8), decode(t, all[0])["n"])

		limited, err := s.GetAll(nil, 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		_, err = s.Count(keys.Bound(5, 1, false, false))
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})
}

func TestStore_DeleteAndClear(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{
		Name:    "nums",
		Indexes: []schema.IndexSchema{{Name: "parity", KeyPath: []string{"parity"}}},
	})

	inStore(t, c, storage.ReadWrite, "nums", func(s storage.ObjectStore) {
		for i := 1; i <= 6; i++ {
			_, err := s.Add(map[string]any{"parity": i % 2}, i)
			require.NoError(t, err)
		}
		require.NoError(t, s.Delete(1))
		require.NoError(t, s.Delete("missing"))
		require.NoError(t, s.DeleteRange(keys.Bound(4, 5, false, false)))

		n, err := s.Count(nil)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		idx, err := s.Index("parity")
		require.NoError(t, err)
		odd, err := idx.Count(keys.Only(1))
		require.NoError(t, err)
		assert.Equal(t, 1, odd)

		require.NoError(t, s.Clear())
		n, err = s.Count(nil)
		require.NoError(t, err)
		assert.Zero(t, n)
		n, err = idx.Count(nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestStore_KeyTypesOrder(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{Name: "mixed"})

	inStore(t, c, storage.ReadWrite, "mixed", func(s storage.ObjectStore) {
		for _, k := range []any{[]any{1}, []byte{1}, "b", "a", 2, -1} {
			_, err := s.Add("v", k)
			require.NoError(t, err)
		}
	})

	tx, err := c.Begin(context.Background(), storage.ReadOnly, "mixed")
	require.NoError(t, err)
	defer tx.Abort()
	s, err := tx.Store("mixed")
	require.NoError(t, err)
	cur, err := s.OpenCursor(nil, storage.Next)
	require.NoError(t, err)
	defer cur.Close()

	var got []any
	for cur.Next() {
		got = append(got, cur.Key())
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, []any{float64(-1), float64(2), "a", "b", []byte{1}, []any{float64(1)}}, got)
}

func TestStore_DateKeysOutsideNanosecondRange(t *testing.T) {
	b := newTestBackend(t)
	c := openWithStores(t, b, "app", schema.StoreSchema{Name: "events"})

	early := time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)

	inStore(t, c, storage.ReadWrite, "events", func(s storage.ObjectStore) {
		for _, k := range []time.Time{late, early, now} {
			_, err := s.Add(k.Format(time.RFC3339), k)
			require.NoError(t, err)
		}
	})

	inStore(t, c, storage.ReadOnly, "events", func(s storage.ObjectStore) {
		v, err := s.Get(late)
		require.NoError(t, err)
		assert.JSONEq(t, `"2300-01-01T00:00:00Z"`, string(v))

		n, err := s.Count(keys.Bound(early, now, false, false))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		cur, err := s.OpenCursor(nil, storage.Next)
		require.NoError(t, err)
		defer cur.Close()
		var got []time.Time
		for cur.Next() {
			got = append(got, cur.Key().(time.Time))
		}
		require.NoError(t, cur.Err())
		assert.Equal(t, []time.Time{early, now, late}, got)
	})
}
