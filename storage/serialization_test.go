package storage

import (
	"testing"

	"github.com/poiesic/objectdb/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalDatabaseMeta(t *testing.T) {
	meta := &DatabaseMeta{
		Name:    "app",
		Version: 3,
		Stores: []schema.StoreSchema{
			{
				Name: "notes",
			},
			{
				Name: "people",
				Key:  schema.KeyConfig{KeyPath: []string{"id"}, AutoIncrement: true},
				Indexes: []schema.IndexSchema{
					{Name: "email", KeyPath: []string{"email"}, Unique: true},
					{Name: "tags", KeyPath: []string{"tags"}, MultiEntry: true},
					{Name: "name", KeyPath: []string{"last", "first"}},
				},
			},
		},
	}

	data := MarshalDatabaseMeta(meta)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalDatabaseMeta(data)
	require.NoError(t, err)
	assert.Equal(t, meta, decoded)
}

func TestUnmarshalDatabaseMeta_Invalid(t *testing.T) {
	data := MarshalDatabaseMeta(&DatabaseMeta{
		Name:    "app",
		Version: 1,
		Stores:  []schema.StoreSchema{{Name: "people"}},
	})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", data[:len(data)-2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalDatabaseMeta(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestMarshalUnmarshalGenerator(t *testing.T) {
	for _, v := range []uint64{0, 1, 300, 1 << 53} {
		got, err := UnmarshalGenerator(MarshalGenerator(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	_, err := UnmarshalGenerator(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestEncodeValue(t *testing.T) {
	data, err := EncodeValue(map[string]any{"id": 1, "name": "alice"})
	require.NoError(t, err)

	doc, err := DecodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "alice"}, doc)

	_, err = EncodeValue(make(chan int))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = DecodeDocument([]byte("{"))
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestDatabaseMeta_Stores(t *testing.T) {
	meta := &DatabaseMeta{Name: "app", Version: 1}
	meta.AddStore(schema.StoreSchema{Name: "zeta"})
	meta.AddStore(schema.StoreSchema{Name: "alpha"})

	assert.Equal(t, []string{"alpha", "zeta"}, meta.StoreNames())

	s, ok := meta.Store("zeta")
	require.True(t, ok)
	assert.Equal(t, "zeta", s.Name)

	clone := meta.Clone()
	meta.RemoveStore("zeta")
	assert.Equal(t, []string{"alpha"}, meta.StoreNames())
	assert.Equal(t, []string{"alpha", "zeta"}, clone.StoreNames())
}
