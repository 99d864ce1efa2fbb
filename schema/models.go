package schema

import "slices"

// KeyConfig describes how an object store derives primary keys.
type KeyConfig struct {
	// KeyPath locates the key inside each value. Empty means keys are
	// supplied out of line with each write. One element is a dotted
	// property path ("" is the value itself); more elements form a
	// compound key.
	KeyPath []string
	// AutoIncrement enables the store's key generator.
	AutoIncrement bool
}

// Inline reports whether keys are read from the stored values.
func (k KeyConfig) Inline() bool {
	return len(k.KeyPath) > 0
}

// IndexSchema describes a secondary index over an object store.
type IndexSchema struct {
	Name    string
	KeyPath []string
	// Unique rejects writes that would give two records the same index key.
	Unique bool
	// MultiEntry indexes each element of an array value separately.
	MultiEntry bool
}

// StoreSchema declares an object store, its key configuration and its indexes.
type StoreSchema struct {
	Name    string
	Key     KeyConfig
	Indexes []IndexSchema
}

// Index returns the index declared with the given name.
func (s *StoreSchema) Index(name string) (IndexSchema, bool) {
	for _, idx := range s.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexSchema{}, false
}

// IndexNames returns the declared index names in declaration order.
func (s *StoreSchema) IndexNames() []string {
	names := make([]string, len(s.Indexes))
	for i, idx := range s.Indexes {
		names[i] = idx.Name
	}
	return names
}

// Clone returns a deep copy of the schema.
func (s StoreSchema) Clone() StoreSchema {
	out := StoreSchema{
		Name: s.Name,
		Key: KeyConfig{
			KeyPath:       slices.Clone(s.Key.KeyPath),
			AutoIncrement: s.Key.AutoIncrement,
		},
	}
	if s.Indexes != nil {
		out.Indexes = make([]IndexSchema, len(s.Indexes))
		for i, idx := range s.Indexes {
			idx.KeyPath = slices.Clone(idx.KeyPath)
			out.Indexes[i] = idx
		}
	}
	return out
}

// CloneAll deep-copies a list of store schemas.
func CloneAll(stores []StoreSchema) []StoreSchema {
	if stores == nil {
		return nil
	}
	out := make([]StoreSchema, len(stores))
	for i, s := range stores {
		out[i] = s.Clone()
	}
	return out
}
