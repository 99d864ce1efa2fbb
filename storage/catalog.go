package storage

import (
	"slices"
	"strings"

	"github.com/poiesic/objectdb/schema"
)

// DatabaseMeta is the persisted catalog entry of one database: its version
// and the schema of every store it contains.
type DatabaseMeta struct {
	Name    string
	Version uint64
	Stores  []schema.StoreSchema
}

// Store returns a pointer to the named store's schema within the catalog.
func (m *DatabaseMeta) Store(name string) (*schema.StoreSchema, bool) {
	for i := range m.Stores {
		if m.Stores[i].Name == name {
			return &m.Stores[i], true
		}
	}
	return nil, false
}

// StoreNames returns the store names, sorted.
func (m *DatabaseMeta) StoreNames() []string {
	names := make([]string, len(m.Stores))
	for i, s := range m.Stores {
		names[i] = s.Name
	}
	slices.Sort(names)
	return names
}

// AddStore appends a store schema and keeps stores sorted by name.
func (m *DatabaseMeta) AddStore(s schema.StoreSchema) {
	m.Stores = append(m.Stores, s)
	slices.SortFunc(m.Stores, func(a, b schema.StoreSchema) int { return strings.Compare(a.Name, b.Name) })
}

// RemoveStore drops the named store from the catalog.
func (m *DatabaseMeta) RemoveStore(name string) {
	m.Stores = slices.DeleteFunc(m.Stores, func(s schema.StoreSchema) bool { return s.Name == name })
}

// Clone returns a deep copy of the catalog entry.
func (m *DatabaseMeta) Clone() *DatabaseMeta {
	return &DatabaseMeta{
		Name:    m.Name,
		Version: m.Version,
		Stores:  schema.CloneAll(m.Stores),
	}
}
