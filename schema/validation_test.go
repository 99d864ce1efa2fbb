package schema

import (
	"errors"
	"testing"
)

func TestValidateStore(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreSchema
		wantErr error
	}{
		{
			name:  "out-of-line keys",
			store: StoreSchema{Name: "people"},
		},
		{
			name: "inline auto-increment with indexes",
			store: StoreSchema{
				Name: "people",
				Key:  KeyConfig{KeyPath: []string{"id"}, AutoIncrement: true},
				Indexes: []IndexSchema{
					{Name: "email", KeyPath: []string{"email"}, Unique: true},
					{Name: "tags", KeyPath: []string{"tags"}, MultiEntry: true},
				},
			},
		},
		{
			name:    "empty store name",
			store:   StoreSchema{},
			wantErr: ErrEmptyName,
		},
		{
			name: "auto-increment with compound key path",
			store: StoreSchema{
				Name: "people",
				Key:  KeyConfig{KeyPath: []string{"a", "b"}, AutoIncrement: true},
			},
			wantErr: ErrAutoIncrementKeyPath,
		},
		{
			name: "auto-increment with value key path",
			store: StoreSchema{
				Name: "people",
				Key:  KeyConfig{KeyPath: []string{""}, AutoIncrement: true},
			},
			wantErr: ErrAutoIncrementKeyPath,
		},
		{
			name: "index without key path",
			store: StoreSchema{
				Name:    "people",
				Indexes: []IndexSchema{{Name: "email"}},
			},
			wantErr: ErrEmptyKeyPath,
		},
		{
			name: "multiEntry compound index",
			store: StoreSchema{
				Name:    "people",
				Indexes: []IndexSchema{{Name: "x", KeyPath: []string{"a", "b"}, MultiEntry: true}},
			},
			wantErr: ErrMultiEntryKeyPath,
		},
		{
			name: "duplicate index",
			store: StoreSchema{
				Name: "people",
				Indexes: []IndexSchema{
					{Name: "email", KeyPath: []string{"email"}},
					{Name: "email", KeyPath: []string{"mail"}},
				},
			},
			wantErr: ErrDuplicateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStore(tt.store)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateStore() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateStore() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidStore) {
				t.Errorf("ValidateStore() error should wrap ErrInvalidStore, got %v", err)
			}
		})
	}
}

func TestValidateStores_Duplicate(t *testing.T) {
	err := ValidateStores([]StoreSchema{{Name: "a"}, {Name: "b"}, {Name: "a"}})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestFingerprintOf(t *testing.T) {
	a := []StoreSchema{
		{Name: "people", Key: KeyConfig{KeyPath: []string{"id"}}, Indexes: []IndexSchema{
			{Name: "email", KeyPath: []string{"email"}, Unique: true},
			{Name: "age", KeyPath: []string{"age"}},
		}},
		{Name: "notes"},
	}
	reordered := []StoreSchema{
		{Name: "notes"},
		{Name: "people", Key: KeyConfig{KeyPath: []string{"id"}}, Indexes: []IndexSchema{
			{Name: "age", KeyPath: []string{"age"}},
			{Name: "email", KeyPath: []string{"email"}, Unique: true},
		}},
	}

	if FingerprintOf(a) != FingerprintOf(reordered) {
		t.Error("fingerprint should not depend on declaration order")
	}

	changed := CloneAll(a)
	changed[0].Indexes[0].Unique = false
	if FingerprintOf(a) == FingerprintOf(changed) {
		t.Error("fingerprint should change when an index changes")
	}

	if FingerprintOf(nil) != FingerprintOf([]StoreSchema{}) {
		t.Error("nil and empty declarations should hash identically")
	}
}

func TestStoreSchema_Clone(t *testing.T) {
	orig := StoreSchema{
		Name:    "people",
		Key:     KeyConfig{KeyPath: []string{"id"}},
		Indexes: []IndexSchema{{Name: "email", KeyPath: []string{"email"}}},
	}
	clone := orig.Clone()
	clone.Key.KeyPath[0] = "changed"
	clone.Indexes[0].KeyPath[0] = "changed"

	if orig.Key.KeyPath[0] != "id" || orig.Indexes[0].KeyPath[0] != "email" {
		t.Fatal("Clone() shares memory with the original")
	}

	idx, ok := orig.Index("email")
	if !ok || idx.Name != "email" {
		t.Fatalf("Index() = %v, %v", idx, ok)
	}
	if names := orig.IndexNames(); len(names) != 1 || names[0] != "email" {
		t.Fatalf("IndexNames() = %v", names)
	}
}
