package schema

import "fmt"

// ValidateKeyConfig validates a store key configuration.
//
// Validation rules:
//   - AutoIncrement needs an out-of-line key or a single non-empty key path
func ValidateKeyConfig(key KeyConfig) error {
	if !key.AutoIncrement || !key.Inline() {
		return nil
	}
	if len(key.KeyPath) > 1 || key.KeyPath[0] == "" {
		return ErrAutoIncrementKeyPath
	}
	return nil
}

// ValidateIndex validates an index declaration.
//
// Validation rules:
//   - Name must not be empty
//   - KeyPath must not be empty
//   - MultiEntry cannot be combined with a compound key path
func ValidateIndex(idx IndexSchema) error {
	if idx.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIndex, ErrEmptyName)
	}
	if len(idx.KeyPath) == 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidIndex, idx.Name, ErrEmptyKeyPath)
	}
	if idx.MultiEntry && len(idx.KeyPath) > 1 {
		return fmt.Errorf("%w %q: %w", ErrInvalidIndex, idx.Name, ErrMultiEntryKeyPath)
	}
	return nil
}

// ValidateStore validates a store declaration and all of its indexes.
func ValidateStore(store StoreSchema) error {
	if store.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidStore, ErrEmptyName)
	}
	if err := ValidateKeyConfig(store.Key); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidStore, store.Name, err)
	}
	seen := make(map[string]struct{}, len(store.Indexes))
	for _, idx := range store.Indexes {
		if err := ValidateIndex(idx); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidStore, store.Name, err)
		}
		if _, dup := seen[idx.Name]; dup {
			return fmt.Errorf("%w %q: index %q: %w", ErrInvalidStore, store.Name, idx.Name, ErrDuplicateName)
		}
		seen[idx.Name] = struct{}{}
	}
	return nil
}

// ValidateStores validates a full schema declaration.
func ValidateStores(stores []StoreSchema) error {
	seen := make(map[string]struct{}, len(stores))
	for _, store := range stores {
		if err := ValidateStore(store); err != nil {
			return err
		}
		if _, dup := seen[store.Name]; dup {
			return fmt.Errorf("%w %q: %w", ErrInvalidStore, store.Name, ErrDuplicateName)
		}
		seen[store.Name] = struct{}{}
	}
	return nil
}
