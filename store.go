package objectdb

import (
	"context"

	"github.com/poiesic/objectdb/keys"
)

// Store is the operation set bound to one object store. Each call opens a
// fresh connection, runs one transaction and closes the connection.
//
// Store methods return once the operation has resolved. A failure that
// happens after resolution, such as a commit error following a successful
// Add, is returned as well.
type Store struct {
	ops ops
}

func (s *Store) bound() ops {
	if s == nil {
		return ops{}
	}
	return s.ops
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.bound().store
}

// GetAll returns every record in key order.
func (s *Store) GetAll(ctx context.Context) ([]Value, error) {
	o := s.bound()
	return runInline(ctx, o, o.getAll())
}

// GetByID returns the record stored under key, or nil when there is none.
func (s *Store) GetByID(ctx context.Context, key any) (Value, error) {
	o := s.bound()
	return runInline(ctx, o, o.getByID(key))
}

// GetByIndex returns the first record whose key in the named index equals
// key, or nil when there is none.
func (s *Store) GetByIndex(ctx context.Context, index string, key any) (Value, error) {
	o := s.bound()
	return runInline(ctx, o, o.getByIndex(index, key))
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	o := s.bound()
	return runInline(ctx, o, o.count())
}

// OpenCursor walks the records in rng (nil for all) in key order, calling fn
// for each. It returns after the first call to fn; the rest of the
// traversal runs in the background over the records present when it
// began. fn may read or write the same store.
func (s *Store) OpenCursor(ctx context.Context, fn CursorFunc, rng *keys.Range) error {
	return s.OpenCursorDirection(ctx, fn, rng, Next)
}

// OpenCursorDirection is OpenCursor with an explicit direction.
func (s *Store) OpenCursorDirection(ctx context.Context, fn CursorFunc, rng *keys.Range, dir Direction) error {
	o := s.bound()
	_, err := submit(ctx, o, "openCursor", o.openCursor(fn, rng, dir)).Wait(ctx)
	return err
}

// Add inserts value and returns its key. Stores with a key path take the
// key from the value; others generate one or fail.
func (s *Store) Add(ctx context.Context, value any) (any, error) {
	o := s.bound()
	return runInline(ctx, o, o.add(value, nil))
}

// AddWithKey inserts value under an explicit key.
func (s *Store) AddWithKey(ctx context.Context, value, key any) (any, error) {
	o := s.bound()
	return runInline(ctx, o, o.add(value, key))
}

// Update inserts or replaces value and returns its key once committed.
func (s *Store) Update(ctx context.Context, value any) (any, error) {
	o := s.bound()
	return runInline(ctx, o, o.update(value, nil))
}

// UpdateWithKey inserts or replaces value under an explicit key.
func (s *Store) UpdateWithKey(ctx context.Context, value, key any) (any, error) {
	o := s.bound()
	return runInline(ctx, o, o.update(value, key))
}

// Delete removes the record stored under key. Deleting a missing key is not
// an error.
func (s *Store) Delete(ctx context.Context, key any) error {
	o := s.bound()
	_, err := runInline(ctx, o, o.delete(key))
	return err
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	o := s.bound()
	_, err := runInline(ctx, o, o.clear())
	return err
}
