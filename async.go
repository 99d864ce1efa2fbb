package objectdb

import (
	"context"

	"github.com/poiesic/objectdb/keys"
)

// AsyncStore is the operation set of Store with each call running on the
// client's worker pool. Results settle at these points:
//
//   - reads, Add and Delete: when the request succeeds
//   - Update and Clear: when the transaction commits
//   - OpenCursor: after the first callback invocation
//
// Failures after a result settled are logged, not reported.
type AsyncStore struct {
	ops ops
}

func (s *AsyncStore) bound() ops {
	if s == nil {
		return ops{}
	}
	return s.ops
}

// Name returns the store the operations are bound to.
func (s *AsyncStore) Name() string {
	return s.bound().store
}

// GetAll reads every record in key order.
func (s *AsyncStore) GetAll(ctx context.Context) *Result[[]Value] {
	o := s.bound()
	return submit(ctx, o, "getAll", o.getAll())
}

// GetByID reads the record stored under key; a missing record settles with nil.
func (s *AsyncStore) GetByID(ctx context.Context, key any) *Result[Value] {
	o := s.bound()
	return submit(ctx, o, "getByID", o.getByID(key))
}

// GetByIndex reads the first record whose index key equals key.
func (s *AsyncStore) GetByIndex(ctx context.Context, index string, key any) *Result[Value] {
	o := s.bound()
	return submit(ctx, o, "getByIndex", o.getByIndex(index, key))
}

// Count counts the records.
func (s *AsyncStore) Count(ctx context.Context) *Result[int] {
	o := s.bound()
	return submit(ctx, o, "count", o.count())
}

// OpenCursor walks the records in rng (nil for all) in key order.
func (s *AsyncStore) OpenCursor(ctx context.Context, fn CursorFunc, rng *keys.Range) *Result[struct{}] {
	return s.OpenCursorDirection(ctx, fn, rng, Next)
}

// OpenCursorDirection is OpenCursor with an explicit direction.
func (s *AsyncStore) OpenCursorDirection(ctx context.Context, fn CursorFunc, rng *keys.Range, dir Direction) *Result[struct{}] {
	o := s.bound()
	return submit(ctx, o, "openCursor", o.openCursor(fn, rng, dir))
}

// Add inserts value and settles with its key.
func (s *AsyncStore) Add(ctx context.Context, value any) *Result[any] {
	o := s.bound()
	return submit(ctx, o, "add", o.add(value, nil))
}

// AddWithKey inserts value under an explicit key.
func (s *AsyncStore) AddWithKey(ctx context.Context, value, key any) *Result[any] {
	o := s.bound()
	return submit(ctx, o, "add", o.add(value, key))
}

// Update inserts or replaces value and settles after the commit.
func (s *AsyncStore) Update(ctx context.Context, value any) *Result[any] {
	o := s.bound()
	return submit(ctx, o, "update", o.update(value, nil))
}

// UpdateWithKey is Update with an explicit key.
func (s *AsyncStore) UpdateWithKey(ctx context.Context, value, key any) *Result[any] {
	o := s.bound()
	return submit(ctx, o, "update", o.update(value, key))
}

// Delete removes the record stored under key. A missing key is not an error.
func (s *AsyncStore) Delete(ctx context.Context, key any) *Result[struct{}] {
	o := s.bound()
	return submit(ctx, o, "delete", o.delete(key))
}

// Clear removes every record and settles after the commit.
func (s *AsyncStore) Clear(ctx context.Context) *Result[struct{}] {
	o := s.bound()
	return submit(ctx, o, "clear", o.clear())
}
