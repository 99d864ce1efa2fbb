package objectdb

import (
	"context"
	"sync"
)

// Result is the outcome of an asynchronous operation. It settles exactly
// once, with either a value or an error.
type Result[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newResult[T any]() *Result[T] {
	return &Result[T]{done: make(chan struct{})}
}

func failedResult[T any](err error) *Result[T] {
	r := newResult[T]()
	var zero T
	r.settle(zero, err)
	return r
}

// settle records the outcome and reports whether this call settled it.
func (r *Result[T]) settle(v T, err error) bool {
	settled := false
	r.once.Do(func() {
		r.value, r.err = v, err
		close(r.done)
		settled = true
	})
	return settled
}

// Done is closed once the result has settled.
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the result settles or ctx is done. Giving up on a
// result does not stop the operation behind it.
func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
