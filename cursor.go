package objectdb

import (
	"context"

	"github.com/poiesic/objectdb/keys"
	"github.com/poiesic/objectdb/storage"
)

// Direction selects cursor traversal order.
type Direction = storage.Direction

const (
	// Next walks keys in ascending order.
	Next = storage.Next
	// Prev walks keys in descending order.
	Prev = storage.Prev
)

// Cursor is the entry a cursor callback is positioned on. The traversal
// moves on only if the callback calls Continue or Advance before returning.
type Cursor struct {
	Key        any
	PrimaryKey any
	Value      Value

	step int
}

// Continue moves the traversal to the next entry.
func (c *Cursor) Continue() {
	c.step = 1
}

// Advance skips n entries; Advance(1) is Continue. Values of n below 1 are
// ignored.
func (c *Cursor) Advance(n int) {
	if n >= 1 {
		c.step = n
	}
}

// CursorFunc receives each entry of a traversal, then a nil cursor once the
// traversal is exhausted. It runs on a worker goroutine.
type CursorFunc func(c *Cursor)

// openCursor settles r after the first callback invocation. The traversal
// then continues on the same goroutine for as long as the callback keeps
// advancing, and the transaction closes when it stops.
func (o ops) openCursor(fn CursorFunc, rng *keys.Range, dir Direction) task[struct{}] {
	return func(ctx context.Context, r *Result[struct{}]) error {
		if fn == nil {
			fn = func(*Cursor) {}
		}
		sess, err := o.begin(ctx, storage.ReadOnly, "openCursor")
		if err != nil {
			return err
		}
		defer sess.end()

		cur, err := sess.store.OpenCursor(rng, dir)
		if err != nil {
			return err
		}
		defer cur.Close()

		visited := 0
		step := 1
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok := false
			for range step {
				if ok = cur.Next(); !ok {
					break
				}
			}
			if !ok {
				if err := cur.Err(); err != nil {
					return err
				}
				fn(nil)
				r.settle(struct{}{}, nil)
				sess.logger.Debug("cursor exhausted", "visited", visited)
				return nil
			}

			value, err := cur.Value()
			if err != nil {
				return err
			}
			c := &Cursor{Key: cur.Key(), PrimaryKey: cur.PrimaryKey(), Value: Value(value)}
			fn(c)
			visited++
			r.settle(struct{}{}, nil)

			if c.step == 0 {
				sess.logger.Debug("cursor stopped by callback", "visited", visited)
				return nil
			}
			step = c.step
		}
	}
}
