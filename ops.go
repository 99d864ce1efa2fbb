package objectdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/objectdb/storage"
)

// task runs one operation. It settles r at the operation's resolution point
// and returns any failure that happens afterwards, such as a commit error
// after an add already resolved.
type task[T any] func(ctx context.Context, r *Result[T]) error

// ops binds operations to one store of one client.
type ops struct {
	client *Client
	store  string
}

// session is one connection with one transaction over one store.
type session struct {
	conn   storage.Conn
	tx     storage.Tx
	store  storage.ObjectStore
	logger *slog.Logger
}

func (o ops) begin(ctx context.Context, mode storage.TxMode, op string) (*session, error) {
	c := o.client
	conn, err := c.engine.Open(ctx, c.name, c.version, nil)
	if err != nil {
		return nil, err
	}
	logger := c.logger.With("conn", conn.ID(), "db", c.name, "store", o.store, "op", op)

	// checked before any transaction starts
	if !conn.HasStore(o.store) {
		closeConn(conn, logger)
		return nil, fmt.Errorf("%w: %q", storage.ErrStoreNotFound, o.store)
	}
	tx, err := conn.Begin(ctx, mode, o.store)
	if err != nil {
		closeConn(conn, logger)
		return nil, err
	}
	store, err := tx.Store(o.store)
	if err != nil {
		tx.Abort()
		closeConn(conn, logger)
		return nil, err
	}
	logger.Debug("transaction started", "mode", mode)
	return &session{conn: conn, tx: tx, store: store, logger: logger}, nil
}

// commit commits the transaction and closes the connection.
func (s *session) commit() error {
	err := s.tx.Commit()
	if err != nil {
		s.logger.Debug("commit failed", "err", err)
	} else {
		s.logger.Debug("transaction committed")
	}
	closeConn(s.conn, s.logger)
	return err
}

// end aborts the transaction if it is still active and closes the connection.
func (s *session) end() {
	s.tx.Abort()
	closeConn(s.conn, s.logger)
}

func closeConn(conn storage.Conn, logger *slog.Logger) {
	if err := conn.Close(); err != nil {
		logger.Error("error closing connection", "err", err)
	}
}

// read runs fn in a read-only transaction and settles r with its result.
func read[T any](o ops, op string, fn func(s storage.ObjectStore) (T, error)) task[T] {
	return func(ctx context.Context, r *Result[T]) error {
		sess, err := o.begin(ctx, storage.ReadOnly, op)
		if err != nil {
			return err
		}
		defer sess.end()
		v, err := fn(sess.store)
		if err != nil {
			return err
		}
		r.settle(v, nil)
		return nil
	}
}

func (o ops) getAll() task[[]Value] {
	return read(o, "getAll", func(s storage.ObjectStore) ([]Value, error) {
		raw, err := s.GetAll(nil, 0)
		if err != nil {
			return nil, err
		}
		return toValues(raw), nil
	})
}

func (o ops) getByID(key any) task[Value] {
	return read(o, "getByID", func(s storage.ObjectStore) (Value, error) {
		raw, err := s.Get(key)
		return Value(raw), err
	})
}

func (o ops) getByIndex(index string, key any) task[Value] {
	return read(o, "getByIndex", func(s storage.ObjectStore) (Value, error) {
		idx, err := s.Index(index)
		if err != nil {
			return nil, err
		}
		raw, err := idx.Get(key)
		return Value(raw), err
	})
}

func (o ops) count() task[int] {
	return read(o, "count", func(s storage.ObjectStore) (int, error) {
		return s.Count(nil)
	})
}

// add resolves as soon as the insert succeeds; the commit follows.
func (o ops) add(value, key any) task[any] {
	return func(ctx context.Context, r *Result[any]) error {
		sess, err := o.begin(ctx, storage.ReadWrite, "add")
		if err != nil {
			return err
		}
		pk, err := sess.store.Add(value, key)
		if err != nil {
			sess.end()
			return err
		}
		r.settle(pk, nil)
		return sess.commit()
	}
}

// update resolves after the transaction commits.
func (o ops) update(value, key any) task[any] {
	return func(ctx context.Context, r *Result[any]) error {
		sess, err := o.begin(ctx, storage.ReadWrite, "update")
		if err != nil {
			return err
		}
		pk, err := sess.store.Put(value, key)
		if err != nil {
			sess.end()
			return err
		}
		if err := sess.commit(); err != nil {
			return err
		}
		r.settle(pk, nil)
		return nil
	}
}

// delete resolves as soon as the delete request succeeds; the commit follows.
func (o ops) delete(key any) task[struct{}] {
	return func(ctx context.Context, r *Result[struct{}]) error {
		sess, err := o.begin(ctx, storage.ReadWrite, "delete")
		if err != nil {
			return err
		}
		if err := sess.store.Delete(key); err != nil {
			sess.end()
			return err
		}
		r.settle(struct{}{}, nil)
		return sess.commit()
	}
}

// clear resolves after the transaction commits.
func (o ops) clear() task[struct{}] {
	return func(ctx context.Context, r *Result[struct{}]) error {
		sess, err := o.begin(ctx, storage.ReadWrite, "clear")
		if err != nil {
			return err
		}
		if err := sess.store.Clear(); err != nil {
			sess.end()
			return err
		}
		if err := sess.commit(); err != nil {
			return err
		}
		r.settle(struct{}{}, nil)
		return nil
	}
}

// runInline runs t on the calling goroutine. Unlike the async form it also
// reports failures that happen after the result settled.
func runInline[T any](ctx context.Context, o ops, t task[T]) (T, error) {
	if err := o.client.check(); err != nil {
		var zero T
		return zero, err
	}
	r := newResult[T]()
	err := t(ctx, r)
	var zero T
	if r.settle(zero, err) {
		return zero, err
	}
	v, rerr := r.value, r.err
	if rerr == nil && err != nil {
		return v, err
	}
	return v, rerr
}

// submit runs t on the client's worker pool. Failures after the result
// settled are logged.
func submit[T any](ctx context.Context, o ops, op string, t task[T]) *Result[T] {
	if err := o.client.check(); err != nil {
		return failedResult[T](err)
	}
	r := newResult[T]()
	err := o.client.pool.Submit(func() {
		err := t(ctx, r)
		var zero T
		if !r.settle(zero, err) && err != nil {
			o.client.logger.Warn("operation failed after it resolved",
				"db", o.client.name, "store", o.store, "op", op, "err", err)
		}
	})
	if err != nil {
		return failedResult[T](fmt.Errorf("%w: %w", ErrClientClosed, err))
	}
	return r
}
