package badger

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/poiesic/objectdb/schema"
	"github.com/poiesic/objectdb/storage"
)

// conn is an open connection to one database. The catalog snapshot it holds
// cannot go stale: upgrades and deletes are refused while it is open.
type conn struct {
	id      string
	backend *Backend
	meta    *storage.DatabaseMeta
	closed  atomic.Bool
}

var _ storage.Conn = (*conn)(nil)

func (c *conn) ID() string      { return c.id }
func (c *conn) Name() string    { return c.meta.Name }
func (c *conn) Version() uint64 { return c.meta.Version }

func (c *conn) StoreNames() []string {
	return c.meta.StoreNames()
}

func (c *conn) HasStore(name string) bool {
	_, ok := c.meta.Store(name)
	return ok
}

func (c *conn) StoreSchema(name string) (schema.StoreSchema, bool) {
	s, ok := c.meta.Store(name)
	if !ok {
		return schema.StoreSchema{}, false
	}
	return s.Clone(), true
}

// Begin starts a transaction. A read-write transaction waits for other
// writers on the same stores; a read-only one never waits.
func (c *conn) Begin(ctx context.Context, mode storage.TxMode, stores ...string) (storage.Tx, error) {
	if c.closed.Load() {
		return nil, storage.ErrConnectionClosed
	}
	if c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mode == storage.VersionChange {
		return nil, fmt.Errorf("%w: version-change transactions are started by Open", storage.ErrInvalidState)
	}
	if len(stores) == 0 {
		return nil, fmt.Errorf("%w: empty transaction scope", storage.ErrInvalidState)
	}
	for _, name := range stores {
		if !c.HasStore(name) {
			return nil, fmt.Errorf("%w: %q", storage.ErrStoreNotFound, name)
		}
	}

	release := c.backend.acquireScope(c.meta.Name, mode, stores)
	return newTxn(c.backend, c.meta, mode, stores, release), nil
}

func (c *conn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.backend.unregister(c)
	}
	return nil
}
