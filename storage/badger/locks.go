package badger

import (
	"slices"
	"sync"

	"github.com/poiesic/objectdb/storage"
)

// lockTable hands out one lock per name. Locks are never removed; the
// table grows with the number of databases and stores.
type lockTable[L any] struct {
	mu    sync.Mutex
	locks map[string]*L
}

func newLockTable[L any]() *lockTable[L] {
	return &lockTable[L]{locks: make(map[string]*L)}
}

func (lt *lockTable[L]) get(name string) *L {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	l, ok := lt.locks[name]
	if !ok {
		l = new(L)
		lt.locks[name] = l
	}
	return l
}

// storeLockName scopes a store lock to its database.
func storeLockName(db, store string) string {
	return db + "\x00" + store
}

// acquireScope takes what a transaction needs and returns the function that
// gives it back.
//
// A version change holds the database lock exclusively. Other transactions
// never touch that lock; they pin the database instead, which makes a
// concurrent upgrade or delete fail with ErrBlocked rather than wait.
// Read-only transactions read a badger snapshot and take no lock, so a
// reader never queues behind a writer. Read-write transactions hold one
// mutex per store, taken in sorted order so overlapping scopes cannot
// deadlock against each other.
func (b *Backend) acquireScope(db string, mode storage.TxMode, stores []string) func() {
	if mode == storage.VersionChange {
		dbLock := b.dbLocks.get(db)
		dbLock.Lock()
		return dbLock.Unlock
	}

	b.pin(db)
	if mode == storage.ReadOnly {
		return func() { b.unpin(db) }
	}

	sorted := slices.Clone(stores)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]*sync.Mutex, len(sorted))
	for i, store := range sorted {
		l := b.storeLocks.get(storeLockName(db, store))
		l.Lock()
		held[i] = l
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
		b.unpin(db)
	}
}
