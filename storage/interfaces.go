package storage

import (
	"context"

	"github.com/poiesic/objectdb/keys"
	"github.com/poiesic/objectdb/schema"
)

// TxMode selects the kind of transaction.
type TxMode int

const (
	// ReadOnly transactions read a snapshot taken when they begin and run
	// concurrently with every other transaction.
	ReadOnly TxMode = iota
	// ReadWrite transactions serialize against other read-write transactions on the same stores.
	ReadWrite
	// VersionChange is the upgrade transaction; it has exclusive use of the database.
	VersionChange
)

func (m TxMode) String() string {
	switch m {
	case ReadOnly:
		return "readonly"
	case ReadWrite:
		return "readwrite"
	case VersionChange:
		return "versionchange"
	}
	return "unknown"
}

// Direction controls cursor traversal order.
type Direction int

const (
	// Next walks keys in ascending order.
	Next Direction = iota
	// Prev walks keys in descending order.
	Prev
)

// UpgradeEvent describes a version change in progress.
// NewVersion is zero when the target version is unknown.
type UpgradeEvent struct {
	OldVersion uint64
	NewVersion uint64
}

// UpgradeFunc is invoked inside the version-change transaction when a
// database is opened at a version higher than the stored one. Returning an
// error aborts the upgrade and the open.
type UpgradeFunc func(ctx context.Context, tx UpgradeTx, ev UpgradeEvent) error

// DatabaseInfo names a database and its stored version.
type DatabaseInfo struct {
	Name    string
	Version uint64
}

// Engine opens named, versioned databases.
// Implementations must be thread-safe and support concurrent access.
type Engine interface {
	// Open returns a connection to the named database, creating it when absent.
	// A version of zero opens the current version (1 for a new database).
	// Opening below the stored version fails with ErrVersion. Opening above it
	// runs onUpgrade inside a version-change transaction first; the upgrade
	// fails with ErrBlocked while other connections to the database are open.
	Open(ctx context.Context, name string, version uint64, onUpgrade UpgradeFunc) (Conn, error)

	// Databases lists every database with its stored version.
	Databases(ctx context.Context) ([]DatabaseInfo, error)

	// DeleteDatabase removes a database with all of its stores and records.
	// Deleting a database that does not exist is not an error.
	DeleteDatabase(ctx context.Context, name string) error

	// Close shuts the engine down and releases resources.
	Close() error
}

// Conn is an open connection to one database at one version.
type Conn interface {
	// ID identifies the connection in logs.
	ID() string
	Name() string
	Version() uint64

	// StoreNames returns the names of the stores present, sorted.
	StoreNames() []string
	HasStore(name string) bool

	// StoreSchema returns the persisted schema of a store.
	StoreSchema(name string) (schema.StoreSchema, bool)

	// Begin starts a transaction scoped to the named stores.
	// Returns ErrStoreNotFound if any store does not exist.
	Begin(ctx context.Context, mode TxMode, stores ...string) (Tx, error)

	// Close releases the connection. Closing twice is a no-op.
	Close() error
}

// Tx is a transaction over a fixed set of stores.
// A Tx must be finished with exactly one of Commit or Abort.
type Tx interface {
	Mode() TxMode

	// Store returns a handle to a store in the transaction's scope.
	Store(name string) (ObjectStore, error)

	// Commit makes every write of the transaction durable.
	Commit() error

	// Abort discards the transaction. Aborting a finished transaction is a no-op.
	Abort()
}

// UpgradeTx is the version-change transaction. It is scoped to every store
// and additionally permits schema changes.
type UpgradeTx interface {
	Tx

	StoreNames() []string
	HasStore(name string) bool

	// CreateStore creates an empty store. Returns ErrStoreExists if present.
	CreateStore(name string, key schema.KeyConfig) (ObjectStore, error)

	// DeleteStore removes a store and all of its records and indexes.
	DeleteStore(name string) error

	// CreateIndex adds an index to a store and populates it from existing records.
	CreateIndex(store string, idx schema.IndexSchema) error

	// DeleteIndex removes an index from a store.
	DeleteIndex(store, index string) error
}

// ObjectStore provides record operations on one store within a transaction.
// Values are JSON-encodable Go values; reads return the stored JSON.
// Missing records read as nil with no error.
type ObjectStore interface {
	Name() string
	Schema() schema.StoreSchema

	// Add inserts a record and returns its primary key.
	// Returns ErrDuplicateKey if the key is already present.
	Add(value any, key any) (any, error)

	// Put inserts or replaces a record and returns its primary key.
	Put(value any, key any) (any, error)

	Get(key any) ([]byte, error)

	// GetAll returns records in key order. A limit of zero means no limit.
	GetAll(rng *keys.Range, limit int) ([][]byte, error)

	Count(rng *keys.Range) (int, error)

	// Delete removes the record with the given key. Deleting a missing key is not an error.
	Delete(key any) error

	// DeleteRange removes every record whose key falls in rng.
	DeleteRange(rng *keys.Range) error

	// Clear removes every record.
	Clear() error

	OpenCursor(rng *keys.Range, dir Direction) (Cursor, error)

	// Index returns a handle to a named index. Returns ErrIndexNotFound if absent.
	Index(name string) (Index, error)
}

// Index provides lookups through a secondary index.
type Index interface {
	Name() string
	Schema() schema.IndexSchema

	// Get returns the first record, in index order, whose index key equals key.
	Get(key any) ([]byte, error)

	// GetKey returns the primary key of the first record matching key, or nil.
	GetKey(key any) (any, error)

	GetAll(rng *keys.Range, limit int) ([][]byte, error)
	Count(rng *keys.Range) (int, error)
	OpenCursor(rng *keys.Range, dir Direction) (Cursor, error)
}

// Cursor iterates over store or index entries. Call Next before reading the
// first entry. A Cursor must be closed before its transaction finishes.
type Cursor interface {
	// Next advances to the next entry and reports whether one exists.
	Next() bool

	// Key is the entry's key: the primary key for store cursors, the
	// index key for index cursors.
	Key() any

	PrimaryKey() any

	// Value returns the record the entry refers to.
	Value() ([]byte, error)

	// Err returns the error that stopped iteration, if any.
	Err() error

	Close()
}
