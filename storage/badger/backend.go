package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/objectdb/storage"
)

const (
	defaultCatalogCacheSize = 64
)

// Backend wraps a BadgerDB instance and implements storage.Engine on top of it.
type Backend struct {
	db         *badger.DB
	logger     *slog.Logger
	catalog    *lru.Cache[string, *storage.DatabaseMeta]
	dbLocks    *lockTable[sync.RWMutex]
	storeLocks *lockTable[sync.Mutex]

	mu   sync.Mutex
	pins map[string]int // open connections and live transactions per database
}

var _ storage.Engine = (*Backend)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// BackendOption configures a Backend.
type BackendOption func(*backendOptions)

type backendOptions struct {
	logger           *slog.Logger
	catalogCacheSize int
}

// WithLogger sets the logger used by the backend and by BadgerDB itself.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) BackendOption {
	return func(o *backendOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCatalogCacheSize sets how many database catalog entries stay decoded
// in memory. Values below 1 use the default.
func WithCatalogCacheSize(size int) BackendOption {
	return func(o *backendOptions) {
		if size > 0 {
			o.catalogCacheSize = size
		}
	}
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool, opts ...BackendOption) (*Backend, error) {
	options := &backendOptions{
		logger:           slog.Default(),
		catalogCacheSize: defaultCatalogCacheSize,
	}
	for _, opt := range opts {
		opt(options)
	}

	badgerOpts, err := badgerOptions(filePath, inMemory)
	if err != nil {
		return nil, err
	}
	badgerOpts.Logger = &badgerLoggerAdapter{logger: options.logger}

	catalog, err := lru.New[string, *storage.DatabaseMeta](options.catalogCacheSize)
	if err != nil {
		return nil, err
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:         db,
		logger:     options.logger,
		catalog:    catalog,
		dbLocks:    newLockTable[sync.RWMutex](),
		storeLocks: newLockTable[sync.Mutex](),
		pins:       make(map[string]int),
	}, nil
}

func badgerOptions(filePath string, inMemory bool) (badger.Options, error) {
	if inMemory {
		opts := badger.DefaultOptions("").WithInMemory(true)
		opts.Compression = options.None
		return opts, nil
	}

	// Ensure directory exists
	info, err := os.Stat(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return badger.Options{}, err
		}
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return badger.Options{}, err
		}
		info, err = os.Stat(filePath)
		if err != nil {
			return badger.Options{}, err
		}
	}
	if !info.IsDir() {
		return badger.Options{}, fmt.Errorf("%s is not a directory", filePath)
	}
	opts := badger.DefaultOptions(filePath)
	opts.Compression = options.None
	return opts, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// Open implements storage.Engine.
func (b *Backend) Open(ctx context.Context, name string, version uint64, onUpgrade storage.UpgradeFunc) (storage.Conn, error) {
	if b.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The read lock only excludes a running upgrade or delete, and neither
	// of those waits on connections or transactions.
	dbLock := b.dbLocks.get(name)
	dbLock.RLock()
	meta, err := b.loadMeta(name)
	if err != nil {
		dbLock.RUnlock()
		return nil, err
	}
	target, err := targetVersion(meta, version)
	if err != nil {
		dbLock.RUnlock()
		return nil, err
	}
	if meta != nil && target == meta.Version {
		c := b.register(meta)
		dbLock.RUnlock()
		return c, nil
	}
	dbLock.RUnlock()

	// Upgrade path: take the database exclusively and re-read the catalog,
	// which may have moved while no lock was held.
	release := b.acquireScope(name, storage.VersionChange, nil)
	defer release()

	meta, err = b.loadMeta(name)
	if err != nil {
		return nil, err
	}
	if target, err = targetVersion(meta, version); err != nil {
		return nil, err
	}
	if meta == nil || target > meta.Version {
		if n := b.pinned(name); n > 0 {
			return nil, fmt.Errorf("%w: %q is in use by %d connection(s) or transaction(s)", storage.ErrBlocked, name, n)
		}
		meta, err = b.upgrade(ctx, name, meta, target, onUpgrade)
		if err != nil {
			return nil, err
		}
	}
	return b.register(meta), nil
}

// targetVersion resolves the version an open should end at.
func targetVersion(meta *storage.DatabaseMeta, requested uint64) (uint64, error) {
	var current uint64
	if meta != nil {
		current = meta.Version
	}
	if requested == 0 {
		return max(current, 1), nil
	}
	if requested < current {
		return 0, fmt.Errorf("%w: requested %d, stored %d", storage.ErrVersion, requested, current)
	}
	return requested, nil
}

// upgrade runs the version-change transaction and persists the new catalog.
// Called with the database lock held exclusively.
func (b *Backend) upgrade(ctx context.Context, name string, meta *storage.DatabaseMeta, version uint64, onUpgrade storage.UpgradeFunc) (*storage.DatabaseMeta, error) {
	working := &storage.DatabaseMeta{Name: name}
	if meta != nil {
		working = meta.Clone()
	}
	ev := storage.UpgradeEvent{OldVersion: working.Version, NewVersion: version}

	tx := newTxn(b, working, storage.VersionChange, nil, func() {})
	if onUpgrade != nil {
		if err := onUpgrade(ctx, tx, ev); err != nil {
			tx.Abort()
			b.logger.Debug("upgrade aborted", "db", name, "oldVersion", ev.OldVersion, "newVersion", version, "err", err)
			return nil, fmt.Errorf("%w: %w", storage.ErrUpgradeAborted, err)
		}
	}
	if tx.done {
		return nil, fmt.Errorf("%w: transaction aborted during upgrade", storage.ErrUpgradeAborted)
	}

	working.Version = version
	if err := tx.btx.Set(makeCatalogKey(name), storage.MarshalDatabaseMeta(working)); err != nil {
		tx.Abort()
		return nil, err
	}
	if err := tx.finish(true); err != nil {
		b.catalog.Remove(name)
		return nil, err
	}
	b.catalog.Add(name, working)

	b.logger.Info("database upgraded", "db", name, "oldVersion", ev.OldVersion, "newVersion", version,
		"stores", len(working.Stores))
	return working, nil
}

// loadMeta returns the catalog entry of a database, or nil when the
// database does not exist. Returned entries are shared and must not be
// modified.
func (b *Backend) loadMeta(name string) (*storage.DatabaseMeta, error) {
	if meta, ok := b.catalog.Get(name); ok {
		return meta, nil
	}

	var meta *storage.DatabaseMeta
	err := b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCatalogKey(name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			meta, unmarshalErr = storage.UnmarshalDatabaseMeta(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}

	if meta != nil {
		b.catalog.Add(name, meta)
	}
	return meta, nil
}

func (b *Backend) register(meta *storage.DatabaseMeta) *conn {
	b.pin(meta.Name)
	c := &conn{
		id:      uuid.NewString(),
		backend: b,
		meta:    meta,
	}
	b.logger.Debug("connection opened", "conn", c.id, "db", meta.Name, "version", meta.Version)
	return c
}

func (b *Backend) unregister(c *conn) {
	b.unpin(c.meta.Name)
	b.logger.Debug("connection closed", "conn", c.id, "db", c.meta.Name)
}

func (b *Backend) pin(name string) {
	b.mu.Lock()
	b.pins[name]++
	b.mu.Unlock()
}

func (b *Backend) unpin(name string) {
	b.mu.Lock()
	b.pins[name]--
	if b.pins[name] <= 0 {
		delete(b.pins, name)
	}
	b.mu.Unlock()
}

// pinned counts the open connections and live transactions of a database.
// A transaction keeps its database pinned even after its connection closes.
func (b *Backend) pinned(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pins[name]
}

// Databases implements storage.Engine.
func (b *Backend) Databases(ctx context.Context) ([]storage.DatabaseInfo, error) {
	if b.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var results []storage.DatabaseInfo
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{catalogPrefix}
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var meta *storage.DatabaseMeta
			err := iter.Item().Value(func(val []byte) error {
				var err error
				meta, err = storage.UnmarshalDatabaseMeta(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, storage.DatabaseInfo{Name: meta.Name, Version: meta.Version})
		}
		return nil
	}, false)
	return results, err
}

// DeleteDatabase implements storage.Engine.
func (b *Backend) DeleteDatabase(ctx context.Context, name string) error {
	if b.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	release := b.acquireScope(name, storage.VersionChange, nil)
	defer release()

	if n := b.pinned(name); n > 0 {
		return fmt.Errorf("%w: %q is in use by %d connection(s) or transaction(s)", storage.ErrBlocked, name, n)
	}

	err := b.WithTx(func(tx *badger.Txn) error {
		for _, kind := range []byte{recordPrefix, indexPrefix, generatorPrefix} {
			if err := deletePrefix(tx, makeDatabasePrefix(kind, name)); err != nil {
				return err
			}
		}
		if err := tx.Delete(makeCatalogKey(name)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	b.catalog.Remove(name)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}

	b.logger.Info("database deleted", "db", name)
	return nil
}

// deletePrefix removes every key under prefix. Keys are collected before
// deleting because a read-write transaction allows one iterator at a time.
func deletePrefix(tx *badger.Txn, prefix []byte) error {
	var doomed [][]byte
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
		doomed = append(doomed, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range doomed {
		if !bytes.HasPrefix(key, prefix) {
			continue
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
