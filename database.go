// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package objectdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/objectdb/migrate"
	"github.com/poiesic/objectdb/schema"
	"github.com/poiesic/objectdb/storage"
)

// Config declares a database: its name, the version to open it at, the
// stores it should contain and, optionally, the migrations that get it there.
type Config struct {
	Name    string
	Version uint64
	Stores  []schema.StoreSchema

	// Migrations nil means none were supplied: upgrades create missing
	// stores. A non-nil list must cover every version being upgraded through.
	Migrations []migrate.Migration
}

func (cfg Config) validate(engine storage.Engine) error {
	if engine == nil {
		return fmt.Errorf("%w: engine is required", ErrConfig)
	}
	if cfg.Name == "" {
		return fmt.Errorf("%w: database name is required", ErrConfig)
	}
	if cfg.Version < 1 {
		return fmt.Errorf("%w: version must be at least 1", ErrConfig)
	}
	if err := schema.ValidateStores(cfg.Stores); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := migrate.Validate(cfg.Migrations); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// Client is an initialized database handle. It is immutable and safe for
// concurrent use; every operation opens its own connection.
type Client struct {
	engine     storage.Engine
	name       string
	version    uint64
	stores     []schema.StoreSchema
	migrations []migrate.Migration
	pool       *ants.Pool
	logger     *slog.Logger
	closed     atomic.Bool
}

// Init validates cfg, opens the database (running migrations when the
// stored version is behind cfg.Version), closes the connection again and
// returns a client bound to cfg.Name and cfg.Version.
//
// Configuration problems, including malformed migration lists, are returned
// wrapping ErrConfig. A failing migration step is returned wrapping
// ErrMigration. Engine errors such as storage.ErrVersion or
// storage.ErrBlocked are returned as they are.
func Init(ctx context.Context, engine storage.Engine, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.validate(engine); err != nil {
		return nil, err
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	c := &Client{
		engine:     engine,
		name:       cfg.Name,
		version:    cfg.Version,
		stores:     schema.CloneAll(cfg.Stores),
		migrations: slices.Clone(cfg.Migrations),
		pool:       pool,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(c); optErr != nil {
			c.pool.Release()
			return nil, optErr
		}
	}

	if c.migrations != nil {
		c.logger.Debug("initializing database", "db", c.name, "version", c.version,
			"migrations", migrate.Versions(c.migrations))
	} else {
		c.logger.Debug("initializing database", "db", c.name, "version", c.version, "stores", len(c.stores))
	}

	conn, err := engine.Open(ctx, c.name, c.version, c.upgrade)
	if err != nil {
		c.pool.Release()
		return nil, classifyInitError(err)
	}
	c.checkSchema(conn)
	if err := conn.Close(); err != nil {
		c.logger.Error("error closing connection", "conn", conn.ID(), "err", err)
	}
	return c, nil
}

func (c *Client) upgrade(ctx context.Context, tx storage.UpgradeTx, ev storage.UpgradeEvent) error {
	return migrate.Run(ctx, tx, ev, c.stores, c.migrations, c.logger.With("db", c.name))
}

func classifyInitError(err error) error {
	switch {
	case migrate.IsConfigError(err):
		return fmt.Errorf("%w: %w", ErrConfig, err)
	case errors.Is(err, migrate.ErrMigrationFailed):
		return fmt.Errorf("%w: %w", ErrMigration, err)
	default:
		return err
	}
}

// checkSchema warns when the opened database does not match the declared
// stores, which happens when the schema changed without a version bump.
func (c *Client) checkSchema(conn storage.Conn) {
	var missing []string
	present := make([]schema.StoreSchema, 0, len(c.stores))
	for _, s := range c.stores {
		stored, ok := conn.StoreSchema(s.Name)
		if !ok {
			missing = append(missing, s.Name)
			continue
		}
		present = append(present, stored)
	}
	if len(missing) > 0 {
		c.logger.Warn("declared stores are missing; raise the version to create them",
			"db", c.name, "version", c.version, "missing", missing)
		return
	}
	declared, stored := schema.FingerprintOf(c.stores), schema.FingerprintOf(present)
	if declared != stored {
		c.logger.Warn("stored schema differs from the declared schema",
			"db", c.name, "version", c.version, "declared", declared, "stored", stored)
	}
}

// DeleteDatabase removes a database and everything in it. It fails with
// storage.ErrBlocked while connections to the database are open.
func DeleteDatabase(ctx context.Context, engine storage.Engine, name string) error {
	if engine == nil {
		return fmt.Errorf("%w: engine is required", ErrConfig)
	}
	if name == "" {
		return fmt.Errorf("%w: database name is required", ErrConfig)
	}
	return engine.DeleteDatabase(ctx, name)
}

// Name returns the database name the client is bound to.
func (c *Client) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Version returns the database version the client is bound to.
func (c *Client) Version() uint64 {
	if c == nil {
		return 0
	}
	return c.version
}

// Stores returns a copy of the declared store schemas.
func (c *Client) Stores() []schema.StoreSchema {
	if c == nil {
		return nil
	}
	return schema.CloneAll(c.stores)
}

// Store returns the synchronous operation set for one store.
func (c *Client) Store(name string) *Store {
	return &Store{ops: ops{client: c, store: name}}
}

// AsyncStore returns the asynchronous operation set for one store.
func (c *Client) AsyncStore(name string) *AsyncStore {
	return &AsyncStore{ops: ops{client: c, store: name}}
}

// Close releases the worker pool. Operations already running finish; new
// ones fail with ErrClientClosed. The engine is not closed.
func (c *Client) Close() error {
	if c == nil || c.pool == nil {
		return ErrNotInitialized
	}
	if c.closed.CompareAndSwap(false, true) {
		c.pool.Release()
	}
	return nil
}

func (c *Client) check() error {
	if c == nil || c.engine == nil || c.pool == nil {
		return ErrNotInitialized
	}
	if c.closed.Load() {
		return ErrClientClosed
	}
	return nil
}
