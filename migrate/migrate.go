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


// Package migrate sequences versioned schema migrations inside a database
// upgrade.
//
// Run is called from the engine's upgrade callback. It walks every version
// between the stored version and the requested one and runs the migration
// declared for each, in increasing order. When no migration list is given
// at all it creates the declared stores that do not exist yet instead.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/poiesic/objectdb/schema"
	"github.com/poiesic/objectdb/storage"
)

// UpFunc evolves the schema to one version. It receives the upgrade
// transaction, every declared store schema and the default behavior, which
// it may call for stores it does not need to customize. A non-nil error
// aborts the whole upgrade.
type UpFunc func(ctx context.Context, db storage.UpgradeTx, stores []schema.StoreSchema, def DefaultBehavior) error

// Migration is the step that brings a database to Version.
type Migration struct {
	Version uint64
	Up      UpFunc
}

// Validate checks a migration list for duplicate versions.
func Validate(migrations []Migration) error {
	seen := make(map[uint64]struct{}, len(migrations))
	for _, m := range migrations {
		if _, dup := seen[m.Version]; dup {
			return &MigrationError{Version: m.Version, Err: ErrDuplicateVersion}
		}
		seen[m.Version] = struct{}{}
	}
	return nil
}

// Run applies migrations for the upgrade described by ev. A nil migration
// list runs the default behavior once; a non-nil list, even an empty one,
// must cover every version in (ev.OldVersion, ev.NewVersion].
func Run(ctx context.Context, tx storage.UpgradeTx, ev storage.UpgradeEvent, stores []schema.StoreSchema, migrations []Migration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if ev.NewVersion == 0 {
		return ErrNewVersionUnset
	}

	def := &defaultBehavior{tx: tx, stores: stores, logger: logger}
	if migrations == nil {
		logger.Debug("no migrations declared, creating missing stores",
			"oldVersion", ev.OldVersion, "newVersion", ev.NewVersion)
		if err := def.CreateMissingStores(); err != nil {
			return err
		}
		logger.Info("schema created", "version", ev.NewVersion, "stores", len(tx.StoreNames()))
		return nil
	}

	if err := Validate(migrations); err != nil {
		return err
	}
	byVersion := make(map[uint64]Migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	for v := ev.OldVersion + 1; v <= ev.NewVersion; v++ {
		if err := ctx.Err(); err != nil {
			return &MigrationError{Version: v, Err: err}
		}
		m, ok := byVersion[v]
		if !ok {
			return &MigrationError{Version: v, Err: ErrMissingMigration}
		}
		if m.Up == nil {
			return &MigrationError{Version: v, Err: ErrMissingUp}
		}
		logger.Debug("running migration", "version", v)
		if err := m.Up(ctx, tx, stores, def); err != nil {
			return &MigrationError{Version: v, Err: fmt.Errorf("%w: %w", ErrMigrationFailed, err)}
		}
	}

	logger.Info("migrations applied", "from", ev.OldVersion, "to", ev.NewVersion)
	return nil
}

// Versions returns the declared migration versions in increasing order.
func Versions(migrations []Migration) []uint64 {
	out := make([]uint64, len(migrations))
	for i, m := range migrations {
		out[i] = m.Version
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
