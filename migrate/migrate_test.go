package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/objectdb/schema"
	"github.com/poiesic/objectdb/storage"
	"github.com/poiesic/objectdb/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStores = []schema.StoreSchema{
	{
		Name:    "people",
		Key:     schema.KeyConfig{KeyPath: []string{"id"}, AutoIncrement: true},
		Indexes: []schema.IndexSchema{{Name: "email", KeyPath: []string{"email"}, Unique: true}},
	},
	{Name: "notes"},
}

func newEngine(t *testing.T) *badger.Backend {
	t.Helper()
	b, err := badger.NewMemoryBackend()
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

// upgrade opens db at version, running migrations through Run.
func upgrade(t *testing.T, engine storage.Engine, version uint64, migrations []Migration) (storage.Conn, error) {
	t.Helper()
	return engine.Open(context.Background(), "app", version, func(ctx context.Context, tx storage.UpgradeTx, ev storage.UpgradeEvent) error {
		return Run(ctx, tx, ev, testStores, migrations, nil)
	})
}

func TestRun_DefaultBehavior(t *testing.T) {
	engine := newEngine(t)

	c, err := upgrade(t, engine, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "people"}, c.StoreNames())
	people, ok := c.StoreSchema("people")
	require.True(t, ok)
	assert.Equal(t, testStores[0], people)
	require.NoError(t, c.Close())

	// a later version with no migrations only adds what is missing
	c, err = upgrade(t, engine, 2, nil)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, []string{"notes", "people"}, c.StoreNames())
}

func TestRun_SequentialMigrations(t *testing.T) {
	engine := newEngine(t)

	var ran []uint64
	step := func(v uint64) Migration {
		return Migration{Version: v, Up: func(ctx context.Context, db storage.UpgradeTx, stores []schema.StoreSchema, def DefaultBehavior) error {
			ran = append(ran, v)
			return nil
		}}
	}
	// declaration order does not matter
	migrations := []Migration{step(3), step(1), step(2)}

	c, err := upgrade(t, engine, 3, migrations)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Equal(t, []uint64{1, 2, 3}, ran)

	ran = nil
	migrations = append(migrations, step(4), step(5))
	c, err = upgrade(t, engine, 5, migrations)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, []uint64{4, 5}, ran)
}

func TestRun_MigrationUsesDefaultBehavior(t *testing.T) {
	engine := newEngine(t)

	migrations := []Migration{
		{Version: 1, Up: func(ctx context.Context, db storage.UpgradeTx, stores []schema.StoreSchema, def DefaultBehavior) error {
			if _, err := db.CreateStore("people", schema.KeyConfig{KeyPath: []string{"uid"}}); err != nil {
				return err
			}
			return def.CreateMissingStores()
		}},
	}

	c, err := upgrade(t, engine, 1, migrations)
	require.NoError(t, err)
	defer c.Close()

	people, ok := c.StoreSchema("people")
	require.True(t, ok)
	assert.Equal(t, []string{"uid"}, people.Key.KeyPath)
	assert.True(t, c.HasStore("notes"))
}

func TestRun_MissingMigrationAbortsEverything(t *testing.T) {
	engine := newEngine(t)

	laterRan := false
	migrations := []Migration{
		{Version: 1, Up: func(ctx context.Context, db storage.UpgradeTx, stores []schema.StoreSchema, def DefaultBehavior) error {
			_, err := db.CreateStore("v1", schema.KeyConfig{})
			return err
		}},
		{Version: 3, Up: func(ctx context.Context, db storage.UpgradeTx, stores []schema.StoreSchema, def DefaultBehavior) error {
			laterRan = true
			_, err := db.CreateStore("v3", schema.KeyConfig{})
			return err
		}},
	}

	_, err := upgrade(t, engine, 3, migrations)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingMigration)
	assert.ErrorIs(t, err, storage.ErrUpgradeAborted)
	assert.True(t, IsConfigError(err))

	var merr *MigrationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, uint64(2), merr.Version)
	assert.False(t, laterRan)

	infos, err := engine.Databases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestRun_FailingUpStopsSequence(t *testing.T) {
	engine := newEngine(t)

	boom := errors.New("boom")
	var ran []uint64
	migrations := []Migration{
		{Version: 1, Up: func(ctx context.Context, db storage.UpgradeTx, stores []schema.StoreSchema, def DefaultBehavior) error {
			ran = append(ran, 1)
			return def.CreateMissingStores()
		}},
		{Version: 2, Up: func(ctx context.Context, db storage.UpgradeTx, stores []schema.StoreSchema, def DefaultBehavior) error {
			ran = append(ran, 2)
			return boom
		}},
		{Version: 3, Up: func(ctx context.Context, db storage.UpgradeTx, stores []schema.StoreSchema, def DefaultBehavior) error {
			ran = append(ran, 3)
			return nil
		}},
	}

	_, err := upgrade(t, engine, 3, migrations)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsConfigError(err))
	assert.Equal(t, []uint64{1, 2}, ran)

	// nothing from version 1 persisted
	c, err := engine.Open(context.Background(), "app", 0, nil)
	require.NoError(t, err)
	defer c.Close()
	assert.Empty(t, c.StoreNames())
}

func TestRun_ConfigurationErrors(t *testing.T) {
	noop := func(ctx context.Context, db storage.UpgradeTx, stores []schema.StoreSchema, def DefaultBehavior) error {
		return nil
	}

	tests := []struct {
		name       string
		migrations []Migration
		want       error
	}{
		{"empty list", []Migration{}, ErrMissingMigration},
		{"missing up", []Migration{{Version: 1}}, ErrMissingUp},
		{"duplicate version", []Migration{{Version: 1, Up: noop}, {Version: 1, Up: noop}}, ErrDuplicateVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newEngine(t)
			_, err := upgrade(t, engine, 1, tt.migrations)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsConfigError(err))
		})
	}
}

func TestRun_NewVersionUnset(t *testing.T) {
	engine := newEngine(t)

	_, err := engine.Open(context.Background(), "app", 1, func(ctx context.Context, tx storage.UpgradeTx, ev storage.UpgradeEvent) error {
		ev.NewVersion = 0
		return Run(ctx, tx, ev, testStores, nil, nil)
	})
	assert.ErrorIs(t, err, ErrNewVersionUnset)
}

func TestValidateAndVersions(t *testing.T) {
	assert.NoError(t, Validate(nil))
	assert.NoError(t, Validate([]Migration{{Version: 2}, {Version: 1}}))

	err := Validate([]Migration{{Version: 2}, {Version: 2}})
	var merr *MigrationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, uint64(2), merr.Version)
	assert.EqualError(t, err, "migration 2: duplicate migration version")

	assert.Equal(t, []uint64{1, 2, 5}, Versions([]Migration{{Version: 5}, {Version: 1}, {Version: 2}}))
}
