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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/objectdb"
	"github.com/poiesic/objectdb/schema"
	"github.com/poiesic/objectdb/storage"
	"github.com/poiesic/objectdb/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "objectdb",
		Usage: "Inspect object databases stored in a BadgerDB directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "databases",
				Usage:  "List databases and their versions",
				Action: databasesCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
			{
				Name:   "info",
				Usage:  "Show the stores, keys and indexes of a database",
				Action: infoCommand,
				Flags:  []cli.Flag{dbFlag(), nameFlag()},
			},
			{
				Name:   "dump",
				Usage:  "Print the records of a store as JSON lines",
				Action: dumpCommand,
				Flags: []cli.Flag{
					dbFlag(),
					nameFlag(),
					storeFlag(),
					&cli.StringFlag{
						Name:  "index",
						Usage: "Read through this index instead of the primary key",
					},
					&cli.StringFlag{
						Name:  "key",
						Usage: "Only print the first record matching this key (JSON, or a bare string)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of records to print (0 for all)",
						Value: 0,
					},
				},
			},
			{
				Name:   "count",
				Usage:  "Count the records of a store",
				Action: countCommand,
				Flags:  []cli.Flag{dbFlag(), nameFlag(), storeFlag()},
			},
			{
				Name:   "drop",
				Usage:  "Delete a database with all of its stores",
				Action: dropCommand,
				Flags:  []cli.Flag{dbFlag(), nameFlag()},
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
}

func nameFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "name",
		Aliases:  []string{"n"},
		Usage:    "Database name",
		Required: true,
	}
}

func storeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "store",
		Aliases:  []string{"s"},
		Usage:    "Object store name",
		Required: true,
	}
}

func openBackend(c *cli.Context) (*badger.Backend, error) {
	dbPath := c.String("db")
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	backend, err := badger.OpenBackend(dbPath, false, badger.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return backend, nil
}

// openExisting connects to a database at its stored version. Unlike
// Engine.Open it never creates the database.
func openExisting(ctx context.Context, backend *badger.Backend, name string) (storage.Conn, error) {
	infos, err := backend.Databases(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Name == name {
			return backend.Open(ctx, name, 0, nil)
		}
	}
	return nil, fmt.Errorf("database %q not found", name)
}

func databasesCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	infos, err := backend.Databases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list databases: %w", err)
	}
	for _, info := range infos {
		fmt.Fprintf(c.App.Writer, "%s\t%d\n", info.Name, info.Version)
	}
	return nil
}

func infoCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	conn, err := openExisting(ctx, backend, c.String("name"))
	if err != nil {
		return err
	}
	defer conn.Close()

	stores := make([]schema.StoreSchema, 0, len(conn.StoreNames()))
	for _, name := range conn.StoreNames() {
		s, _ := conn.StoreSchema(name)
		stores = append(stores, s)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "name: %s\n", conn.Name())
	fmt.Fprintf(w, "version: %d\n", conn.Version())
	fmt.Fprintf(w, "fingerprint: %016x\n", uint64(schema.FingerprintOf(stores)))
	for _, s := range stores {
		fmt.Fprintf(w, "store %s key=%s autoIncrement=%t\n", s.Name, keyPathString(s.Key.KeyPath), s.Key.AutoIncrement)
		for _, idx := range s.Indexes {
			fmt.Fprintf(w, "  index %s key=%s unique=%t multiEntry=%t\n", idx.Name, keyPathString(idx.KeyPath), idx.Unique, idx.MultiEntry)
		}
	}
	return nil
}

func keyPathString(path []string) string {
	switch {
	case len(path) == 0:
		return "(out-of-line)"
	case len(path) == 1 && path[0] == "":
		return "(value)"
	}
	return strings.Join(path, ",")
}

func dumpCommand(c *cli.Context) error {
	ctx := context.Background()

	limit := c.Int("limit")
	if limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}

	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	conn, err := openExisting(ctx, backend, c.String("name"))
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.Begin(ctx, storage.ReadOnly, c.String("store"))
	if err != nil {
		return err
	}
	defer tx.Abort()

	store, err := tx.Store(c.String("store"))
	if err != nil {
		return err
	}

	var records [][]byte
	switch indexName := c.String("index"); {
	case indexName != "":
		idx, err := store.Index(indexName)
		if err != nil {
			return err
		}
		if c.IsSet("key") {
			v, err := idx.Get(parseKey(c.String("key")))
			if err != nil {
				return err
			}
			records = appendFound(records, v)
		} else if records, err = idx.GetAll(nil, limit); err != nil {
			return err
		}
	case c.IsSet("key"):
		v, err := store.Get(parseKey(c.String("key")))
		if err != nil {
			return err
		}
		records = appendFound(records, v)
	default:
		if records, err = store.GetAll(nil, limit); err != nil {
			return err
		}
	}

	for _, r := range records {
		fmt.Fprintln(c.App.Writer, string(r))
	}
	return nil
}

func appendFound(records [][]byte, v []byte) [][]byte {
	if v == nil {
		return records
	}
	return append(records, v)
}

// parseKey reads a key given on the command line. JSON numbers, strings and
// arrays become keys of those types; anything else is taken as a string.
func parseKey(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case float64, string, []any:
		return v
	}
	return s
}

func countCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	conn, err := openExisting(ctx, backend, c.String("name"))
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.Begin(ctx, storage.ReadOnly, c.String("store"))
	if err != nil {
		return err
	}
	defer tx.Abort()

	store, err := tx.Store(c.String("store"))
	if err != nil {
		return err
	}
	n, err := store.Count(nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, n)
	return nil
}

func dropCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	name := c.String("name")
	if err := objectdb.DeleteDatabase(ctx, backend, name); err != nil {
		return fmt.Errorf("failed to drop %q: %w", name, err)
	}
	slog.Info("database dropped", "name", name)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
