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


// Package objectdb is a small convenience layer over an embedded, versioned
// object database.
//
// An application declares its database once: a name, a version, the object
// stores it needs and, optionally, the migrations that evolve the schema
// from one version to the next. Init opens the database, runs whatever
// upgrade is due and hands back a Client. From then on every operation is
// scoped to one named store and takes care of its own connection and
// transaction.
//
// # Basic Usage
//
//	engine, err := badger.OpenBackend("./data", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	client, err := objectdb.Init(ctx, engine, objectdb.Config{
//	    Name:    "app",
//	    Version: 1,
//	    Stores: []schema.StoreSchema{{
//	        Name:    "people",
//	        Key:     schema.KeyConfig{KeyPath: []string{"id"}, AutoIncrement: true},
//	        Indexes: []schema.IndexSchema{{Name: "email", KeyPath: []string{"email"}, Unique: true}},
//	    }},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	people := client.Store("people")
//	id, err := people.Add(ctx, map[string]any{"name": "Ada", "email": "ada@example.com"})
//	v, err := people.GetByID(ctx, id)
//
// # Migrations
//
// Without migrations, every upgrade creates the declared stores that do not
// exist yet. With migrations, the list must hold one migration for every
// version the upgrade passes through, starting at 1 for a new database.
// Each Up step receives the upgrade transaction, the declared stores and a
// DefaultBehavior it can call for stores that need no special handling.
// A failing step rolls the whole upgrade back.
//
// # Asynchronous Operations
//
// AsyncStore offers the same operations as Store, each returning a Result
// that settles once. Add and Delete resolve as soon as their request
// succeeds; Update and Clear resolve only after the transaction commits;
// OpenCursor resolves after the first cursor callback.
//
// # Errors
//
// Configuration problems wrap ErrConfig, failed migration steps wrap
// ErrMigration and everything else comes from the storage package's
// sentinel errors. Reading a missing record is not an error: it returns a
// nil Value.
package objectdb
