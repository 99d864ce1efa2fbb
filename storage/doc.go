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


// Package storage defines the embedded object database engine that objectdb
// is layered on.
//
// The engine model follows the classic browser object database: an Engine
// holds any number of named, versioned databases; a database holds object
// stores; an object store holds records keyed by primary key and may carry
// secondary indexes. All reads and writes happen inside transactions:
//
//   - ReadOnly transactions read a snapshot and never wait for writers
//   - ReadWrite transactions serialize against other writers on their stores
//   - the VersionChange transaction runs during an upgrade, holds the whole
//     database exclusively and is the only place schema may change
//
// # Architecture
//
//   - Engine: opens connections, lists and deletes databases
//   - Conn: one connection to one database version; begins transactions
//   - Tx / UpgradeTx: a transaction, optionally with schema operations
//   - ObjectStore / Index / Cursor: record access inside a transaction
//
// The BadgerDB implementation lives in storage/badger:
//
//	engine, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
// Use in tests with in-memory storage:
//
//	engine, err := badger.NewMemoryBackend()
//
// # Thread Safety
//
// Engines and connections are safe for concurrent use. Transactions,
// object store handles and cursors belong to a single goroutine.
//
// # Errors
//
// Failures are reported with the sentinel errors in this package, wrapped
// with context; classify them with errors.Is. Reading a missing record is
// not an error: it yields a nil value.
package storage
