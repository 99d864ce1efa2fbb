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


package storage

import "errors"

var (
	// ErrStoreNotFound indicates that the named object store does not exist.
	ErrStoreNotFound = errors.New("object store not found")

	// ErrIndexNotFound indicates that the named index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrStoreExists indicates an attempt to create a store that already exists.
	ErrStoreExists = errors.New("object store already exists")

	// ErrIndexExists indicates an attempt to create an index that already exists.
	ErrIndexExists = errors.New("index already exists")

	// ErrDuplicateKey indicates a duplicate primary key violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConstraint indicates a unique index violation.
	ErrConstraint = errors.New("unique index constraint violated")

	// ErrInvalidKey indicates a missing, malformed or disallowed key.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidValue indicates a value that cannot be stored.
	ErrInvalidValue = errors.New("invalid value")

	// ErrVersion indicates an open below the stored database version.
	ErrVersion = errors.New("requested version is lower than the stored version")

	// ErrBlocked indicates an upgrade or delete prevented by other open connections.
	ErrBlocked = errors.New("database is blocked by open connections")

	// ErrUpgradeAborted indicates the upgrade callback failed and the version change was discarded.
	ErrUpgradeAborted = errors.New("upgrade aborted")

	// ErrReadOnly indicates a write attempted in a read-only transaction.
	ErrReadOnly = errors.New("transaction is read-only")

	// ErrTransactionFinished indicates use of a committed or aborted transaction.
	ErrTransactionFinished = errors.New("transaction is finished")

	// ErrTransactionFailed indicates that a transaction failed to commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInvalidState indicates an operation that is not allowed in the
	// transaction's current state or mode.
	ErrInvalidState = errors.New("invalid transaction state")

	// ErrOutOfScope indicates access to a store outside the transaction's scope.
	ErrOutOfScope = errors.New("store is not in the transaction scope")

	// ErrConnectionClosed indicates use of a closed connection.
	ErrConnectionClosed = errors.New("connection is closed")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrKeyGeneratorExhausted indicates the key generator passed its maximum.
	ErrKeyGeneratorExhausted = errors.New("key generator exhausted")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
