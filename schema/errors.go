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


package schema

import "errors"

// Schema validation errors
var (
	// ErrInvalidStore indicates a StoreSchema failed validation.
	ErrInvalidStore = errors.New("invalid store schema")

	// ErrInvalidIndex indicates an IndexSchema failed validation.
	ErrInvalidIndex = errors.New("invalid index schema")

	// ErrEmptyName indicates a store or index name is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrDuplicateName indicates two stores, or two indexes of one store, share a name.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrEmptyKeyPath indicates an index without a key path.
	ErrEmptyKeyPath = errors.New("key path cannot be empty")

	// ErrAutoIncrementKeyPath indicates auto-increment combined with a key path
	// that cannot receive a generated key.
	ErrAutoIncrementKeyPath = errors.New("auto-increment requires a single non-empty key path")

	// ErrMultiEntryKeyPath indicates multiEntry combined with a compound key path.
	ErrMultiEntryKeyPath = errors.New("multiEntry cannot be used with a compound key path")
)
