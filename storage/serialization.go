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

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/objectdb/schema"
)

// MarshalDatabaseMeta serializes a catalog entry to bytes.
func MarshalDatabaseMeta(meta *DatabaseMeta) []byte {
	buf := make([]byte, DatabaseMetaMUS.Size(*meta))
	DatabaseMetaMUS.Marshal(*meta, buf)
	return buf
}

// UnmarshalDatabaseMeta deserializes a catalog entry from bytes.
func UnmarshalDatabaseMeta(data []byte) (*DatabaseMeta, error) {
	meta, _, err := DatabaseMetaMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: database meta: %w", ErrSerializationFailed, err)
	}
	return &meta, nil
}

// MarshalGenerator serializes a key generator value to bytes.
func MarshalGenerator(next uint64) []byte {
	buf := make([]byte, varint.Uint64.Size(next))
	varint.Uint64.Marshal(next, buf)
	return buf
}

// UnmarshalGenerator deserializes a key generator value from bytes.
func UnmarshalGenerator(data []byte) (uint64, error) {
	next, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: key generator: %w", ErrSerializationFailed, err)
	}
	return next, nil
}

// EncodeValue serializes a record value to JSON.
func EncodeValue(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return data, nil
}

// DecodeDocument parses stored JSON into a generic document (objects become
// map[string]any, numbers float64) for key path evaluation.
func DecodeDocument(data []byte) (any, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return doc, nil
}

// Index and key configuration flags, packed into one varint.
const (
	flagAutoIncrement uint64 = 1 << iota
	flagUnique
	flagMultiEntry
)

// DatabaseMetaMUS is the mus serializer for DatabaseMeta.
var DatabaseMetaMUS = databaseMetaMUS{}

type databaseMetaMUS struct{}

func (databaseMetaMUS) Marshal(v DatabaseMeta, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Uint64.Marshal(v.Version, bs[n:])
	n += varint.Uint64.Marshal(uint64(len(v.Stores)), bs[n:])
	for _, s := range v.Stores {
		n += storeSchemaMUS{}.Marshal(s, bs[n:])
	}
	return
}

func (databaseMetaMUS) Unmarshal(bs []byte) (v DatabaseMeta, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Version, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var count int
	count, n1, err = unmarshalLength(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > 0 {
		v.Stores = make([]schema.StoreSchema, count)
	}
	for i := range v.Stores {
		v.Stores[i], n1, err = storeSchemaMUS{}.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (databaseMetaMUS) Size(v DatabaseMeta) (size int) {
	size = ord.String.Size(v.Name)
	size += varint.Uint64.Size(v.Version)
	size += varint.Uint64.Size(uint64(len(v.Stores)))
	for _, s := range v.Stores {
		size += storeSchemaMUS{}.Size(s)
	}
	return
}

type storeSchemaMUS struct{}

func (storeSchemaMUS) Marshal(v schema.StoreSchema, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += marshalStrings(v.Key.KeyPath, bs[n:])
	n += varint.Uint64.Marshal(storeFlags(v), bs[n:])
	n += varint.Uint64.Marshal(uint64(len(v.Indexes)), bs[n:])
	for _, idx := range v.Indexes {
		n += indexSchemaMUS{}.Marshal(idx, bs[n:])
	}
	return
}

func (storeSchemaMUS) Unmarshal(bs []byte) (v schema.StoreSchema, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Key.KeyPath, n1, err = unmarshalStrings(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var flags uint64
	flags, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Key.AutoIncrement = flags&flagAutoIncrement != 0
	var count int
	count, n1, err = unmarshalLength(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > 0 {
		v.Indexes = make([]schema.IndexSchema, count)
	}
	for i := range v.Indexes {
		v.Indexes[i], n1, err = indexSchemaMUS{}.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (storeSchemaMUS) Size(v schema.StoreSchema) (size int) {
	size = ord.String.Size(v.Name)
	size += sizeStrings(v.Key.KeyPath)
	size += varint.Uint64.Size(storeFlags(v))
	size += varint.Uint64.Size(uint64(len(v.Indexes)))
	for _, idx := range v.Indexes {
		size += indexSchemaMUS{}.Size(idx)
	}
	return
}

type indexSchemaMUS struct{}

func (indexSchemaMUS) Marshal(v schema.IndexSchema, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += marshalStrings(v.KeyPath, bs[n:])
	n += varint.Uint64.Marshal(indexFlags(v), bs[n:])
	return
}

func (indexSchemaMUS) Unmarshal(bs []byte) (v schema.IndexSchema, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.KeyPath, n1, err = unmarshalStrings(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var flags uint64
	flags, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Unique = flags&flagUnique != 0
	v.MultiEntry = flags&flagMultiEntry != 0
	return
}

func (indexSchemaMUS) Size(v schema.IndexSchema) (size int) {
	size = ord.String.Size(v.Name)
	size += sizeStrings(v.KeyPath)
	size += varint.Uint64.Size(indexFlags(v))
	return
}

func storeFlags(v schema.StoreSchema) (flags uint64) {
	if v.Key.AutoIncrement {
		flags |= flagAutoIncrement
	}
	return
}

func indexFlags(v schema.IndexSchema) (flags uint64) {
	if v.Unique {
		flags |= flagUnique
	}
	if v.MultiEntry {
		flags |= flagMultiEntry
	}
	return
}

func marshalStrings(ss []string, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(ss)), bs)
	for _, s := range ss {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func unmarshalStrings(bs []byte) (ss []string, n int, err error) {
	count, n, err := unmarshalLength(bs)
	if err != nil || count == 0 {
		return
	}
	ss = make([]string, count)
	var n1 int
	for i := range ss {
		ss[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func sizeStrings(ss []string) (size int) {
	size = varint.Uint64.Size(uint64(len(ss)))
	for _, s := range ss {
		size += ord.String.Size(s)
	}
	return
}

// unmarshalLength reads a collection length and rejects lengths that could
// not possibly fit in the remaining input.
func unmarshalLength(bs []byte) (length int, n int, err error) {
	l, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return 0, n, err
	}
	if l > uint64(len(bs)-n) {
		return 0, n, ErrTruncatedData
	}
	return int(l), n, nil
}
