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


// Package keys defines the key model shared by the storage engine and the
// object store façade.
//
// # Valid Keys
//
// A key is one of:
//   - a number (any Go integer or float kind, normalized to float64; NaN is invalid)
//   - a time.Time (a date)
//   - a string
//   - a []byte (binary)
//   - an array ([]any or []string) whose elements are themselves valid keys
//
// Keys of different types order as number < date < string < binary < array.
// Arrays compare element by element and a shorter array sorts before a longer
// one sharing its prefix.
//
// # Encoding
//
// Encode turns a key into a self-delimiting byte string whose lexicographic
// order matches key order, so storage backends can use it directly inside
// their own keys and scan ranges with plain byte comparison:
//
//	enc, err := keys.Encode("alice")
//	key, rest, err := keys.Decode(enc)
//
// # Key Paths
//
// Extract and Inject resolve key paths against decoded JSON documents. A key
// path element is a dotted property path ("address.city"); the empty string
// refers to the document itself. A key path with several elements yields an
// array key.
package keys
