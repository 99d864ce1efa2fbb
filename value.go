package objectdb

import "encoding/json"

// Value is a stored record as JSON. A nil Value means the record was not found.
type Value []byte

// Decode unmarshals the record into dst.
func (v Value) Decode(dst any) error {
	return json.Unmarshal(v, dst)
}

func (v Value) String() string {
	return string(v)
}

func toValues(raw [][]byte) []Value {
	out := make([]Value, len(raw))
	for i, r := range raw {
		out[i] = Value(r)
	}
	return out
}
