package keys

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Normalize validates a key and converts it to its canonical form:
// float64, time.Time, string, []byte or []any of canonical keys.
func Normalize(key any) (any, error) {
	switch k := key.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrInvalidKey)
	case float64:
		if math.IsNaN(k) {
			return nil, fmt.Errorf("%w: NaN", ErrInvalidKey)
		}
		if k == 0 {
			// -0 and +0 are the same key
			return float64(0), nil
		}
		return k, nil
	case float32:
		return Normalize(float64(k))
	case int:
		return float64(k), nil
	case int8:
		return float64(k), nil
	case int16:
		return float64(k), nil
	case int32:
		return float64(k), nil
	case int64:
		return float64(k), nil
	case uint:
		return float64(k), nil
	case uint8:
		return float64(k), nil
	case uint16:
		return float64(k), nil
	case uint32:
		return float64(k), nil
	case uint64:
		return float64(k), nil
	case json.Number:
		f, err := k.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		return Normalize(f)
	case time.Time:
		u := k.UTC()
		// outside the range Unix seconds can represent
		if !time.Unix(u.Unix(), int64(u.Nanosecond())).UTC().Equal(u) {
			return nil, fmt.Errorf("%w: date %v out of range", ErrInvalidKey, k)
		}
		return u, nil
	case string:
		return k, nil
	case []byte:
		return bytes.Clone(k), nil
	case []string:
		out := make([]any, len(k))
		for i, s := range k {
			out[i] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(k))
		for i, elem := range k {
			n, err := Normalize(elem)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidKey, key)
	}
}

// Compare orders two keys. It returns -1, 0 or 1 and an error if either
// argument is not a valid key.
func Compare(a, b any) (int, error) {
	ea, err := Encode(a)
	if err != nil {
		return 0, err
	}
	eb, err := Encode(b)
	if err != nil {
		return 0, err
	}
	return bytes.Compare(ea, eb), nil
}

// AsNumber returns the numeric value of a key when it is a number.
func AsNumber(key any) (float64, bool) {
	n, err := Normalize(key)
	if err != nil {
		return 0, false
	}
	f, ok := n.(float64)
	return f, ok
}
