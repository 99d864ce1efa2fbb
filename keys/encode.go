package keys

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Type tags. Their numeric order defines the cross-type key order.
const (
	tagArrayEnd byte = 0x00
	tagNumber   byte = 0x10
	tagDate     byte = 0x20
	tagString   byte = 0x30
	tagBinary   byte = 0x40
	tagArray    byte = 0x50
)

// Dates are Unix seconds followed by the nanosecond of the second.
const dateSize = 1 + 8 + 4

// Byte strings escape 0x00 as 0x00 0xFF and end with 0x00 0x01.
const (
	escByte  byte = 0x00
	escValue byte = 0xFF
	escEnd   byte = 0x01
)

// Encode returns the order-preserving encoding of key.
func Encode(key any) ([]byte, error) {
	n, err := Normalize(key)
	if err != nil {
		return nil, err
	}
	return appendKey(nil, n), nil
}

// MustEncode is like Encode but panics on invalid keys.
// Intended for constant keys in tests and key layouts.
func MustEncode(key any) []byte {
	b, err := Encode(key)
	if err != nil {
		panic(err)
	}
	return b
}

// AppendString appends the encoding of s to buf. Storage layouts use it to
// build self-delimiting name segments.
func AppendString(buf []byte, s string) []byte {
	buf = append(buf, tagString)
	return appendEscaped(buf, []byte(s))
}

// appendKey appends an already normalized key.
func appendKey(buf []byte, key any) []byte {
	switch k := key.(type) {
	case float64:
		buf = append(buf, tagNumber)
		return binary.BigEndian.AppendUint64(buf, orderedFloat(k))
	case time.Time:
		buf = append(buf, tagDate)
		buf = binary.BigEndian.AppendUint64(buf, uint64(k.Unix())^(1<<63))
		return binary.BigEndian.AppendUint32(buf, uint32(k.Nanosecond()))
	case string:
		buf = append(buf, tagString)
		return appendEscaped(buf, []byte(k))
	case []byte:
		buf = append(buf, tagBinary)
		return appendEscaped(buf, k)
	case []any:
		buf = append(buf, tagArray)
		for _, elem := range k {
			buf = appendKey(buf, elem)
		}
		return append(buf, tagArrayEnd)
	}
	// Normalize guarantees one of the cases above.
	panic(fmt.Sprintf("keys: unnormalized key %T", key))
}

func appendEscaped(buf, b []byte) []byte {
	for _, c := range b {
		if c == escByte {
			buf = append(buf, escByte, escValue)
			continue
		}
		buf = append(buf, c)
	}
	return append(buf, escByte, escEnd)
}

// orderedFloat maps a float64 onto a uint64 with the same ordering.
func orderedFloat(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

func unorderedFloat(u uint64) float64 {
	if u&(1<<63) != 0 {
		return math.Float64frombits(u &^ (1 << 63))
	}
	return math.Float64frombits(^u)
}

// Decode decodes the first key in b and returns it with the remaining bytes.
func Decode(b []byte) (any, []byte, error) {
	if len(b) == 0 {
		return nil, nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	switch b[0] {
	case tagNumber:
		if len(b) < 9 {
			return nil, nil, fmt.Errorf("%w: truncated number", ErrMalformed)
		}
		return unorderedFloat(binary.BigEndian.Uint64(b[1:9])), b[9:], nil
	case tagDate:
		if len(b) < dateSize {
			return nil, nil, fmt.Errorf("%w: truncated date", ErrMalformed)
		}
		secs := int64(binary.BigEndian.Uint64(b[1:9]) ^ (1 << 63))
		nanos := int64(binary.BigEndian.Uint32(b[9:dateSize]))
		if nanos >= 1e9 {
			return nil, nil, fmt.Errorf("%w: date nanoseconds out of range", ErrMalformed)
		}
		return time.Unix(secs, nanos).UTC(), b[dateSize:], nil
	case tagString:
		raw, rest, err := decodeEscaped(b[1:])
		if err != nil {
			return nil, nil, err
		}
		return string(raw), rest, nil
	case tagBinary:
		raw, rest, err := decodeEscaped(b[1:])
		if err != nil {
			return nil, nil, err
		}
		return raw, rest, nil
	case tagArray:
		out := []any{}
		rest := b[1:]
		for {
			if len(rest) == 0 {
				return nil, nil, fmt.Errorf("%w: unterminated array", ErrMalformed)
			}
			if rest[0] == tagArrayEnd {
				return out, rest[1:], nil
			}
			var elem any
			var err error
			elem, rest, err = Decode(rest)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, elem)
		}
	default:
		return nil, nil, fmt.Errorf("%w: unknown tag 0x%02x", ErrMalformed, b[0])
	}
}

func decodeEscaped(b []byte) ([]byte, []byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != escByte {
			out = append(out, b[i])
			continue
		}
		if i+1 >= len(b) {
			return nil, nil, fmt.Errorf("%w: truncated escape", ErrMalformed)
		}
		switch b[i+1] {
		case escValue:
			out = append(out, escByte)
			i++
		case escEnd:
			return out, b[i+2:], nil
		default:
			return nil, nil, fmt.Errorf("%w: bad escape 0x%02x", ErrMalformed, b[i+1])
		}
	}
	return nil, nil, fmt.Errorf("%w: unterminated byte string", ErrMalformed)
}

// Split separates the first encoded key in b from the bytes that follow it
// without materializing the key.
func Split(b []byte) (first, rest []byte, err error) {
	_, rest, err = Decode(b)
	if err != nil {
		return nil, nil, err
	}
	return b[:len(b)-len(rest)], rest, nil
}
