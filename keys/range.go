package keys

import (
	"bytes"
	"fmt"
)

// Range is a key range. A nil Lower or Upper leaves that side unbounded.
type Range struct {
	Lower     any
	Upper     any
	LowerOpen bool
	UpperOpen bool
}

// Only returns a range matching exactly one key.
func Only(key any) *Range {
	return &Range{Lower: key, Upper: key}
}

// LowerBound returns a range of keys at or above (or strictly above, when
// open) the given key.
func LowerBound(key any, open bool) *Range {
	return &Range{Lower: key, LowerOpen: open}
}

// UpperBound returns a range of keys at or below (or strictly below, when
// open) the given key.
func UpperBound(key any, open bool) *Range {
	return &Range{Upper: key, UpperOpen: open}
}

// Bound returns a range between lower and upper.
func Bound(lower, upper any, lowerOpen, upperOpen bool) *Range {
	return &Range{Lower: lower, Upper: upper, LowerOpen: lowerOpen, UpperOpen: upperOpen}
}

// EncodedRange is a Range with both bounds encoded. A nil bound is unbounded.
type EncodedRange struct {
	Lower     []byte
	Upper     []byte
	LowerOpen bool
	UpperOpen bool
}

// Encode validates the range and encodes its bounds. A nil range encodes to
// the unbounded range.
func (r *Range) Encode() (EncodedRange, error) {
	if r == nil {
		return EncodedRange{}, nil
	}
	var er EncodedRange
	var err error
	if r.Lower != nil {
		if er.Lower, err = Encode(r.Lower); err != nil {
			return EncodedRange{}, fmt.Errorf("%w: lower bound: %w", ErrInvalidRange, err)
		}
		er.LowerOpen = r.LowerOpen
	}
	if r.Upper != nil {
		if er.Upper, err = Encode(r.Upper); err != nil {
			return EncodedRange{}, fmt.Errorf("%w: upper bound: %w", ErrInvalidRange, err)
		}
		er.UpperOpen = r.UpperOpen
	}
	if er.Lower != nil && er.Upper != nil {
		c := bytes.Compare(er.Lower, er.Upper)
		if c > 0 || (c == 0 && (er.LowerOpen || er.UpperOpen)) {
			return EncodedRange{}, fmt.Errorf("%w: lower bound above upper bound", ErrInvalidRange)
		}
	}
	return er, nil
}

// Includes reports whether key falls inside the range.
func (r *Range) Includes(key any) (bool, error) {
	er, err := r.Encode()
	if err != nil {
		return false, err
	}
	enc, err := Encode(key)
	if err != nil {
		return false, err
	}
	return er.Contains(enc), nil
}

// Contains reports whether an encoded key falls inside the range.
func (er EncodedRange) Contains(enc []byte) bool {
	return !er.BelowLower(enc) && !er.AboveUpper(enc)
}

// BelowLower reports whether enc sorts before the lower bound.
func (er EncodedRange) BelowLower(enc []byte) bool {
	if er.Lower == nil {
		return false
	}
	c := bytes.Compare(enc, er.Lower)
	return c < 0 || (c == 0 && er.LowerOpen)
}

// AboveUpper reports whether enc sorts after the upper bound.
func (er EncodedRange) AboveUpper(enc []byte) bool {
	if er.Upper == nil {
		return false
	}
	c := bytes.Compare(enc, er.Upper)
	return c > 0 || (c == 0 && er.UpperOpen)
}
