package keys

import "errors"

var (
	// ErrInvalidKey indicates a value that is not a valid key.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidRange indicates a key range whose bounds are invalid or inverted.
	ErrInvalidRange = errors.New("invalid key range")

	// ErrMalformed indicates an encoded key that cannot be decoded.
	ErrMalformed = errors.New("malformed encoded key")

	// ErrNotObject indicates a key path that does not resolve through objects.
	ErrNotObject = errors.New("key path does not resolve to an object")
)
