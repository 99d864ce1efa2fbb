package badger

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/objectdb/keys"
	"github.com/poiesic/objectdb/storage"
)

// cursorSpec describes what a cursor walks. A non-nil recordPrefix makes it
// an index cursor whose values are loaded from the store's records.
type cursorSpec struct {
	prefix       []byte
	recordPrefix []byte
	rng          *keys.Range
	dir          storage.Direction
	keysOnly     bool
}

// cursor implements storage.Cursor over a badger iterator.
type cursor struct {
	tx   *txn
	spec cursorSpec
	rng  keys.EncodedRange
	iter *badger.Iterator

	started bool
	closed  bool
	err     error

	item       *badger.Item
	key        any
	primaryKey any
	pkEnc      []byte
}

var _ storage.Cursor = (*cursor)(nil)

func (t *txn) openCursor(spec cursorSpec) (*cursor, error) {
	rng, err := spec.rng.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrInvalidKey, err)
	}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = spec.prefix
	opts.Reverse = spec.dir == storage.Prev
	opts.PrefetchValues = !spec.keysOnly && spec.recordPrefix == nil

	iter, err := t.newIterator(opts)
	if err != nil {
		return nil, err
	}
	c := &cursor{tx: t, spec: spec, rng: rng, iter: iter}
	t.cursors = append(t.cursors, c)
	return c, nil
}

func (c *cursor) seekKey() []byte {
	if c.spec.dir == storage.Prev {
		// Sorts after every entry whose key is at or below the upper bound.
		if c.rng.Upper != nil {
			return withSuffix(c.spec.prefix, c.rng.Upper, []byte{prefixEnd})
		}
		return withSuffix(c.spec.prefix, []byte{prefixEnd})
	}
	if c.rng.Lower != nil {
		return withSuffix(c.spec.prefix, c.rng.Lower)
	}
	return c.spec.prefix
}

func (c *cursor) Next() bool {
	if c.closed || c.err != nil || c.iter == nil {
		return false
	}
	if !c.started {
		c.started = true
		c.iter.Seek(c.seekKey())
	} else {
		c.iter.Next()
	}

	reverse := c.spec.dir == storage.Prev
	for ; c.iter.ValidForPrefix(c.spec.prefix); c.iter.Next() {
		item := c.iter.Item()
		rest := item.Key()[len(c.spec.prefix):]

		keyEnc, pkEnc := rest, rest
		if c.spec.recordPrefix != nil {
			var err error
			if keyEnc, pkEnc, err = keys.Split(rest); err != nil {
				return c.fail(err)
			}
		}

		if reverse {
			if c.rng.AboveUpper(keyEnc) {
				continue
			}
			if c.rng.BelowLower(keyEnc) {
				break
			}
		} else {
			if c.rng.BelowLower(keyEnc) {
				continue
			}
			if c.rng.AboveUpper(keyEnc) {
				break
			}
		}

		key, _, err := keys.Decode(keyEnc)
		if err != nil {
			return c.fail(err)
		}
		pk := key
		if c.spec.recordPrefix != nil {
			if pk, _, err = keys.Decode(pkEnc); err != nil {
				return c.fail(err)
			}
		}
		c.item = item
		c.key = key
		c.primaryKey = pk
		c.pkEnc = bytes.Clone(pkEnc)
		return true
	}

	c.release()
	return false
}

func (c *cursor) fail(err error) bool {
	c.err = fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	c.release()
	return false
}

func (c *cursor) Key() any {
	return c.key
}

func (c *cursor) PrimaryKey() any {
	return c.primaryKey
}

func (c *cursor) Value() ([]byte, error) {
	if c.closed || c.item == nil {
		return nil, fmt.Errorf("%w: cursor is not positioned on an entry", storage.ErrInvalidState)
	}
	if c.spec.recordPrefix == nil {
		return c.item.ValueCopy(nil)
	}
	return c.tx.getValue(withSuffix(c.spec.recordPrefix, c.pkEnc))
}

func (c *cursor) Err() error {
	return c.err
}

// release closes the iterator early so a read-write transaction can open
// another one. The cursor stays registered until Close.
func (c *cursor) release() {
	c.item = nil
	if c.iter != nil {
		c.tx.closeIterator(c.iter)
		c.iter = nil
	}
}

func (c *cursor) Close() {
	if c.closed {
		return
	}
	c.release()
	c.closed = true
}
