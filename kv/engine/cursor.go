package engine

import (
	"bytes"

	"github.com/coocood/badger"
)

// Cursor is a stateful pointer into the ordered key space, bound to one
// transaction. Badger iterators only walk one direction, so the cursor
// remembers the key it is positioned on and opens a short-lived forward
// or reverse iterator per call. Within one transaction's snapshot the
// remembered key stays addressable, so positioning is stable.
//
// Each operation returns the positioned pair and ok=false when there is
// nothing to land on; a failed move leaves the position unchanged.
// Next on an unpositioned cursor behaves as First, Prev as Last.
type Cursor struct {
	txn   *badger.Txn
	pos   []byte
	valid bool
}

func NewCursor(txn *badger.Txn) *Cursor {
	return &Cursor{txn: txn}
}

func (c *Cursor) iter(reverse bool) *badger.Iterator {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	return c.txn.NewIterator(opts)
}

// settle records the iterator's current entry as the new position.
func (c *Cursor) settle(it *badger.Iterator) ([]byte, []byte, bool, error) {
	if !it.Valid() {
		return nil, nil, false, nil
	}
	item := it.Item()
	key := item.KeyCopy(nil)
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, nil, false, err
	}
	c.pos = key
	c.valid = true
	return key, val, true, nil
}

// First positions at the smallest key.
func (c *Cursor) First() ([]byte, []byte, bool, error) {
	it := c.iter(false)
	defer it.Close()
	it.Rewind()
	return c.settle(it)
}

// Last positions at the largest key.
func (c *Cursor) Last() ([]byte, []byte, bool, error) {
	it := c.iter(true)
	defer it.Close()
	it.Rewind()
	return c.settle(it)
}

// Next advances to the next larger key.
func (c *Cursor) Next() ([]byte, []byte, bool, error) {
	if !c.valid {
		return c.First()
	}
	it := c.iter(false)
	defer it.Close()
	it.Seek(c.pos)
	if it.Valid() && bytes.Equal(it.Item().Key(), c.pos) {
		it.Next()
	}
	return c.settle(it)
}

// Prev moves to the next smaller key.
func (c *Cursor) Prev() ([]byte, []byte, bool, error) {
	if !c.valid {
		return c.Last()
	}
	it := c.iter(true)
	defer it.Close()
	it.Seek(c.pos)
	if it.Valid() && bytes.Equal(it.Item().Key(), c.pos) {
		it.Next()
	}
	return c.settle(it)
}

// Seek positions at the first key greater than or equal to key.
func (c *Cursor) Seek(key []byte) ([]byte, []byte, bool, error) {
	it := c.iter(false)
	defer it.Close()
	it.Seek(key)
	return c.settle(it)
}

// Current returns the pair the cursor is positioned on.
func (c *Cursor) Current() ([]byte, []byte, bool, error) {
	if !c.valid {
		return nil, nil, false, nil
	}
	it := c.iter(false)
	defer it.Close()
	it.Seek(c.pos)
	if !it.Valid() || !bytes.Equal(it.Item().Key(), c.pos) {
		return nil, nil, false, nil
	}
	return c.settle(it)
}
