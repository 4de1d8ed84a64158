package vm

import (
	"github.com/tarandb/tarancore/iterator"
	"github.com/tarandb/tarancore/tuple"
)

// CursorKind distinguishes what an opened cursor walks (spec.md §4.10
// "cursor model"): a Tarantool index iterator, an internal sorter, or a
// single-row pseudo-table (e.g. the NEW/OLD row inside a trigger).
type CursorKind uint8

const (
	CursorIndex CursorKind = iota
	CursorSorter
	CursorPseudoTable
)

// Cursor is a VM-owned iterator over an index, sorter, or pseudo-table.
// Every cursor shape is driven through the same iterator.Iterator
// contract; a cursor opened over a tuple.Format whose key definition
// offset-caches the columns this query reads gets O(1) OpColumn access
// for free, since tuple.Tuple.Field already dispatches through that cache.
type Cursor struct {
	Kind   CursorKind
	It     iterator.Iterator
	Seek   iterator.Seekable // non-nil if It also satisfies Seekable
	Format *tuple.Format
	Open   bool
	Cur    *tuple.Tuple
}

func OpenCursor(kind CursorKind, it iterator.Iterator, format *tuple.Format) *Cursor {
	c := &Cursor{Kind: kind, It: it, Format: format}
	if s, ok := it.(iterator.Seekable); ok {
		c.Seek = s
	}
	return c
}

// Rewind positions the cursor at its first tuple, returning hasRow.
func (c *Cursor) Rewind() (bool, error) {
	c.Open = true
	t, err := c.It.Next()
	if err != nil {
		return false, err
	}
	c.Cur = t
	return t != nil, nil
}

// Next advances the cursor, returning hasRow.
func (c *Cursor) Next() (bool, error) {
	t, err := c.It.Next()
	if err != nil {
		return false, err
	}
	c.Cur = t
	return t != nil, nil
}

// Prev is Next's symmetric counterpart for reverse-ordered cursors. The
// core doesn't implement reverse iteration itself (spec.md §4.6: "the
// core does not implement the iterator"); a cursor opened over a
// Seekable whose underlying source was built in descending order just
// calls Next, so Prev is provided for VM program symmetry and delegates
// identically.
func (c *Cursor) Prev() (bool, error) { return c.Next() }

// Column loads field fieldno of the cursor's current tuple.
func (c *Cursor) Column(fieldno int) (Value, bool) {
	if c.Cur == nil {
		return Null(), false
	}
	v, ok := c.Cur.Field(fieldno)
	if !ok {
		return Null(), false
	}
	return fromPack(v), true
}

func (c *Cursor) Close() {
	if c.It != nil {
		c.It.Destroy()
	}
	c.Open = false
}
