// Package iterator defines the uniform index-iterator contract tarancore
// consumes but never implements (spec.md §4.6): any index, sorter, or
// pseudo-table backing a cursor need only satisfy this interface.
package iterator

import "github.com/tarandb/tarancore/tuple"

// Iterator is the minimal pull contract every cursor source honors.
// Next returns (nil, nil) at end of stream, matching the original's
// "tuple may be null at end" convention rather than a separate io.EOF
// sentinel, since the VM's cursor model treats "no more rows" as a normal
// outcome, not a failure.
type Iterator interface {
	Next() (*tuple.Tuple, error)
	Destroy()
}

// Seekable is implemented by iterators that support positioning to a key
// in addition to linear Next (spec.md §4.6 "uniform next tuple / seek /
// equality lookup contract"). Not every iterator needs to implement it;
// the VM's cursor model type-asserts for it when compiling a seek opcode.
type Seekable interface {
	Iterator
	Seek(key []byte) error
	EqualityLookup(key []byte) (*tuple.Tuple, error)
}

// SliceIterator adapts an in-memory, already-materialized slice of tuples
// to the Iterator contract; used by tests, by pseudo-tables, and by the
// merger's "table source" shape.
type SliceIterator struct {
	tuples []*tuple.Tuple
	pos    int
}

func NewSliceIterator(tuples []*tuple.Tuple) *SliceIterator {
	return &SliceIterator{tuples: tuples}
}

func (s *SliceIterator) Next() (*tuple.Tuple, error) {
	if s.pos >= len(s.tuples) {
		return nil, nil
	}
	t := s.tuples[s.pos]
	s.pos++
	return t, nil
}

func (s *SliceIterator) Destroy() {
	s.tuples = nil
}

// FuncIterator adapts a pull callback to the Iterator contract (the
// merger's "iterator source" shape, spec.md §4.12).
type FuncIterator struct {
	pull func() (*tuple.Tuple, error)
}

func NewFuncIterator(pull func() (*tuple.Tuple, error)) *FuncIterator {
	return &FuncIterator{pull: pull}
}

func (f *FuncIterator) Next() (*tuple.Tuple, error) { return f.pull() }
func (f *FuncIterator) Destroy()                    {}
