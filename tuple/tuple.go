package tuple

import (
	"sync"
	"sync/atomic"

	"github.com/tarandb/tarancore/pack"
)

// inlineRefMax is the width of the inline refcount field before a tuple's
// reference count promotes to the side table, mirroring the original's
// 15-bit "bigref" threshold (tuple.h bigrefs) rather than an unexplained
// magic number.
const inlineRefMax = 0x7fff

// Tuple is an immutable, refcounted row: an encoded pack-format array plus
// a per-format field-offset vector for the fields the format chose to
// cache (spec.md §4.2).
type Tuple struct {
	format  *Format
	data    []byte // one contiguous pack-format `array`
	offsets []int  // parallel to format.cacheIdx; byte offset of each cached field, or -1 if absent

	refcount int32 // inline counter, atomics only
	bigref   int32 // 1 once promoted
}

var bigRefs sync.Map // map[*Tuple]*int64, populated only for promoted tuples

// New validates data against format and builds a tuple. data must be a
// single pack-format `array` whose element count is at least
// format.MinFieldCount(). Refcount starts at zero, matching the original's
// "tuple_new returns an unreferenced tuple" convention: callers that keep
// it must call Ref.
func New(format *Format, data []byte) (*Tuple, error) {
	if err := Validate(data, format); err != nil {
		return nil, err
	}
	offsets, err := computeOffsets(data, format)
	if err != nil {
		return nil, err
	}
	return &Tuple{format: format, data: data, offsets: offsets}, nil
}

func computeOffsets(data []byte, format *Format) ([]int, error) {
	if len(format.cacheIdx) == 0 {
		return nil, nil
	}
	n, rest, err := pack.DecodeArrayHeader(data)
	if err != nil {
		return nil, err
	}
	offsets := make([]int, len(format.cacheIdx))
	for i := range offsets {
		offsets[i] = -1
	}
	cursor := len(data) - len(rest)
	want := 0
	for fieldno := 0; fieldno < n && want < len(format.cacheIdx); fieldno++ {
		if pos, ok := format.cachePos[fieldno]; ok {
			offsets[pos] = cursor
			want++
		}
		rest, err = pack.Skip(rest)
		if err != nil {
			return nil, err
		}
		cursor = len(data) - len(rest)
	}
	return offsets, nil
}

// Format returns the tuple's format.
func (t *Tuple) Format() *Format { return t.format }

// Data returns the raw encoded pack-format array backing the tuple. The
// slice must never be mutated: tuples are immutable once constructed.
func (t *Tuple) Data() []byte { return t.data }

// FieldCount returns the number of elements in the tuple's data array.
func (t *Tuple) FieldCount() int {
	n, _, err := pack.DecodeArrayHeader(t.data)
	if err != nil {
		return 0
	}
	return n
}

// Ref increments the tuple's reference count. Wait-free: inline increments
// are a single atomic add; promotion to the side table happens at most
// once per tuple and uses a CAS loop instead of a lock.
func (t *Tuple) Ref() {
	if atomic.LoadInt32(&t.bigref) == 1 {
		t.bigRefPtr().Add(1)
		return
	}
	for {
		cur := atomic.LoadInt32(&t.refcount)
		if cur >= inlineRefMax {
			if atomic.CompareAndSwapInt32(&t.bigref, 0, 1) {
				ptr := t.bigRefPtr()
				ptr.Store(int64(cur) + 1)
				return
			}
			t.bigRefPtr().Add(1)
			return
		}
		if atomic.CompareAndSwapInt32(&t.refcount, cur, cur+1) {
			return
		}
	}
}

// Unref decrements the tuple's reference count. When it reaches zero the
// tuple is considered freed: per spec.md §4.2, "a tuple whose refcount
// reached zero is never observed thereafter" — callers must drop every
// handle immediately after the decrement that hits zero.
func (t *Tuple) Unref() {
	if atomic.LoadInt32(&t.bigref) == 1 {
		if t.bigRefPtr().Add(-1) == 0 {
			bigRefs.Delete(t)
		}
		return
	}
	atomic.AddInt32(&t.refcount, -1)
}

// Refcount reports the tuple's current reference count.
func (t *Tuple) Refcount() int64 {
	if atomic.LoadInt32(&t.bigref) == 1 {
		return t.bigRefPtr().Load()
	}
	return int64(atomic.LoadInt32(&t.refcount))
}

func (t *Tuple) bigRefPtr() *atomic.Int64 {
	v, _ := bigRefs.LoadOrStore(t, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// Field returns a pointer (as a decoded pack.Value) to the field at
// fieldno, or ok=false if the tuple has fewer fields. Fields within the
// format's cached range are located in O(1) via the offset vector; fields
// outside it are found by walking the array from the start.
func (t *Tuple) Field(fieldno int) (pack.Value, bool) {
	if pos, ok := t.format.cachePos[fieldno]; ok {
		off := t.offsets[pos]
		if off < 0 {
			return pack.Value{}, false
		}
		v, _, err := pack.Decode(t.data[off:])
		if err != nil {
			return pack.Value{}, false
		}
		return v, true
	}
	return t.fieldByWalk(fieldno)
}

func (t *Tuple) fieldByWalk(fieldno int) (pack.Value, bool) {
	n, rest, err := pack.DecodeArrayHeader(t.data)
	if err != nil || fieldno < 0 || fieldno >= n {
		return pack.Value{}, false
	}
	for i := 0; i < fieldno; i++ {
		rest, err = pack.Skip(rest)
		if err != nil {
			return pack.Value{}, false
		}
	}
	v, _, err := pack.Decode(rest)
	if err != nil {
		return pack.Value{}, false
	}
	return v, true
}

// JSONPathElem is one step of a JSON sub-path: either a map key or an
// array index.
type JSONPathElem struct {
	Key     string
	Index   int
	IsIndex bool
}

// FieldByPath resolves fieldno then walks a JSON sub-path through nested
// maps/arrays (spec.md §4.2 field_by_path).
func (t *Tuple) FieldByPath(fieldno int, path []JSONPathElem) (pack.Value, bool) {
	v, ok := t.Field(fieldno)
	if !ok {
		return pack.Value{}, false
	}
	for _, step := range path {
		if step.IsIndex {
			if v.Kind != pack.KindArray || step.Index < 0 || step.Index >= len(v.Array) {
				return pack.Value{}, false
			}
			v = v.Array[step.Index]
			continue
		}
		if v.Kind != pack.KindMap {
			return pack.Value{}, false
		}
		found := false
		for _, e := range v.Map {
			if e.Key.Kind == pack.KindStr && e.Key.Str == step.Key {
				v = e.Val
				found = true
				break
			}
		}
		if !found {
			return pack.Value{}, false
		}
	}
	return v, true
}
