// Package tuple implements the tuple object and tuple format registry of
// spec.md §4.2-§4.3: an immutable, refcounted row built on top of the
// pack-format encoder, plus the registry that interns field-type vectors
// into compact format ids.
package tuple

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tarandb/tarancore/pack"
)

// FieldType is the declared SQL/Tarantool-style scalar type of one field.
type FieldType uint8

const (
	TypeAny FieldType = iota
	TypeUnsigned
	TypeInteger
	TypeString
	TypeNumber
	TypeDouble
	TypeBoolean
	TypeVarbinary
	TypeArray
	TypeMap
	TypeUUID
)

func (t FieldType) String() string {
	names := [...]string{"any", "unsigned", "integer", "string", "number", "double", "boolean", "varbinary", "array", "map", "uuid"}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// matches reports whether a decoded pack.Value satisfies this declared type.
func (t FieldType) matches(v pack.Value) bool {
	switch t {
	case TypeAny:
		return true
	case TypeUnsigned:
		return v.Kind == pack.KindUint
	case TypeInteger:
		return v.Kind == pack.KindUint || v.Kind == pack.KindInt
	case TypeString:
		return v.Kind == pack.KindStr
	case TypeNumber, TypeDouble:
		return v.Kind == pack.KindFloat32 || v.Kind == pack.KindFloat64 || v.Kind == pack.KindUint || v.Kind == pack.KindInt
	case TypeBoolean:
		return v.Kind == pack.KindBool
	case TypeVarbinary:
		return v.Kind == pack.KindBin
	case TypeArray:
		return v.Kind == pack.KindArray
	case TypeMap:
		return v.Kind == pack.KindMap
	case TypeUUID:
		return v.Kind == pack.KindExt
	default:
		return false
	}
}

// FieldDef is one field of a tuple format.
type FieldDef struct {
	Name       string
	Type       FieldType
	Nullable   bool
	Optional   bool // may be absent from the trailing end of the data array
	HasDefault bool
	Default    pack.Value
}

// Format interns a field-count + per-field descriptor vector plus the set
// of field indices whose offsets get cached on every tuple built against
// it (spec.md §4.3). Formats are refcounted; a format is only ever
// observed non-nil, so the zero value is never a valid *Format.
type Format struct {
	id        uint32
	fields    []FieldDef
	cacheIdx  []int // ascending field indices whose offsets are cached
	cachePos  map[int]int // fieldno -> position in cacheIdx/Tuple.offsets
	refcount  int64
	registry  *Registry
}

func (f *Format) ID() uint32            { return f.id }
func (f *Format) FieldCount() int       { return len(f.fields) }
func (f *Format) Field(i int) FieldDef  { return f.fields[i] }
func (f *Format) Fields() []FieldDef    { return f.fields }

// MinFieldCount is the number of leading fields that must always be
// present: total fields minus every trailing Optional field, whether or not
// it has a default. Spec.md §4.2 invariant: "the data region ... length in elements
// equals or exceeds the format's declared field count minus the number of
// trailing optional parts."
func (f *Format) MinFieldCount() int {
	n := len(f.fields)
	for n > 0 && f.fields[n-1].Optional {
		n--
	}
	return n
}

// Ref increments the format's refcount.
func (f *Format) Ref() { atomic.AddInt64(&f.refcount, 1) }

// Unref decrements the format's refcount; at zero the registry may recycle
// the format's id.
func (f *Format) Unref() {
	if atomic.AddInt64(&f.refcount, -1) == 0 && f.registry != nil {
		f.registry.release(f)
	}
}

func (f *Format) Refcount() int64 { return atomic.LoadInt64(&f.refcount) }

// structuralKey is the interning key: two Register calls with
// field-for-field-identical descriptors and identical cached-offset index
// sets return the same *Format (spec.md §4.3: "interns by structural
// equality of field descriptors").
func structuralKey(fields []FieldDef, cacheIdx []int) string {
	s := ""
	for _, fd := range fields {
		s += fmt.Sprintf("|%s:%d:%v:%v:%v", fd.Name, fd.Type, fd.Nullable, fd.Optional, fd.HasDefault)
	}
	s += "#cache"
	for _, i := range cacheIdx {
		s += fmt.Sprintf(":%d", i)
	}
	return s
}

// Registry interns tuple formats and assigns them compact, reusable ids
// (spec.md §4.3).
type Registry struct {
	mu       sync.Mutex
	byID     map[uint32]*Format
	byKey    map[string]*Format
	nextID   uint32
	freeIDs  []uint32
	maxID    uint32
}

// NewRegistry creates an empty format registry. maxID bounds the id space;
// Register fails with "too many formats" once it is exhausted and no id
// has been freed.
func NewRegistry(maxID uint32) *Registry {
	if maxID == 0 {
		maxID = 1 << 20
	}
	return &Registry{
		byID:  make(map[uint32]*Format),
		byKey: make(map[string]*Format),
		maxID: maxID,
	}
}

var ErrTooManyFormats = fmt.Errorf("tuple: too many formats")

// Register interns field/key descriptors into a Format, returning a handle
// with refcount 1. cachedFields lists the field indices a key definition
// needs offset-cached (spec.md §4.3's "key parts" list); keydef.KeyDef
// populates this via CachedFieldIndices.
func (r *Registry) Register(fields []FieldDef, cachedFields []int) (*Format, error) {
	cacheIdx := dedupSorted(cachedFields)
	key := structuralKey(fields, cacheIdx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKey[key]; ok {
		existing.Ref()
		return existing, nil
	}

	id, err := r.allocID()
	if err != nil {
		return nil, err
	}

	cachePos := make(map[int]int, len(cacheIdx))
	for i, fieldno := range cacheIdx {
		cachePos[fieldno] = i
	}

	f := &Format{
		id:       id,
		fields:   append([]FieldDef(nil), fields...),
		cacheIdx: cacheIdx,
		cachePos: cachePos,
		refcount: 1,
		registry: r,
	}
	r.byID[id] = f
	r.byKey[key] = f
	return f, nil
}

func (r *Registry) allocID() (uint32, error) {
	if n := len(r.freeIDs); n > 0 {
		id := r.freeIDs[n-1]
		r.freeIDs = r.freeIDs[:n-1]
		return id, nil
	}
	if r.nextID >= r.maxID {
		return 0, ErrTooManyFormats
	}
	id := r.nextID
	r.nextID++
	return id, nil
}

// ByID looks up a live format by id.
func (r *Registry) ByID(id uint32) (*Format, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	return f, ok
}

// release is called once a format's refcount reaches zero; it frees the id
// for reuse (spec.md §4.3: "ids are drawn from a monotonic counter with id
// reuse after full deallocation").
func (r *Registry) release(f *Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byID[f.id]; !ok || cur != f {
		return // raced with a concurrent re-register; nothing to do
	}
	if f.Refcount() != 0 {
		return // resurrected by a concurrent Ref
	}
	delete(r.byID, f.id)
	key := structuralKey(f.fields, f.cacheIdx)
	delete(r.byKey, key)
	r.freeIDs = append(r.freeIDs, f.id)
}

func dedupSorted(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	// simple insertion sort: cached-field lists are small (key-part counts)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
