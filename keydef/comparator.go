package keydef

import (
	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/tuple"
)

// NullMode selects how two null key parts compare, overridable per-call by
// the comparator's caller (spec.md §4.4 "Null comparison").
type NullMode uint8

const (
	// NullDefault: two nulls compare equal and greater than any non-null.
	NullDefault NullMode = iota
	// NullEq: nulls compare equal but ordered least (SQL NULLS FIRST /
	// VDBE's NULLEQ opcode flag).
	NullEq
)

// Comparator holds the collation registry a comparator run dispatches
// string comparisons through.
type Comparator struct {
	Collations *Registry
}

func NewComparator(collations *Registry) *Comparator {
	if collations == nil {
		collations = NewRegistry()
	}
	return &Comparator{Collations: collations}
}

// Compare implements spec.md §4.4's comparator contract:
// compare(a, b, key_def) -> -1|0|+1, antisymmetric and transitive, stable
// under each part's sort order.
func (c *Comparator) Compare(a, b *tuple.Tuple, kd *KeyDef, mode NullMode) int {
	for _, p := range kd.Parts {
		av, aok := c.fieldValue(a, p)
		bv, bok := c.fieldValue(b, p)
		cmp := c.compareOne(av, aok, bv, bok, p, mode)
		if cmp != 0 {
			if p.SortOrder < 0 {
				return -cmp
			}
			return cmp
		}
	}
	return 0
}

func (c *Comparator) fieldValue(t *tuple.Tuple, p KeyPart) (pack.Value, bool) {
	if len(p.JSONPath) > 0 {
		return t.FieldByPath(p.FieldNo, p.JSONPath)
	}
	return t.Field(p.FieldNo)
}

// compareOne compares two (possibly absent) field values for one key part.
func (c *Comparator) compareOne(av pack.Value, aok bool, bv pack.Value, bok bool, p KeyPart, mode NullMode) int {
	aNull := !aok || av.IsNull()
	bNull := !bok || bv.IsNull()

	if aNull && bNull {
		return 0
	}
	if aNull {
		if mode == NullEq {
			return -1
		}
		return 1
	}
	if bNull {
		if mode == NullEq {
			return 1
		}
		return -1
	}
	return c.compareValues(av, bv, p)
}

// compareValues compares two non-null decoded values of the same (or
// numerically compatible) declared type, dispatching strings through the
// key part's collation.
func (c *Comparator) compareValues(a, b pack.Value, p KeyPart) int {
	if a.Kind == pack.KindStr && b.Kind == pack.KindStr {
		if p.HasCollation {
			if coll, ok := c.Collations.Lookup(p.CollationID); ok {
				return coll.Compare(a.Str, b.Str)
			}
		}
		return stringCompare(a.Str, b.Str)
	}

	af, aIsNum := asFloat(a)
	bf, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	if a.Kind == pack.KindBool && b.Kind == pack.KindBool {
		switch {
		case a.Bool == b.Bool:
			return 0
		case !a.Bool:
			return -1
		default:
			return 1
		}
	}

	if a.Kind == pack.KindBin && b.Kind == pack.KindBin {
		return bytesCompare(a.Bin, b.Bin)
	}

	// Mismatched/uncomparable kinds: order by Kind so Compare stays a total
	// order (antisymmetric, transitive) even across heterogeneous data.
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	return 0
}

func asFloat(v pack.Value) (float64, bool) {
	switch v.Kind {
	case pack.KindUint:
		return float64(v.Uint), true
	case pack.KindInt:
		return float64(v.Int), true
	case pack.KindFloat32:
		return float64(v.Float32), true
	case pack.KindFloat64:
		return v.Float64, true
	default:
		return 0, false
	}
}

func stringCompare(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func bytesCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// CompareKeys compares two already-extracted pack-format key arrays
// directly, used by the merger and by statistics sample ordering where no
// live tuple is available.
func (c *Comparator) CompareKeys(a, b pack.Value, kd *KeyDef, mode NullMode) int {
	for i, p := range kd.Parts {
		var av, bv pack.Value
		if i < len(a.Array) {
			av = a.Array[i]
		} else {
			av = pack.Nil()
		}
		if i < len(b.Array) {
			bv = b.Array[i]
		} else {
			bv = pack.Nil()
		}
		cmp := c.compareOne(av, true, bv, true, p, mode)
		if cmp != 0 {
			if p.SortOrder < 0 {
				return -cmp
			}
			return cmp
		}
	}
	return 0
}
