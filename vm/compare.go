package vm

import (
	"strings"

	"github.com/tarandb/tarancore/keydef"
)

// CompareFlags is the P5 bitmask OP_Compare/Ne/Eq/Lt/... read to choose
// NULL semantics (spec.md §4.10: "operand P5 chooses NULLEQ or
// NULL-propagates").
type CompareFlags uint16

const (
	FlagNullEq CompareFlags = 1 << iota
)

// compareValues dispatches through the collation named in P4 (if any) and
// honors NULL semantics from flags, returning (result, isNull) where
// isNull reports that the comparison must NULL-propagate (result undefined)
// rather than produce a boolean.
func compareValues(a, b Value, collation keydef.Collator, flags CompareFlags) (int, bool) {
	aNull, bNull := a.IsNull(), b.IsNull()
	if aNull || bNull {
		if flags&FlagNullEq != 0 {
			switch {
			case aNull && bNull:
				return 0, false
			case aNull:
				return -1, false
			default:
				return 1, false
			}
		}
		return 0, true // NULL propagates: caller treats comparison as unknown
	}

	if a.Kind == KindStr && b.Kind == KindStr {
		if collation != nil {
			return collation.Compare(a.Str, b.Str), false
		}
		return strings.Compare(a.Str, b.Str), false
	}

	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1, false
		case af > bf:
			return 1, false
		default:
			return 0, false
		}
	}

	if a.Kind == KindBool && b.Kind == KindBool {
		switch {
		case a.Bool == b.Bool:
			return 0, false
		case !a.Bool:
			return -1, false
		default:
			return 1, false
		}
	}

	if a.Kind == KindBlob && b.Kind == KindBlob {
		return bytesCompare(a.Bytes(), b.Bytes()), false
	}

	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1, false
		}
		return 1, false
	}
	return 0, false
}

func asFloat(v Value) (float64, bool) {
	switch v.Kind {
	case KindInt64:
		return float64(v.Int64), true
	case KindDouble:
		return v.Double, true
	default:
		return 0, false
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
