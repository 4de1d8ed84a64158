package keydef

import (
	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/tuple"
)

// KeyPart is one element of a composite key description (spec.md §4.4).
type KeyPart struct {
	FieldNo     int
	Type        tuple.FieldType
	Nullable    bool
	HasCollation bool
	CollationID uint32
	JSONPath    []tuple.JSONPathElem
	SortOrder   int // +1 ascending, -1 descending
	// Optional marks a trailing key part that may be absent from a tuple
	// (the tuple's own field is declared Optional). Only meaningful for
	// parts past KeyDef's materialized-prefix boundary.
	Optional bool
}

// KeyDef is a composite-key descriptor with its construction-time derived
// classification flags cached (spec.md §4.4).
type KeyDef struct {
	Parts []KeyPart

	// Sequential: parts cover a contiguous ascending field range, one step
	// apart, with no JSON paths and no optional parts.
	Sequential bool
	// ContainsSequentialParts: true when the parts form one ascending-by-one
	// field run with no JSON paths; unlike Sequential it stays true when
	// optional parts are present. It is recorded at construction only; no
	// comparator or extractor reads it.
	ContainsSequentialParts bool
	// HasOptionalParts: at least one part may be legitimately absent.
	HasOptionalParts bool
	// HasJSONPaths: at least one part descends into a JSON sub-document.
	HasJSONPaths bool

	cachedFields []int // field indices needing format offset-caching
}

// New constructs a KeyDef from an ordered list of key parts, computing and
// caching the classification spec.md §4.4 requires at construction time.
func New(parts []KeyPart) *KeyDef {
	kd := &KeyDef{Parts: append([]KeyPart(nil), parts...)}

	hasJSON := false
	hasOptional := false
	for _, p := range kd.Parts {
		if len(p.JSONPath) > 0 {
			hasJSON = true
		}
		if p.Optional {
			hasOptional = true
		}
	}
	kd.HasJSONPaths = hasJSON
	kd.HasOptionalParts = hasOptional

	seqRun := isAscendingRun(kd.Parts)
	kd.ContainsSequentialParts = seqRun && !hasJSON
	kd.Sequential = seqRun && !hasJSON && !hasOptional

	seen := make(map[int]bool)
	for _, p := range kd.Parts {
		if !seen[p.FieldNo] {
			seen[p.FieldNo] = true
			kd.cachedFields = append(kd.cachedFields, p.FieldNo)
		}
	}
	return kd
}

func isAscendingRun(parts []KeyPart) bool {
	if len(parts) == 0 {
		return false
	}
	for i := 1; i < len(parts); i++ {
		if parts[i].FieldNo != parts[i-1].FieldNo+1 {
			return false
		}
	}
	return true
}

// CachedFieldIndices lists the field numbers that a tuple.Format built
// for this key definition must offset-cache.
func (kd *KeyDef) CachedFieldIndices() []int { return kd.cachedFields }

// dispatchIndex computes the 3-bit selector (sequential, has_optional,
// has_json) into the 8-way pre-compiled extractor/comparator table
// (spec.md §4.4 "dispatched to one of eight pre-compiled variants").
func (kd *KeyDef) dispatchIndex() int {
	idx := 0
	if kd.Sequential {
		idx |= 1
	}
	if kd.HasOptionalParts {
		idx |= 2
	}
	if kd.HasJSONPaths {
		idx |= 4
	}
	return idx
}

// ExtractKey produces a pack-format array of the tuple's key fields, one
// entry per key part, in key-part order (spec.md §4.4 "extract_key").
// Absent trailing fields become nil entries when the key definition has
// optional parts.
func ExtractKey(t *tuple.Tuple, kd *KeyDef) (pack.Value, error) {
	return extractors[kd.dispatchIndex()](t, kd)
}

type extractFunc func(*tuple.Tuple, *KeyDef) (pack.Value, error)

// extractors is the 8-entry dispatch table indexed by dispatchIndex().
var extractors = [8]extractFunc{
	extractSlow, // 000: plain per-part
	extractSequential, // 001: sequential
	extractSlow, // 010: has optional
	extractSequentialOptional, // 011: sequential + optional
	extractSlow, // 100: has json
	extractSlow, // 101: sequential claim with json never happens (Sequential excludes json)
	extractSlow, // 110
	extractSlow, // 111
}

func extractSequential(t *tuple.Tuple, kd *KeyDef) (pack.Value, error) {
	vals := make([]pack.Value, len(kd.Parts))
	for i, p := range kd.Parts {
		v, ok := t.Field(p.FieldNo)
		if !ok {
			v = pack.Nil()
		}
		vals[i] = v
	}
	return pack.Array(vals...), nil
}

func extractSequentialOptional(t *tuple.Tuple, kd *KeyDef) (pack.Value, error) {
	return extractSlow(t, kd)
}

func extractSlow(t *tuple.Tuple, kd *KeyDef) (pack.Value, error) {
	vals := make([]pack.Value, len(kd.Parts))
	for i, p := range kd.Parts {
		var v pack.Value
		var ok bool
		if len(p.JSONPath) > 0 {
			v, ok = t.FieldByPath(p.FieldNo, p.JSONPath)
		} else {
			v, ok = t.Field(p.FieldNo)
		}
		if !ok {
			if !p.Optional {
				v = pack.Nil()
			} else {
				v = pack.Nil()
			}
		}
		vals[i] = v
	}
	return pack.Array(vals...), nil
}
