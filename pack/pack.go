// Package pack implements the self-describing tagged binary value stream
// ("pack format") that every tuple, SQL bind list, merger envelope and wire
// buffer in tarancore is built from. It is a msgpack-compatible encoding:
// canonical (smallest-width) on encode, permissive (any valid width) on
// decode.
package pack

import "errors"

// Kind identifies the dynamic type carried by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindUint
	KindInt
	KindFloat32
	KindFloat64
	KindStr
	KindBin
	KindArray
	KindMap
	KindExt
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindStr:
		return "str"
	case KindBin:
		return "bin"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindExt:
		return "ext"
	default:
		return "unknown"
	}
}

// MapEntry is one key/value pair of a Map value, kept in encounter order.
type MapEntry struct {
	Key Value
	Val Value
}

// Ext is a typed extension payload (used e.g. for UUID and decimal fields).
type Ext struct {
	Type int8
	Data []byte
}

// Value is a single decoded pack-format value. Only the field matching Kind
// is meaningful.
type Value struct {
	Kind    Kind
	Bool    bool
	Uint    uint64
	Int     int64
	Float32 float32
	Float64 float64
	Str     string
	Bin     []byte
	Array   []Value
	Map     []MapEntry
	Ext     Ext
}

func Nil() Value                { return Value{Kind: KindNil} }
func Bool_(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func Uint(u uint64) Value       { return Value{Kind: KindUint, Uint: u} }
func Int(i int64) Value         { return Value{Kind: KindInt, Int: i} }
func Float32_(f float32) Value  { return Value{Kind: KindFloat32, Float32: f} }
func Float64_(f float64) Value  { return Value{Kind: KindFloat64, Float64: f} }
func Str(s string) Value        { return Value{Kind: KindStr, Str: s} }
func Bin(b []byte) Value        { return Value{Kind: KindBin, Bin: b} }
func Array(vs ...Value) Value   { return Value{Kind: KindArray, Array: vs} }
func Map(es ...MapEntry) Value  { return Value{Kind: KindMap, Map: es} }
func ExtVal(t int8, d []byte) Value { return Value{Kind: KindExt, Ext: Ext{Type: t, Data: d}} }

// IsNull reports whether v is the pack-format nil value.
func (v Value) IsNull() bool { return v.Kind == KindNil }

// Equal reports deep, byte-for-byte equality between two decoded values.
// Numeric kinds are compared by kind, not by numeric coercion: Int(1) and
// Uint(1) are distinct values, matching the canonicalization rule that
// signedness is a property of the encoded form.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindUint:
		return a.Uint == b.Uint
	case KindInt:
		return a.Int == b.Int
	case KindFloat32:
		return a.Float32 == b.Float32
	case KindFloat64:
		return a.Float64 == b.Float64
	case KindStr:
		return a.Str == b.Str
	case KindBin:
		return bytesEqual(a.Bin, b.Bin)
	case KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !Equal(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.Map) != len(b.Map) {
			return false
		}
		for i := range a.Map {
			if !Equal(a.Map[i].Key, b.Map[i].Key) || !Equal(a.Map[i].Val, b.Map[i].Val) {
				return false
			}
		}
		return true
	case KindExt:
		return a.Ext.Type == b.Ext.Type && bytesEqual(a.Ext.Data, b.Ext.Data)
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Distinguishable codec failures (spec.md 4.1).
var (
	ErrInvalidHeader  = errors.New("pack: invalid header")
	ErrTruncated      = errors.New("pack: truncated")
	ErrUnexpectedType = errors.New("pack: unexpected type")
)
