package vm

import "github.com/tarandb/tarancore/pack"

// fromPack converts a decoded pack-format field into a VM register value.
func fromPack(v pack.Value) Value {
	switch v.Kind {
	case pack.KindNil:
		return Null()
	case pack.KindBool:
		return Bool(v.Bool)
	case pack.KindUint:
		return Int64(int64(v.Uint))
	case pack.KindInt:
		return Int64(v.Int)
	case pack.KindFloat32:
		return Double(float64(v.Float32))
	case pack.KindFloat64:
		return Double(v.Float64)
	case pack.KindStr:
		return Str(v.Str)
	case pack.KindBin:
		return Blob(v.Bin)
	default:
		return Null()
	}
}

// toPack converts a VM register value back into a pack-format value, e.g.
// for OpMakeRecord building an output tuple.
func toPack(v Value) pack.Value {
	switch v.Kind {
	case KindNull:
		return pack.Nil()
	case KindBool:
		return pack.Bool_(v.Bool)
	case KindInt64:
		return pack.Int(v.Int64)
	case KindDouble:
		return pack.Float64_(v.Double)
	case KindStr:
		return pack.Str(v.Str)
	case KindBlob:
		return pack.Bin(v.Bytes())
	default:
		return pack.Nil()
	}
}

// ToPackValue is the exported form of toPack, for callers outside this
// package (e.g. rowio's result-set writer) that need to serialize a row's
// column values onto the wire.
func ToPackValue(v Value) pack.Value { return toPack(v) }
