package merger

import (
	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/tuple"
)

// Envelope names one merger source/output wire shape (spec.md §4.12
// "Source envelopes"). The output envelope of one merger is a valid
// input envelope for another (the "cascading" property), so the same
// enum serves both encode and decode.
type Envelope uint8

const (
	EnvelopeRaw Envelope = iota
	EnvelopeSelect
	EnvelopeCall
	EnvelopeChain
)

// ResultKey is the map key every non-raw envelope wraps its tuple array
// under, mirroring IPROTO_DATA in the original
// (original_source/src/lua/merger.c: "Decode {[IPROTO_DATA] = ...}
// header").
const ResultKey = 0x30

// DecodeEnvelope unwraps a wire buffer under envelope e into a flat
// slice of tuple-array pack.Values.
func DecodeEnvelope(e Envelope, data []byte) ([]pack.Value, error) {
	v, _, err := pack.Decode(data)
	if err != nil {
		return nil, dberr.Client(dberr.InvalidMsgPack, "merger: envelope: %v", err)
	}
	return DecodeEnvelopeValue(e, v)
}

// DecodeEnvelopeValue unwraps an already-decoded pack.Value under
// envelope e, for callers (rowio.Reader) that need the number of wire
// bytes consumed and so must decode the outer value themselves first.
func DecodeEnvelopeValue(e Envelope, v pack.Value) ([]pack.Value, error) {
	switch e {
	case EnvelopeRaw:
		if v.Kind != pack.KindArray {
			return nil, dberr.Client(dberr.InvalidMsgPack, "merger: raw envelope is not an array")
		}
		return v.Array, nil

	case EnvelopeSelect:
		body, err := unwrapResultKey(v)
		if err != nil {
			return nil, err
		}
		if body.Kind != pack.KindArray {
			return nil, dberr.Client(dberr.InvalidMsgPack, "merger: select envelope body is not an array")
		}
		return body.Array, nil

	case EnvelopeCall:
		body, err := unwrapResultKey(v)
		if err != nil {
			return nil, err
		}
		batch, err := firstElement(body, "call")
		if err != nil {
			return nil, err
		}
		if batch.Kind != pack.KindArray {
			return nil, dberr.Client(dberr.InvalidMsgPack, "merger: call envelope inner layer is not an array")
		}
		return batch.Array, nil

	case EnvelopeChain:
		body, err := unwrapResultKey(v)
		if err != nil {
			return nil, err
		}
		batches, err := firstElement(body, "chain")
		if err != nil {
			return nil, err
		}
		if batches.Kind != pack.KindArray {
			return nil, dberr.Client(dberr.InvalidMsgPack, "merger: chain envelope inner layer is not an array")
		}
		var out []pack.Value
		for i, b := range batches.Array {
			if b.Kind != pack.KindArray {
				return nil, dberr.Client(dberr.InvalidMsgPack, "merger: chain envelope batch %d is not an array", i)
			}
			out = append(out, b.Array...)
		}
		return out, nil

	default:
		return nil, dberr.Logic("merger: unknown envelope %d", e)
	}
}

func unwrapResultKey(v pack.Value) (pack.Value, error) {
	if v.Kind != pack.KindMap {
		return pack.Value{}, dberr.Client(dberr.InvalidMsgPack, "merger: envelope is not a map")
	}
	for _, e := range v.Map {
		if (e.Key.Kind == pack.KindUint && e.Key.Uint == ResultKey) ||
			(e.Key.Kind == pack.KindInt && e.Key.Int == ResultKey) {
			return e.Val, nil
		}
	}
	return pack.Value{}, dberr.Client(dberr.InvalidMsgPack, "merger: envelope missing RESULT_KEY")
}

// firstElement unwraps one single-element-array wrapping layer, reporting
// which named layer failed on error (spec.md §4.13 "reporting 'invalid
// envelope' with the envelope layer at which the failure occurred").
func firstElement(v pack.Value, layer string) (pack.Value, error) {
	if v.Kind != pack.KindArray || len(v.Array) == 0 {
		return pack.Value{}, dberr.Client(dberr.InvalidMsgPack, "merger: %s envelope outer layer is not a non-empty array", layer)
	}
	return v.Array[0], nil
}

// EncodeEnvelope wraps a flat tuple array under envelope e, the inverse
// of DecodeEnvelope.
func EncodeEnvelope(e Envelope, tuples []pack.Value) []byte {
	body := pack.Array(tuples...)
	switch e {
	case EnvelopeRaw:
		return pack.Encode(body, nil)
	case EnvelopeSelect:
		return pack.Encode(pack.Map(pack.MapEntry{Key: pack.Uint(ResultKey), Val: body}), nil)
	case EnvelopeCall:
		return pack.Encode(pack.Map(pack.MapEntry{Key: pack.Uint(ResultKey), Val: pack.Array(body)}), nil)
	case EnvelopeChain:
		return pack.Encode(pack.Map(pack.MapEntry{Key: pack.Uint(ResultKey), Val: pack.Array(pack.Array(body))}), nil)
	default:
		return nil
	}
}

// ToTuples decodes a flat slice of tuple-array pack.Values into
// tuple.Tuple objects under format, re-encoding each one (the merger
// operates on live tuples, not raw decoded values, so every tuple
// entering the merge is validated and offset-cached exactly once here).
func ToTuples(values []pack.Value, format *tuple.Format) ([]*tuple.Tuple, error) {
	out := make([]*tuple.Tuple, len(values))
	for i, v := range values {
		data := pack.Encode(v, nil)
		t, err := tuple.New(format, data)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// ToPackValues decodes every tuple's raw bytes back into a pack.Value
// array value, for handing off to EncodeEnvelope.
func ToPackValues(tuples []*tuple.Tuple) []pack.Value {
	out := make([]pack.Value, len(tuples))
	for i, t := range tuples {
		v, _, _ := pack.Decode(t.Data())
		out[i] = v
	}
	return out
}
