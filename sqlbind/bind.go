// Package sqlbind decodes a wire-format SQL parameter list and binds it
// against a prepared statement's parameter table (spec.md §4.8).
package sqlbind

import (
	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/limits"
	"github.com/tarandb/tarancore/pack"
)

// Type is the bind type a decoded parameter is normalized to.
type Type uint8

const (
	Integer Type = iota
	Float
	Text
	Blob
	Null
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case Text:
		return "TEXT"
	case Blob:
		return "BLOB"
	case Null:
		return "NULL"
	default:
		return "UNKNOWN"
	}
}

// Param is one decoded, normalized bind parameter.
type Param struct {
	Name    string // "" for a positional bind
	Ordinal int    // 1-based position in order of appearance
	Type    Type
	Int     int64
	Float   float64
	Text    string
	Blob    []byte
}

// DecodeList decodes the wire-format bind list of spec.md §6: a top-level
// array whose elements are each either a scalar (positional bind) or a
// single-entry map {name: scalar} (named bind).
func DecodeList(data []byte) ([]Param, error) {
	n, rest, err := pack.DecodeArrayHeader(data)
	if err != nil {
		return nil, dberr.Client(dberr.InvalidMsgPack, "bind list is not an array: %v", err)
	}
	if n > limits.BindParameterMax {
		return nil, dberr.Client(dberr.BindParameterMax, "bind list has %d parameters, max is %d", n, limits.BindParameterMax)
	}

	params := make([]Param, 0, n)
	for i := 0; i < n; i++ {
		var v pack.Value
		v, rest, err = pack.Decode(rest)
		if err != nil {
			return nil, dberr.Client(dberr.InvalidMsgPack, "bind element %d: %v", i, err)
		}
		p, err := decodeOne(v, i+1)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

func decodeOne(v pack.Value, ordinal int) (Param, error) {
	if v.Kind == pack.KindMap {
		if len(v.Map) != 1 {
			return Param{}, dberr.Client(dberr.BindValue, "named bind element must have exactly one entry, got %d", len(v.Map))
		}
		entry := v.Map[0]
		if entry.Key.Kind != pack.KindStr {
			return Param{}, dberr.Client(dberr.BindValue, "named bind key must be a string")
		}
		p, err := scalarToParam(entry.Val, ordinal)
		if err != nil {
			return Param{}, err
		}
		p.Name = entry.Key.Str
		return p, nil
	}
	return scalarToParam(v, ordinal)
}

func scalarToParam(v pack.Value, ordinal int) (Param, error) {
	p := Param{Ordinal: ordinal}
	switch v.Kind {
	case pack.KindNil:
		p.Type = Null
	case pack.KindUint:
		p.Type = Integer
		p.Int = int64(v.Uint)
	case pack.KindInt:
		p.Type = Integer
		p.Int = v.Int
	case pack.KindFloat32:
		p.Type = Float
		p.Float = float64(v.Float32)
	case pack.KindFloat64:
		p.Type = Float
		p.Float = v.Float64
	case pack.KindStr:
		p.Type = Text
		p.Text = v.Str
	case pack.KindBin:
		p.Type = Blob
		p.Blob = v.Bin
	case pack.KindBool:
		// booleans-as-integer coercion (spec.md §4.8)
		p.Type = Integer
		if v.Bool {
			p.Int = 1
		}
	default:
		return Param{}, dberr.Client(dberr.BindValue, "bind parameter %d: arrays and maps cannot be bound as scalars", ordinal)
	}
	return p, nil
}

// Target describes one declared parameter slot a statement exposes for
// binding, keeping sqlbind decoupled from sqlstmt's concrete statement
// type (Design Notes: no structural coupling beyond the contract needed).
type Target struct {
	Ordinal int
	Name    string // "" if the parameter is unnamed
}

// Resolve maps a decoded Param against a statement's declared parameter
// table by ordinal or by name, returning the resolved ordinal.
func Resolve(p Param, targets []Target) (int, error) {
	if p.Name != "" {
		for _, tgt := range targets {
			if tgt.Name == p.Name {
				return tgt.Ordinal, nil
			}
		}
		return 0, dberr.Client(dberr.BindNotFound, "no parameter named %q", p.Name)
	}
	for _, tgt := range targets {
		if tgt.Ordinal == p.Ordinal {
			return tgt.Ordinal, nil
		}
	}
	if p.Ordinal < 1 || p.Ordinal > len(targets) {
		return 0, dberr.Client(dberr.BindNotFound, "no parameter at ordinal %d", p.Ordinal)
	}
	return p.Ordinal, nil
}
