package main

import (
	"strconv"
	"strings"

	"github.com/tarandb/tarancore/pack"
)

// parseBindFlags turns repeated "--bind name=value" flags into the
// wire-format bind list of spec.md §6: a top-level array of single-entry
// {name: scalar} maps. Each value is parsed as an integer, then a float,
// falling back to text — the same best-effort typing a SQL client
// library applies to command-line-supplied binds.
func parseBindFlags(binds []string) ([]byte, error) {
	entries := make([]pack.Value, 0, len(binds))
	for _, b := range binds {
		name, raw, ok := strings.Cut(b, "=")
		if !ok {
			return nil, &bindFlagError{b}
		}
		entries = append(entries, pack.Map(pack.MapEntry{Key: pack.Str(name), Val: scalarOf(raw)}))
	}
	return pack.Encode(pack.Array(entries...), nil), nil
}

func scalarOf(raw string) pack.Value {
	if raw == "" {
		return pack.Nil()
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return pack.Int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return pack.Float64_(f)
	}
	return pack.Str(raw)
}

type bindFlagError struct{ flag string }

func (e *bindFlagError) Error() string { return "tarandbd: malformed --bind " + e.flag + ", want name=value" }
