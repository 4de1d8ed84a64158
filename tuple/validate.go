package tuple

import (
	"fmt"

	"github.com/tarandb/tarancore/pack"
)

// Validate checks raw pack-format row data against a format: it must be a
// single `array`, carry at least format.MinFieldCount() elements, and have
// every present field satisfy its declared type and nullability (spec.md
// §4.2 "validate").
func Validate(data []byte, format *Format) error {
	n, rest, err := pack.DecodeArrayHeader(data)
	if err != nil {
		return fmt.Errorf("tuple: data is not a valid pack array: %w", err)
	}
	min := format.MinFieldCount()
	if n < min {
		return fmt.Errorf("tuple: expected at least %d fields, got %d", min, n)
	}

	total := len(format.fields)
	for i := 0; i < n; i++ {
		var v pack.Value
		v, rest, err = pack.Decode(rest)
		if err != nil {
			return fmt.Errorf("tuple: field %d: %w", i, err)
		}
		if i >= total {
			continue // extra trailing fields beyond the declared format are permitted
		}
		fd := format.fields[i]
		if v.IsNull() {
			if !fd.Nullable && !(fd.Optional && fd.HasDefault) {
				return fmt.Errorf("tuple: field %d (%s) is not nullable", i, fd.Name)
			}
			continue
		}
		if !fd.Type.matches(v) {
			return fmt.Errorf("tuple: field %d (%s) declared %s, got %s", i, fd.Name, fd.Type, v.Kind)
		}
	}

	// Trailing declared-but-absent fields must be optional (with a default,
	// or simply nullable-by-absence).
	for i := n; i < total; i++ {
		fd := format.fields[i]
		if !fd.Optional {
			return fmt.Errorf("tuple: field %d (%s) is required but absent", i, fd.Name)
		}
	}
	return nil
}
