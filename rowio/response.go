package rowio

import (
	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/vm"
)

// Wire map keys for the SQL response envelope of spec.md §6, matching
// Tarantool's own IPROTO key space
// (_examples/original_source/src/box/execute.h's iproto_body diagram:
// "IPROTO_METADATA: [...]", "IPROTO_DATA: [...]", "IPROTO_SQL_INFO:
// {...}").
const (
	keyData     = 0x30
	keyMetadata = 0x32
	keySQLInfo  = 0x42

	fieldName = 0x00
	fieldType = 0x01
)

// SQL_INFO map keys, from _examples/original_source/src/box/execute.h's
// enum sql_info_key.
const (
	infoRowCount          = 0
	infoAutoincrementIDs = 1
)

// ColumnMeta is one result-set column's wire metadata.
type ColumnMeta struct {
	Name string
	Type string
}

// WriteQueryResult appends a "rows with metadata" response (spec.md §6's
// first wire shape) to w.
func WriteQueryResult(w *Writer, columns []ColumnMeta, rows [][]vm.Value) error {
	metaEntries := make([]pack.Value, len(columns))
	for i, c := range columns {
		metaEntries[i] = pack.Map(
			pack.MapEntry{Key: pack.Uint(fieldName), Val: pack.Str(c.Name)},
			pack.MapEntry{Key: pack.Uint(fieldType), Val: pack.Str(c.Type)},
		)
	}
	dataEntries := make([]pack.Value, len(rows))
	for i, row := range rows {
		fields := make([]pack.Value, len(row))
		for j, v := range row {
			fields[j] = vm.ToPackValue(v)
		}
		dataEntries[i] = pack.Array(fields...)
	}
	body := pack.Map(
		pack.MapEntry{Key: pack.Uint(keyMetadata), Val: pack.Array(metaEntries...)},
		pack.MapEntry{Key: pack.Uint(keyData), Val: pack.Array(dataEntries...)},
	)
	return w.append(body)
}

// WriteMutationResult appends an "info, no rows" response for a
// statement that mutated rows but produced none.
func WriteMutationResult(w *Writer, rowCount uint64) error {
	info := pack.Map(pack.MapEntry{Key: pack.Uint(infoRowCount), Val: pack.Uint(rowCount)})
	body := pack.Map(pack.MapEntry{Key: pack.Uint(keySQLInfo), Val: info})
	return w.append(body)
}

// WriteMutationResultWithAutoinc appends the same response as
// WriteMutationResult plus the autoincrement id trail (spec.md §6's
// third wire shape).
func WriteMutationResultWithAutoinc(w *Writer, rowCount uint64, ids []int64) error {
	idValues := make([]pack.Value, len(ids))
	for i, id := range ids {
		idValues[i] = pack.Int(id)
	}
	info := pack.Map(
		pack.MapEntry{Key: pack.Uint(infoRowCount), Val: pack.Uint(rowCount)},
		pack.MapEntry{Key: pack.Uint(infoAutoincrementIDs), Val: pack.Array(idValues...)},
	)
	body := pack.Map(pack.MapEntry{Key: pack.Uint(keySQLInfo), Val: info})
	return w.append(body)
}
