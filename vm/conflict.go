package vm

import (
	"strconv"

	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/keydef"
)

// execCompare implements OP_Compare/Eq/Ne/Lt/Le/Gt/Ge (spec.md §4.10
// "Comparison"). P1, P2 name the two registers. For every opcode in the
// family, a non-negative P3 names a register that receives the boolean
// result, and a negative P3 names a jump target (-P3) taken when the
// result is true, so one opcode family serves both "materialize bool" and
// "jump if" forms. P4 optionally names a collation registered in
// m.Collations; P5 carries CompareFlags.
func (m *Machine) execCompare(insn Insn, advance *bool) (StepStatus, error) {
	a, b := m.Regs[insn.P1], m.Regs[insn.P2]

	var coll keydef.Collator
	if name, ok := insn.P4.(string); ok && name != "" && m.Collations != nil {
		if id, ok := m.Collations.LookupByName(name); ok {
			coll, _ = m.Collations.Lookup(id)
		}
	}

	cmp, isNull := compareValues(a, b, coll, CompareFlags(insn.P5))

	var result bool
	switch insn.Op {
	case OpCompare:
		result = cmp < 0
	case OpEq:
		result = cmp == 0
	case OpNe:
		result = cmp != 0
	case OpLt:
		result = cmp < 0
	case OpLe:
		result = cmp <= 0
	case OpGt:
		result = cmp > 0
	case OpGe:
		result = cmp >= 0
	}

	// Three-valued logic: a comparison involving NULL (outside NULLEQ mode)
	// is neither true nor false, so a conditional jump is simply not taken.
	if isNull {
		return StepDone, nil
	}

	if insn.P3 >= 0 {
		m.Regs[insn.P3] = Bool(result)
		return StepDone, nil
	}
	if result {
		m.pc = -insn.P3
		*advance = false
	}
	return StepDone, nil
}

// execConstraintHalt implements OP_HaltIfNull: P1 is the register checked
// for NULL, P2 the HaltCode, P3 the ConflictAction, P4 an optional message,
// P5 a jump target taken when the action is IGNORE. It returns cont=true
// when the caller should keep executing (IGNORE abandons only the current
// row, not the whole statement); cont=false carries the terminal status
// and error the caller must return directly.
func (m *Machine) execConstraintHalt(insn Insn) (cont bool, status StepStatus, err error) {
	action := ConflictAction(insn.P3)
	if action == ConflictIgnore {
		return true, StepDone, nil
	}

	code := HaltCode(insn.P2)
	msg, _ := insn.P4.(string)
	if msg == "" {
		msg = "NOT NULL constraint failed"
	}
	status, err = m.halt(code, dberr.Constraint(dberr.NotNull, "%s", msg))
	return false, status, err
}

// execIdxInsert implements OP_IdxInsert: P1 names a cursor (or -1 for "no
// cursor, space-level insert"), P2 a register holding the encoded record
// (as produced by OP_MakeRecord), P3 the ConflictAction, P4 the list of
// vm.UniqueIndex probes that must be checked (spec.md §4.10 "ON CONFLICT
// REPLACE ... probes every unique secondary index before applying the new
// row; ON CONFLICT IGNORE on UPDATE abandons the current row").
func (m *Machine) execIdxInsert(insn Insn) (StepStatus, error) {
	rec := m.Regs[insn.P2]
	action := ConflictAction(insn.P3)
	indexes, _ := insn.P4.([]UniqueIndex)
	return m.applyRecordInsert(rec, action, indexes)
}

// applyRecordInsert probes every index in indexes against rec, resolves any
// conflict per action, and, once clear, counts the row as applied. Shared by
// execIdxInsert's decode/re-encode path and execXferCopy's raw-row path,
// since both end up needing the same ON CONFLICT resolution.
func (m *Machine) applyRecordInsert(rec Value, action ConflictAction, indexes []UniqueIndex) (StepStatus, error) {
	for _, idx := range indexes {
		if idx.Probe == nil {
			continue
		}
		key := toPack(rec)
		found, err := idx.Probe(key)
		if err != nil {
			return m.halt(HaltError, err)
		}
		if !found {
			continue
		}
		switch action {
		case ConflictReplace:
			if idx.DeleteMatch != nil {
				if err := idx.DeleteMatch(key); err != nil {
					return m.halt(HaltError, err)
				}
			}
		case ConflictIgnore:
			return StepDone, nil
		case ConflictFail, ConflictAbort, ConflictRollback:
			return m.halt(HaltConstraintUnique, dberr.Constraint(dberr.Unique, "duplicate key on unique index"))
		}
	}

	m.bumpChanges()
	return StepDone, nil
}

// execXferCopy implements the Xfer optimization (spec.md §4.10): when a
// compiled INSERT INTO t SELECT * FROM u has structurally identical source
// and destination formats, rows move from the source cursor straight to
// the destination without a decode/recompare/re-encode round trip. P1 is
// the source cursor, P2 the destination cursor, P3 the ConflictAction, P4
// the destination's []UniqueIndex probes — the same ON CONFLICT contract
// OP_IdxInsert honors, just sourced from the cursor's raw tuple bytes
// instead of a decoded-then-rebuilt record register.
func (m *Machine) execXferCopy(insn Insn) (StepStatus, error) {
	src := m.Cursors[insn.P1]
	dst := m.Cursors[insn.P2]
	if src == nil || src.Cur == nil {
		return StepDone, nil
	}
	if dst != nil {
		dst.Cur = src.Cur
	}
	indexes, _ := insn.P4.([]UniqueIndex)
	return m.applyRecordInsert(Blob(src.Cur.Data()), ConflictAction(insn.P3), indexes)
}

// applyType implements OP_ApplyType's column-affinity coercion (spec.md
// §4.10 "Type coercion"): INTEGER target truncates floats with an
// exact-equality check and errors on non-numeric input; TEXT target
// formats numbers with implementation-defined precision; BLOB target is
// a no-op for strings and blobs and errors otherwise.
func applyType(v Value, affinity string) (Value, error) {
	if v.IsNull() {
		return v, nil
	}
	switch affinity {
	case "INTEGER":
		switch v.Kind {
		case KindInt64:
			return v, nil
		case KindDouble:
			n := int64(v.Double)
			if float64(n) != v.Double {
				return Value{}, dberr.Client(dberr.FieldType, "INTEGER affinity: %v has no exact integer representation", v.Double)
			}
			return Int64(n), nil
		case KindStr:
			if n, err := strconv.ParseInt(v.Str, 10, 64); err == nil {
				return Int64(n), nil
			}
			if f, err := strconv.ParseFloat(v.Str, 64); err == nil {
				if n := int64(f); float64(n) == f {
					return Int64(n), nil
				}
			}
			return Value{}, dberr.Client(dberr.FieldType, "INTEGER affinity: %q is not numeric", v.Str)
		default:
			return Value{}, dberr.Client(dberr.FieldType, "INTEGER affinity: %v is not numeric", v.Kind)
		}
	case "REAL", "NUMERIC":
		switch v.Kind {
		case KindInt64:
			return Double(float64(v.Int64)), nil
		case KindDouble:
			return v, nil
		case KindStr:
			if f, err := strconv.ParseFloat(v.Str, 64); err == nil {
				return Double(f), nil
			}
			return v, nil
		default:
			return v, nil
		}
	case "TEXT":
		switch v.Kind {
		case KindStr:
			return v, nil
		case KindInt64:
			return Str(strconv.FormatInt(v.Int64, 10)), nil
		case KindDouble:
			return Str(strconv.FormatFloat(v.Double, 'g', -1, 64)), nil
		default:
			return v, nil
		}
	case "BLOB":
		switch v.Kind {
		case KindStr, KindBlob:
			return v, nil
		default:
			return Value{}, dberr.Client(dberr.FieldType, "BLOB affinity: %v is not a string or blob", v.Kind)
		}
	default: // "" (no affinity): no coercion
		return v, nil
	}
}
