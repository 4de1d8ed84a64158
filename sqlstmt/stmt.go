// Package sqlstmt implements the SQL prepared-statement lifecycle of
// spec.md §4.9: the INIT/RUN/HALT/DEAD state machine wrapped around a
// vm.Machine, its bump-allocated per-statement region, change counter,
// and autoincrement trail.
package sqlstmt

import (
	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/sqlbind"
	"github.com/tarandb/tarancore/vm"
)

// State is one node of spec.md §4.9's statement state machine.
type State uint8

const (
	StateInit State = iota
	StateRun
	StateHalt
	StateDead
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRun:
		return "RUN"
	case StateHalt:
		return "HALT"
	case StateDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// Column describes one result column: its name and the static declared
// type from schema (ColumnDeclType). The manifest-typed runtime kind
// (ColumnType) is not stored here; it is derived from the value currently
// in that column — the column_type/column_decltype duality spec.md's
// "Restored / supplemented features" calls out.
type Column struct {
	Name     string
	DeclType string
}

// Stmt is a compiled, bindable, steppable SQL statement handle.
type Stmt struct {
	SQL     string
	Program *vm.Program
	Columns []Column

	machine *vm.Machine
	region  Region
	state   State

	changeCounter uint64
	autoincTrail  []int64

	binds   []sqlbind.Param
	targets []sqlbind.Target

	resultRow []vm.Value
}

// Compiler turns SQL text into a compiled program, its result-column
// metadata, and the declared parameter table. It is supplied by the
// front end (sqlfront) so sqlstmt stays independent of any one parser.
type Compiler func(sqlText string) (*vm.Program, []Column, []sqlbind.Target, error)

// Prepare compiles sqlText and returns a handle ready to Step (spec.md
// §4.9: "prepare(sql_text) -> stmt compiles and returns a handle").
// Compile failure returns a DEAD handle alongside the error so callers
// may still safely Finalize it.
func Prepare(sqlText string, compile Compiler) (*Stmt, error) {
	prog, cols, targets, err := compile(sqlText)
	if err != nil {
		return &Stmt{SQL: sqlText, state: StateDead}, err
	}

	st := &Stmt{
		SQL:     sqlText,
		Program: prog,
		Columns: cols,
		targets: targets,
		binds:   make([]sqlbind.Param, prog.ParamCount),
		state:   StateRun,
	}
	st.machine = vm.NewMachine(prog)
	st.machine.ChangeCounter = &st.changeCounter
	st.machine.AutoincTrail = &st.autoincTrail
	return st, nil
}

func (s *Stmt) State() State { return s.state }

// SetCursor attaches an opened cursor at slot idx of the underlying
// machine, for front ends (sqlfront) whose compiled program references a
// FROM-clause table: the compiler only emits the cursor index a program
// expects, since opening the actual iterator is a storage concern the
// compiler stays independent of (Compiler's doc comment).
func (s *Stmt) SetCursor(idx int, c *vm.Cursor) { s.machine.SetCursor(idx, c) }

// BindList decodes a wire-format parameter list and resolves every
// element against this statement's declared parameter table (spec.md
// §4.8: "Binding to a prepared statement").
func (s *Stmt) BindList(data []byte) error {
	if s.state == StateDead {
		return dberr.Logic("cannot bind: statement is finalized")
	}
	params, err := sqlbind.DecodeList(data)
	if err != nil {
		return err
	}
	for _, p := range params {
		ordinal, err := sqlbind.Resolve(p, s.targets)
		if err != nil {
			return err
		}
		if ordinal < 1 || ordinal > len(s.binds) {
			return dberr.Client(dberr.BindNotFound, "parameter ordinal %d out of range", ordinal)
		}
		s.binds[ordinal-1] = p
	}
	s.loadBinds()
	return nil
}

// loadBinds copies resolved bind parameters into the machine's leading
// registers, where the compiled program expects to find them.
func (s *Stmt) loadBinds() {
	for i, p := range s.binds {
		s.machine.Regs[i] = paramToValue(p)
	}
}

func paramToValue(p sqlbind.Param) vm.Value {
	switch p.Type {
	case sqlbind.Integer:
		return vm.Int64(p.Int)
	case sqlbind.Float:
		return vm.Double(p.Float)
	case sqlbind.Text:
		return vm.Str(p.Text)
	case sqlbind.Blob:
		return vm.Blob(p.Blob)
	default:
		return vm.Null()
	}
}

// ClearBindings sets every bind slot to NULL (spec.md §4.9).
func (s *Stmt) ClearBindings() error {
	if s.state == StateDead {
		return dberr.Logic("cannot clear bindings: statement is finalized")
	}
	for i := range s.binds {
		s.binds[i] = sqlbind.Param{Ordinal: i + 1, Type: sqlbind.Null}
	}
	s.loadBinds()
	return nil
}

// Step advances the statement until the next row emission or end
// (spec.md §4.9: "step(stmt) -> ROW | DONE | ERROR | BUSY").
func (s *Stmt) Step() (vm.StepStatus, error) {
	switch s.state {
	case StateDead:
		return vm.StepErrorStatus, dberr.Logic("cannot step: statement is finalized")
	case StateHalt:
		return vm.StepDone, nil
	}
	s.state = StateRun

	mark := s.region.Watermark()
	status, err := s.machine.Step()
	switch status {
	case vm.StepRow:
		s.resultRow = s.machine.ResultRow
	case vm.StepDone:
		s.state = StateHalt
	case vm.StepErrorStatus:
		s.region.Restore(mark)
		s.state = StateHalt
	case vm.StepBusyStatus:
		s.region.Restore(mark)
	}
	return status, err
}

// Reset clears per-execution state; binds survive (spec.md §4.9: "HALT
// --reset--> RUN (rewinds pc, clears results, keeps binds)").
func (s *Stmt) Reset() error {
	if s.state == StateDead {
		return dberr.Logic("cannot reset: statement is finalized")
	}
	s.machine.SetPC(0)
	s.region.Reset()
	s.resultRow = nil
	s.changeCounter = 0
	s.autoincTrail = s.autoincTrail[:0]
	s.loadBinds()
	s.state = StateRun
	return nil
}

// Finalize moves the statement to DEAD, freeing its region and
// unreferencing any result tuples. Safe to call on a nil *Stmt (spec.md
// §4.9: "finalize(stmt) ... safe to call on a null handle").
func (s *Stmt) Finalize() error {
	if s == nil || s.state == StateDead {
		return nil
	}
	s.region.Free()
	s.resultRow = nil
	s.state = StateDead
	return nil
}

// hasRow reports whether the statement is in RUN's result-row-present
// substate (spec.md §4.9: column_count/name/type/value "defined only
// while the statement is in the result-row-present substate of RUN").
func (s *Stmt) hasRow() bool { return s.state == StateRun && s.resultRow != nil }

func (s *Stmt) ColumnCount() int { return len(s.Columns) }

func (s *Stmt) ColumnName(i int) (string, error) {
	if i < 0 || i >= len(s.Columns) {
		return "", dberr.Client(dberr.NoSuchField, "column index %d out of range", i)
	}
	return s.Columns[i].Name, nil
}

// ColumnDeclType returns the statically declared schema type of column i,
// distinct from ColumnType's runtime manifest type.
func (s *Stmt) ColumnDeclType(i int) (string, error) {
	if i < 0 || i >= len(s.Columns) {
		return "", dberr.Client(dberr.NoSuchField, "column index %d out of range", i)
	}
	return s.Columns[i].DeclType, nil
}

// ColumnType returns the dynamic (manifest) type of the value currently
// sitting in column i of the present result row.
func (s *Stmt) ColumnType(i int) (string, error) {
	v, err := s.ColumnValue(i)
	if err != nil {
		return "", err
	}
	switch v.Kind {
	case vm.KindNull:
		return "NULL", nil
	case vm.KindInt64:
		return "INTEGER", nil
	case vm.KindDouble:
		return "REAL", nil
	case vm.KindStr:
		return "TEXT", nil
	case vm.KindBlob:
		return "BLOB", nil
	default:
		return "NULL", nil
	}
}

func (s *Stmt) ColumnValue(i int) (vm.Value, error) {
	if !s.hasRow() {
		return vm.Value{}, dberr.Logic("no result row is present")
	}
	if i < 0 || i >= len(s.resultRow) {
		return vm.Value{}, dberr.Client(dberr.NoSuchField, "column index %d out of range", i)
	}
	return s.resultRow[i], nil
}

// Changes returns the number of rows the statement's bytecode has
// mutated so far in the current execution (spec.md §4.9 "Change
// counter").
func (s *Stmt) Changes() uint64 { return s.changeCounter }

// AutoincTrail returns the autoincrement ids assigned during the current
// execution, in assignment order (spec.md §4.9 "Autoinc trail").
func (s *Stmt) AutoincTrail() []int64 { return s.autoincTrail }
