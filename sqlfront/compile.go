package sqlfront

import (
	"fmt"

	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/sqlbind"
	"github.com/tarandb/tarancore/sqlstmt"
	"github.com/tarandb/tarancore/tuple"
	"github.com/tarandb/tarancore/vm"
)

// cursorBinding records that a compiled program expects cursor idx
// attached at Machine.Cursors[idx] to walk table before stepping, since
// the cursor itself (an iterator.Iterator over live rows) isn't something
// a vm.Program can carry — only sqlstmt.Stmt.SetCursor can attach it.
type cursorBinding struct {
	idx   int
	table *Table
}

// compilerState is the per-NewCompiler-call closure state: the Catalog it
// resolves table names against, plus the cursor bindings its most recent
// compile populated. Compile runs synchronously inside sqlstmt.Prepare, so
// Prepare (below) can read bindings immediately after Prepare returns.
type compilerState struct {
	cat      Catalog
	bindings []cursorBinding
}

func (cs *compilerState) compile(sqlText string) (*vm.Program, []sqlstmt.Column, []sqlbind.Target, error) {
	cs.bindings = cs.bindings[:0]
	stmt, err := Parse(sqlText)
	if err != nil {
		return nil, nil, nil, dberr.Client(dberr.SqlExecute, "%v", err)
	}
	switch {
	case stmt.Select != nil:
		return compileSelect(stmt.Select, cs)
	case stmt.Insert != nil:
		return compileInsert(stmt.Insert, cs)
	default:
		return nil, nil, nil, dberr.Logic("sqlfront: empty statement")
	}
}

// NewCompiler binds a Catalog to a sqlstmt.Compiler, so sqlstmt stays
// independent of any one parser or storage binding (sqlstmt.Stmt's doc
// comment: "supplied by the front end so sqlstmt stays independent of any
// one parser"). Callers whose statements reference a FROM table must
// still attach the matching cursor themselves (via Stmt.SetCursor) before
// stepping; Prepare below does that automatically.
func NewCompiler(cat Catalog) sqlstmt.Compiler {
	return (&compilerState{cat: cat}).compile
}

// Prepare compiles sqlText against cat and, for any FROM-clause table the
// statement references, opens and attaches the matching cursor so the
// returned statement is immediately steppable.
func Prepare(sqlText string, cat Catalog) (*sqlstmt.Stmt, error) {
	cs := &compilerState{cat: cat}
	st, err := sqlstmt.Prepare(sqlText, cs.compile)
	if err != nil {
		return st, err
	}
	for _, b := range cs.bindings {
		st.SetCursor(b.idx, vm.OpenCursor(vm.CursorIndex, b.table.Iterator(), b.table.Format))
	}
	return st, nil
}

// builder accumulates instructions and hands out fresh scratch registers
// above a reserved prefix (spec.md §4.9 "register file size" is computed
// from the final register high-water mark).
type builder struct {
	insns []vm.Insn
	next  int
}

func (b *builder) emit(i vm.Insn) int {
	b.insns = append(b.insns, i)
	return len(b.insns) - 1
}

func (b *builder) alloc() int {
	r := b.next
	b.next++
	return r
}

// cursorCtx threads the single open cursor a compiled loop body may
// reference a ColumnRef against.
type cursorCtx struct {
	idx    int
	table  *Table
	fields map[string]int
}

func compileExpr(b *builder, e Expr, dest int, cur *cursorCtx) error {
	switch v := e.(type) {
	case LiteralInt:
		b.emit(vm.Insn{Op: vm.OpInteger, P1: int(v.Value), P2: dest})
	case LiteralFloat:
		b.emit(vm.Insn{Op: vm.OpReal, P4: v.Value, P2: dest})
	case LiteralStr:
		b.emit(vm.Insn{Op: vm.OpString, P4: v.Value, P2: dest})
	case LiteralNull:
		b.emit(vm.Insn{Op: vm.OpNull, P2: dest})
	case Param:
		src := v.Ordinal - 1
		if src != dest {
			b.emit(vm.Insn{Op: vm.OpSCopy, P1: src, P2: dest})
		}
	case ColumnRef:
		if cur == nil {
			return dberr.Client(dberr.NoSuchField, "column %q referenced with no FROM clause", v.Column)
		}
		fieldno, ok := cur.fields[v.Column]
		if !ok {
			return dberr.Client(dberr.NoSuchField, "no such column: %s", v.Column)
		}
		b.emit(vm.Insn{Op: vm.OpColumn, P1: cur.idx, P2: fieldno, P3: dest})
	case BinaryExpr:
		if v.Op != "+" {
			return dberr.Logic("sqlfront: unsupported operator %q", v.Op)
		}
		lhs := b.alloc()
		if err := compileExpr(b, v.Left, lhs, cur); err != nil {
			return err
		}
		rhs := b.alloc()
		if err := compileExpr(b, v.Right, rhs, cur); err != nil {
			return err
		}
		b.emit(vm.Insn{Op: vm.OpAdd, P1: lhs, P2: rhs, P3: dest})
	default:
		return dberr.Logic("sqlfront: unsupported expression %T", e)
	}
	return nil
}

// collectParams walks exprs recursively, returning one sqlbind.Target per
// distinct ordinal (bind parameters may repeat a name; Parse already
// folds repeats onto one ordinal) and the highest ordinal seen.
func collectParams(exprs []Expr) ([]sqlbind.Target, int) {
	var targets []sqlbind.Target
	seen := make(map[int]bool)
	maxOrd := 0
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case Param:
			if !seen[v.Ordinal] {
				seen[v.Ordinal] = true
				targets = append(targets, sqlbind.Target{Ordinal: v.Ordinal, Name: v.Name})
			}
			if v.Ordinal > maxOrd {
				maxOrd = v.Ordinal
			}
		case BinaryExpr:
			walk(v.Left)
			walk(v.Right)
		}
	}
	for _, e := range exprs {
		walk(e)
	}
	return targets, maxOrd
}

func itemExprs(items []SelectItem) []Expr {
	out := make([]Expr, len(items))
	for i, it := range items {
		out[i] = it.Expr
	}
	return out
}

func columnLabel(item SelectItem, idx int) string {
	if item.Alias != "" {
		return item.Alias
	}
	if cr, ok := item.Expr.(ColumnRef); ok {
		return cr.Column
	}
	return fmt.Sprintf("column%d", idx+1)
}

// compileSelect handles both the FROM-less scalar-expression form (S4:
// "SELECT :x + :y") and "SELECT <cols> FROM table".
func compileSelect(sel *SelectStmt, cs *compilerState) (*vm.Program, []sqlstmt.Column, []sqlbind.Target, error) {
	if sel.From == "" {
		return compileSelectScalar(sel)
	}
	return compileSelectFrom(sel, cs)
}

func compileSelectScalar(sel *SelectStmt) (*vm.Program, []sqlstmt.Column, []sqlbind.Target, error) {
	for _, it := range sel.Items {
		if _, ok := it.Expr.(Star); ok {
			return nil, nil, nil, dberr.Client(dberr.SqlExecute, "SELECT * requires a FROM clause")
		}
	}
	targets, maxOrd := collectParams(itemExprs(sel.Items))

	b := &builder{next: maxOrd}
	resultBase := b.next
	b.next += len(sel.Items)

	cols := make([]sqlstmt.Column, len(sel.Items))
	for i, it := range sel.Items {
		if err := compileExpr(b, it.Expr, resultBase+i, nil); err != nil {
			return nil, nil, nil, err
		}
		cols[i] = sqlstmt.Column{Name: columnLabel(it, i)}
	}
	b.emit(vm.Insn{Op: vm.OpResultRow, P1: resultBase, P2: len(sel.Items)})
	b.emit(vm.Insn{Op: vm.OpHalt, P1: int(vm.HaltOK)})

	prog := &vm.Program{
		Insns:      b.insns,
		NumRegs:    b.next,
		ParamCount: maxOrd,
		ParamNames: paramNames(targets, maxOrd),
	}
	return prog, cols, targets, nil
}

func compileSelectFrom(sel *SelectStmt, cs *compilerState) (*vm.Program, []sqlstmt.Column, []sqlbind.Target, error) {
	tbl, ok := cs.cat.Table(sel.From)
	if !ok {
		return nil, nil, nil, dberr.Client(dberr.NoSuchSpace, "no such table: %s", sel.From)
	}
	items := expandStar(sel.Items, tbl)
	targets, maxOrd := collectParams(itemExprs(items))

	b := &builder{next: maxOrd}
	cur := &cursorCtx{idx: 0, table: tbl, fields: fieldIndex(tbl)}
	cs.bindings = append(cs.bindings, cursorBinding{idx: cur.idx, table: tbl})
	resultBase := b.next
	b.next += len(items)

	openAt := b.emit(vm.Insn{}) // patched below
	bodyStart := len(b.insns)

	cols := make([]sqlstmt.Column, len(items))
	for i, it := range items {
		if err := compileExpr(b, it.Expr, resultBase+i, cur); err != nil {
			return nil, nil, nil, err
		}
		cols[i] = sqlstmt.Column{Name: columnLabel(it, i)}
	}
	b.emit(vm.Insn{Op: vm.OpResultRow, P1: resultBase, P2: len(items)})
	b.emit(vm.Insn{Op: vm.OpNext, P1: cur.idx, P2: bodyStart})
	exitPC := len(b.insns)
	b.emit(vm.Insn{Op: vm.OpHalt, P1: int(vm.HaltOK)})

	b.insns[openAt] = vm.Insn{Op: vm.OpIteratorOpen, P1: cur.idx, P2: exitPC}

	prog := &vm.Program{
		Insns:      b.insns,
		NumRegs:    b.next,
		NumCursors: 1,
		ParamCount: maxOrd,
		ParamNames: paramNames(targets, maxOrd),
	}
	return prog, cols, targets, nil
}

func expandStar(items []SelectItem, tbl *Table) []SelectItem {
	var out []SelectItem
	for _, it := range items {
		if _, ok := it.Expr.(Star); !ok {
			out = append(out, it)
			continue
		}
		for _, fd := range tbl.Format.Fields() {
			out = append(out, SelectItem{Expr: ColumnRef{Column: fd.Name}})
		}
	}
	return out
}

func fieldIndex(tbl *Table) map[string]int {
	m := make(map[string]int, tbl.Format.FieldCount())
	for i, fd := range tbl.Format.Fields() {
		m[fd.Name] = i
	}
	return m
}

func paramNames(targets []sqlbind.Target, maxOrd int) []string {
	names := make([]string, maxOrd)
	for _, t := range targets {
		names[t.Ordinal-1] = t.Name
	}
	return names
}

// compileInsert handles INSERT [OR REPLACE] INTO t [(cols)] VALUES (...)
// and INSERT [OR REPLACE] INTO t SELECT * FROM u (spec.md §4.10's Xfer
// optimization candidate when the two formats are structurally
// equivalent).
func compileInsert(ins *InsertStmt, cs *compilerState) (*vm.Program, []sqlstmt.Column, []sqlbind.Target, error) {
	dst, ok := cs.cat.Table(ins.Table)
	if !ok {
		return nil, nil, nil, dberr.Client(dberr.NoSuchSpace, "no such table: %s", ins.Table)
	}
	action := vm.ConflictAbort
	if ins.OrReplace {
		action = vm.ConflictReplace
	}

	if ins.Select != nil {
		return compileInsertSelect(ins, dst, action, cs)
	}
	return compileInsertValues(ins, dst, action)
}

func compileInsertValues(ins *InsertStmt, dst *Table, action vm.ConflictAction) (*vm.Program, []sqlstmt.Column, []sqlbind.Target, error) {
	width := dst.Format.FieldCount()
	slot := identitySlots(ins.Columns, dst, width)

	var allExprs []Expr
	for _, row := range ins.Rows {
		allExprs = append(allExprs, row...)
	}
	targets, maxOrd := collectParams(allExprs)

	b := &builder{next: maxOrd}
	indexes := dst.ProbeIndexes()

	for _, row := range ins.Rows {
		if len(row) != len(slot) {
			return nil, nil, nil, dberr.Client(dberr.SqlExecute, "VALUES row has %d values, expected %d", len(row), len(slot))
		}
		rowBase := b.next
		b.next += width
		for i := 0; i < width; i++ {
			dest := rowBase + i
			if col, ok := slot[i]; ok {
				if err := compileExpr(b, row[col], dest, nil); err != nil {
					return nil, nil, nil, err
				}
			} else {
				b.emit(vm.Insn{Op: vm.OpNull, P2: dest})
			}
		}
		rec := b.alloc()
		b.emit(vm.Insn{Op: vm.OpMakeRecord, P1: rowBase, P2: width, P3: rec})
		b.emit(vm.Insn{Op: vm.OpIdxInsert, P1: -1, P2: rec, P3: int(action), P4: indexes})
	}
	b.emit(vm.Insn{Op: vm.OpHalt, P1: int(vm.HaltOK)})

	prog := &vm.Program{
		Insns:      b.insns,
		NumRegs:    b.next,
		ParamCount: maxOrd,
		ParamNames: paramNames(targets, maxOrd),
	}
	return prog, nil, targets, nil
}

// identitySlots maps each destination field number to the index of the
// VALUES expression that supplies it, or leaves it absent (NULL/default)
// when cols names fewer fields than the table declares.
func identitySlots(cols []string, dst *Table, width int) map[int]int {
	slot := make(map[int]int, width)
	if cols == nil {
		for i := 0; i < width; i++ {
			slot[i] = i
		}
		return slot
	}
	names := fieldIndex(dst)
	for i, c := range cols {
		if fieldno, ok := names[c]; ok {
			slot[fieldno] = i
		}
	}
	return slot
}

func compileInsertSelect(ins *InsertStmt, dst *Table, action vm.ConflictAction, cs *compilerState) (*vm.Program, []sqlstmt.Column, []sqlbind.Target, error) {
	src, ok := cs.cat.Table(ins.Select.From)
	if !ok {
		return nil, nil, nil, dberr.Client(dberr.NoSuchSpace, "no such table: %s", ins.Select.From)
	}
	items := expandStar(ins.Select.Items, src)
	width := dst.Format.FieldCount()
	if len(items) != width {
		return nil, nil, nil, dberr.Client(dberr.SqlExecute, "SELECT yields %d columns, INSERT target has %d", len(items), width)
	}

	b := &builder{}
	cur := &cursorCtx{idx: 0, table: src, fields: fieldIndex(src)}
	cs.bindings = append(cs.bindings, cursorBinding{idx: cur.idx, table: src})
	indexes := dst.ProbeIndexes()
	isXfer := structurallyEqual(src.Format, dst.Format)
	numCursors := 1

	openAt := b.emit(vm.Insn{})
	bodyStart := len(b.insns)
	if isXfer {
		// Source and destination formats line up field-for-field, so the
		// row moves as its raw encoded bytes straight onto the
		// destination cursor, instead of decoding into registers and
		// re-encoding (spec.md §4.10's Xfer optimization).
		dstCurIdx := 1
		cs.bindings = append(cs.bindings, cursorBinding{idx: dstCurIdx, table: dst})
		numCursors = 2
		b.emit(vm.Insn{Op: vm.OpXferCopy, P1: cur.idx, P2: dstCurIdx, P3: int(action), P4: indexes})
	} else {
		rowBase := b.alloc()
		b.next += width - 1 // reserve the rest of the row contiguously
		for i, it := range items {
			if err := compileExpr(b, it.Expr, rowBase+i, cur); err != nil {
				return nil, nil, nil, err
			}
		}
		rec := b.alloc()
		b.emit(vm.Insn{Op: vm.OpMakeRecord, P1: rowBase, P2: width, P3: rec})
		b.emit(vm.Insn{Op: vm.OpIdxInsert, P1: -1, P2: rec, P3: int(action), P4: indexes})
	}
	b.emit(vm.Insn{Op: vm.OpNext, P1: cur.idx, P2: bodyStart})
	exitPC := len(b.insns)
	b.emit(vm.Insn{Op: vm.OpHalt, P1: int(vm.HaltOK)})
	b.insns[openAt] = vm.Insn{Op: vm.OpIteratorOpen, P1: cur.idx, P2: exitPC}

	prog := &vm.Program{
		Insns:      b.insns,
		NumRegs:    b.next,
		NumCursors: numCursors,
		// IsXfer records whether this INSERT...SELECT's source and
		// destination formats are structurally equivalent; when true the
		// loop body above emits OpXferCopy instead of the
		// OpColumn/OpMakeRecord decode/re-encode path.
		IsXfer: isXfer,
	}
	return prog, nil, nil, nil
}

// structurallyEqual reports field-count/type/name equivalence between two
// tuple formats, the condition spec.md's Xfer optimization requires.
func structurallyEqual(a, b *tuple.Format) bool {
	if a.FieldCount() != b.FieldCount() {
		return false
	}
	for i := 0; i < a.FieldCount(); i++ {
		fa, fb := a.Field(i), b.Field(i)
		if fa.Name != fb.Name || fa.Type != fb.Type {
			return false
		}
	}
	return true
}
