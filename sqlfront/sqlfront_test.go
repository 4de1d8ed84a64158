package sqlfront

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/sqlstmt"
	"github.com/tarandb/tarancore/tuple"
	"github.com/tarandb/tarancore/vm"
)

func twoFieldFormat(t *testing.T) *tuple.Format {
	t.Helper()
	reg := tuple.NewRegistry(0)
	f, err := reg.Register([]tuple.FieldDef{
		{Name: "a", Type: tuple.TypeInteger},
		{Name: "b", Type: tuple.TypeString},
	}, nil)
	require.NoError(t, err)
	return f
}

func bindList(t *testing.T, entries ...pack.MapEntry) []byte {
	t.Helper()
	arr := make([]pack.Value, len(entries))
	for i, e := range entries {
		arr[i] = pack.Map(e)
	}
	return pack.Encode(pack.Array(arr...), nil)
}

// TestBindByNameAdditionCompilesFromSQLText is spec.md S4 driven through
// real SQL text rather than hand-built bytecode: "SELECT :x + :y" bound to
// x=2, y=3 must produce one row whose sole column is 5.
func TestBindByNameAdditionCompilesFromSQLText(t *testing.T) {
	compile := NewCompiler(NewMemCatalog())
	st, err := sqlstmt.Prepare("SELECT :x + :y", compile)
	require.NoError(t, err)
	defer st.Finalize()

	require.NoError(t, st.BindList(bindList(t,
		pack.MapEntry{Key: pack.Str("x"), Val: pack.Int(2)},
		pack.MapEntry{Key: pack.Str("y"), Val: pack.Int(3)},
	)))

	status, err := st.Step()
	require.NoError(t, err)
	require.Equal(t, vm.StepRow, status)

	v, err := st.ColumnValue(0)
	require.NoError(t, err)
	assert.Equal(t, vm.Int64(5), v)

	status, err = st.Step()
	require.NoError(t, err)
	assert.Equal(t, vm.StepDone, status)
}

// TestInsertValuesThenSelectStar exercises INSERT INTO ... VALUES and a
// SELECT * FROM readback against the in-memory catalog, beyond the three
// named scenarios, as a sanity check on the general FROM-clause path.
func TestInsertValuesThenSelectStar(t *testing.T) {
	cat := NewMemCatalog()
	cat.CreateTable("t", twoFieldFormat(t), 0)
	compile := NewCompiler(cat)

	ins, err := sqlstmt.Prepare(`INSERT INTO t VALUES (1, 'x')`, compile)
	require.NoError(t, err)
	defer ins.Finalize()
	status, err := ins.Step()
	require.NoError(t, err)
	require.Equal(t, vm.StepDone, status)
	assert.EqualValues(t, 1, ins.Changes())

	sel, err := Prepare(`SELECT * FROM t`, cat)
	require.NoError(t, err)
	defer sel.Finalize()

	status, err = sel.Step()
	require.NoError(t, err)
	require.Equal(t, vm.StepRow, status)
	a, err := sel.ColumnValue(0)
	require.NoError(t, err)
	b, err := sel.ColumnValue(1)
	require.NoError(t, err)
	assert.Equal(t, vm.Int64(1), a)
	assert.Equal(t, vm.Str("x"), b)

	status, err = sel.Step()
	require.NoError(t, err)
	assert.Equal(t, vm.StepDone, status)
}

// TestInsertSelectXferDetection is spec.md S5: INSERT INTO t SELECT * FROM
// u, where t and u share a structurally identical format, must mark the
// compiled program IsXfer and copy every row of u into t.
func TestInsertSelectXferDetection(t *testing.T) {
	cat := NewMemCatalog()
	format := twoFieldFormat(t)
	cat.CreateTable("u", format, 0)
	cat.CreateTable("t", format, 0)
	compile := NewCompiler(cat)

	seed, err := sqlstmt.Prepare(`INSERT INTO u VALUES (1, 'a')`, compile)
	require.NoError(t, err)
	_, err = seed.Step()
	require.NoError(t, err)
	seed.Finalize()
	seed2, err := sqlstmt.Prepare(`INSERT INTO u VALUES (2, 'b')`, compile)
	require.NoError(t, err)
	_, err = seed2.Step()
	require.NoError(t, err)
	seed2.Finalize()

	xfer, err := Prepare(`INSERT INTO t SELECT * FROM u`, cat)
	require.NoError(t, err)
	defer xfer.Finalize()
	assert.True(t, xfer.Program.IsXfer)

	var sawXferCopy bool
	for _, insn := range xfer.Program.Insns {
		if insn.Op == vm.OpXferCopy {
			sawXferCopy = true
			break
		}
	}
	assert.True(t, sawXferCopy, "IsXfer program must actually emit OpXferCopy, not the decode/re-encode path")

	status, err := xfer.Step()
	require.NoError(t, err)
	require.Equal(t, vm.StepDone, status)
	assert.EqualValues(t, 2, xfer.Changes())

	dst, _ := cat.Table("t")
	assert.Len(t, dst.rows.order, 2)
}

// TestReplaceOnConflictRemovesOldPrimaryRow is spec.md S6: a space with a
// unique secondary index on column b; after inserting {1,"x"}, executing
// INSERT OR REPLACE INTO s VALUES (2, "x") must leave primary key 1 gone,
// primary key 2 present with b="x", and changes() == 1.
func TestReplaceOnConflictRemovesOldPrimaryRow(t *testing.T) {
	cat := NewMemCatalog()
	format := twoFieldFormat(t)
	cat.CreateTable("s", format, 0, 1)
	compile := NewCompiler(cat)

	seed, err := sqlstmt.Prepare(`INSERT INTO s VALUES (1, 'x')`, compile)
	require.NoError(t, err)
	_, err = seed.Step()
	require.NoError(t, err)
	seed.Finalize()

	replace, err := sqlstmt.Prepare(`INSERT OR REPLACE INTO s VALUES (2, 'x')`, compile)
	require.NoError(t, err)
	defer replace.Finalize()

	status, err := replace.Step()
	require.NoError(t, err)
	require.Equal(t, vm.StepDone, status)
	assert.EqualValues(t, 1, replace.Changes())

	s, _ := cat.Table("s")
	_, hasOld := s.rows.byKey[int64(1)]
	assert.False(t, hasOld)
	newRow, hasNew := s.rows.byKey[int64(2)]
	require.True(t, hasNew)
	bVal, ok := newRow.Field(1)
	require.True(t, ok)
	assert.Equal(t, "x", bVal.Str)
}

// TestConflictAbortRejectsDuplicatePrimaryKey checks the default (non
// REPLACE) path still halts with a constraint error.
func TestConflictAbortRejectsDuplicatePrimaryKey(t *testing.T) {
	cat := NewMemCatalog()
	cat.CreateTable("s", twoFieldFormat(t), 0)
	compile := NewCompiler(cat)

	seed, err := sqlstmt.Prepare(`INSERT INTO s VALUES (1, 'x')`, compile)
	require.NoError(t, err)
	_, err = seed.Step()
	require.NoError(t, err)
	seed.Finalize()

	dup, err := sqlstmt.Prepare(`INSERT INTO s VALUES (1, 'y')`, compile)
	require.NoError(t, err)
	defer dup.Finalize()
	_, err = dup.Step()
	assert.Error(t, err)
}
