package port

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/tuple"
)

func testFormat(t *testing.T) *tuple.Format {
	t.Helper()
	reg := tuple.NewRegistry(0)
	f, err := reg.Register([]tuple.FieldDef{
		{Name: "id", Type: tuple.TypeUnsigned},
		{Name: "name", Type: tuple.TypeString},
	}, []int{0})
	require.NoError(t, err)
	return f
}

func testTuple(t *testing.T, f *tuple.Format, id uint64, name string) *tuple.Tuple {
	t.Helper()
	data := pack.Encode(pack.Array(pack.Uint(id), pack.Str(name)), nil)
	tp, err := tuple.New(f, data)
	require.NoError(t, err)
	return tp
}

func TestTuplePortDumpMsgpack(t *testing.T) {
	f := testFormat(t)
	p := NewTuplePort()
	p.Add(testTuple(t, f, 1, "a"))
	p.Add(testTuple(t, f, 2, "b"))
	assert.Equal(t, 2, p.Len())

	out, err := p.DumpMsgpack(nil)
	require.NoError(t, err)

	v, rest, err := pack.Decode(out)
	require.NoError(t, err)
	assert.Empty(t, rest)
	require.Equal(t, pack.KindMap, v.Kind)
	require.Len(t, v.Map, 1)
	assert.Equal(t, "DATA", v.Map[0].Key.Str)
	assert.Len(t, v.Map[0].Val.Array, 2)

	p.Destroy()
	assert.Equal(t, 0, len(p.Rows()))
}

func TestSQLPortDumpMsgpackRowsShape(t *testing.T) {
	f := testFormat(t)
	p := NewSQLPort([]ColumnMeta{{Name: "id", Type: "unsigned"}, {Name: "name", Type: "string"}}, nil)
	p.Add(testTuple(t, f, 1, "a"))

	out, err := p.DumpMsgpack(nil)
	require.NoError(t, err)

	v, _, err := pack.Decode(out)
	require.NoError(t, err)
	require.Equal(t, pack.KindMap, v.Kind)
	keys := map[string]pack.Value{}
	for _, e := range v.Map {
		keys[e.Key.Str] = e.Val
	}
	require.Contains(t, keys, "METADATA")
	require.Contains(t, keys, "DATA")
	assert.Len(t, keys["METADATA"].Array, 2)
	assert.Len(t, keys["DATA"].Array, 1)
}

func TestSQLPortDumpMsgpackInfoWithAutoincShape(t *testing.T) {
	p := NewSQLPort(nil, nil)
	p.Info = &SQLInfo{RowCount: 3, AutoincIDs: []int64{10, 11}, HasAutoincIDs: true}

	out, err := p.DumpMsgpack(nil)
	require.NoError(t, err)

	v, _, err := pack.Decode(out)
	require.NoError(t, err)
	require.Equal(t, pack.KindMap, v.Kind)
	require.Equal(t, "SQL_INFO", v.Map[0].Key.Str)
	inner := map[string]pack.Value{}
	for _, e := range v.Map[0].Val.Map {
		inner[e.Key.Str] = e.Val
	}
	assert.Equal(t, uint64(3), inner["ROW_COUNT"].Uint)
	require.Contains(t, inner, "AUTOINCREMENT_IDS")
	assert.Len(t, inner["AUTOINCREMENT_IDS"].Array, 2)
}

func TestSQLPortDestroyCallsFinalizeOnce(t *testing.T) {
	calls := 0
	p := NewSQLPort(nil, func() error {
		calls++
		return nil
	})
	p.Destroy()
	assert.Equal(t, 1, calls)
}

func TestHostPortDumpMsgpackUnsupported(t *testing.T) {
	p := NewHostPort(nil)
	_, err := p.DumpMsgpack(nil)
	assert.True(t, errors.Is(err, ErrHostDumpUnsupported))
}

func TestHostPortDumpHost(t *testing.T) {
	f := testFormat(t)
	p := NewHostPort(nil)
	p.Add(testTuple(t, f, 1, "a"))
	p.Add(testTuple(t, f, 2, "b"))

	var seen []string
	err := p.DumpHost(func(tp *tuple.Tuple) error {
		v, _ := tp.Field(1)
		seen = append(seen, v.Str)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}
