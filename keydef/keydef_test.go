package keydef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/tuple"
)

func row(t *testing.T, format *tuple.Format, vals ...pack.Value) *tuple.Tuple {
	t.Helper()
	data := pack.Encode(pack.Array(vals...), nil)
	tp, err := tuple.New(format, data)
	require.NoError(t, err)
	return tp
}

func TestSequentialClassification(t *testing.T) {
	kd := New([]KeyPart{
		{FieldNo: 0, Type: tuple.TypeUnsigned, SortOrder: 1},
		{FieldNo: 1, Type: tuple.TypeString, SortOrder: 1},
	})
	assert.True(t, kd.Sequential)
	assert.False(t, kd.HasOptionalParts)
	assert.False(t, kd.HasJSONPaths)
}

func TestNonSequentialClassification(t *testing.T) {
	kd := New([]KeyPart{
		{FieldNo: 2, Type: tuple.TypeUnsigned, SortOrder: 1},
		{FieldNo: 0, Type: tuple.TypeString, SortOrder: 1},
	})
	assert.False(t, kd.Sequential)
}

func TestComparatorConsistency(t *testing.T) {
	reg := tuple.NewRegistry(0)
	format, err := reg.Register([]tuple.FieldDef{
		{Name: "id", Type: tuple.TypeUnsigned},
		{Name: "name", Type: tuple.TypeString},
	}, []int{0})
	require.NoError(t, err)

	kd := New([]KeyPart{{FieldNo: 0, Type: tuple.TypeUnsigned, SortOrder: 1}})
	cmp := NewComparator(nil)

	a := row(t, format, pack.Uint(1), pack.Str("a"))
	b := row(t, format, pack.Uint(2), pack.Str("b"))
	c := row(t, format, pack.Uint(2), pack.Str("c"))

	assert.Equal(t, -1, cmp.Compare(a, b, kd, NullDefault))
	assert.Equal(t, 1, cmp.Compare(b, a, kd, NullDefault))
	assert.Equal(t, 0, cmp.Compare(b, c, kd, NullDefault))

	// extract_key equal iff compare == 0
	ka, err := ExtractKey(b, kd)
	require.NoError(t, err)
	kb, err := ExtractKey(c, kd)
	require.NoError(t, err)
	assert.True(t, pack.Equal(ka, kb))
}

func TestDescendingSortOrderInvertsResult(t *testing.T) {
	reg := tuple.NewRegistry(0)
	format, err := reg.Register([]tuple.FieldDef{{Name: "id", Type: tuple.TypeUnsigned}}, []int{0})
	require.NoError(t, err)

	kd := New([]KeyPart{{FieldNo: 0, Type: tuple.TypeUnsigned, SortOrder: -1}})
	cmp := NewComparator(nil)

	a := row(t, format, pack.Uint(1))
	b := row(t, format, pack.Uint(2))
	assert.Equal(t, 1, cmp.Compare(a, b, kd, NullDefault))
}

func TestNullOrdering(t *testing.T) {
	reg := tuple.NewRegistry(0)
	format, err := reg.Register([]tuple.FieldDef{
		{Name: "id", Type: tuple.TypeUnsigned, Nullable: true},
	}, []int{0})
	require.NoError(t, err)

	kd := New([]KeyPart{{FieldNo: 0, Type: tuple.TypeUnsigned, Nullable: true, SortOrder: 1}})
	cmp := NewComparator(nil)

	nullTuple := row(t, format, pack.Nil())
	valTuple := row(t, format, pack.Uint(5))

	assert.Equal(t, 1, cmp.Compare(nullTuple, valTuple, kd, NullDefault), "null sorts greater by default")
	assert.Equal(t, -1, cmp.Compare(nullTuple, valTuple, kd, NullEq), "NULLEQ sorts null least")
}

func TestCollationDispatch(t *testing.T) {
	reg := tuple.NewRegistry(0)
	format, err := reg.Register([]tuple.FieldDef{{Name: "name", Type: tuple.TypeString}}, []int{0})
	require.NoError(t, err)

	collations := NewRegistry()
	ciID, ok := collations.LookupByName("unicode_ci")
	require.True(t, ok)

	kd := New([]KeyPart{{FieldNo: 0, Type: tuple.TypeString, HasCollation: true, CollationID: ciID, SortOrder: 1}})
	cmp := NewComparator(collations)

	a := row(t, format, pack.Str("ABC"))
	b := row(t, format, pack.Str("abc"))
	assert.Equal(t, 0, cmp.Compare(a, b, kd, NullDefault))
}
