package tuple

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/pack"
)

func testFormat(t *testing.T) *Format {
	t.Helper()
	reg := NewRegistry(0)
	f, err := reg.Register([]FieldDef{
		{Name: "id", Type: TypeUnsigned},
		{Name: "name", Type: TypeString},
		{Name: "note", Type: TypeString, Nullable: true, Optional: true},
	}, []int{0, 1})
	require.NoError(t, err)
	return f
}

func encodeRow(vals ...pack.Value) []byte {
	return pack.Encode(pack.Array(vals...), nil)
}

func TestNewAndFieldAccess(t *testing.T) {
	f := testFormat(t)
	data := encodeRow(pack.Uint(7), pack.Str("alice"))
	tp, err := New(f, data)
	require.NoError(t, err)

	v, ok := tp.Field(0)
	require.True(t, ok)
	assert.Equal(t, uint64(7), v.Uint)

	v, ok = tp.Field(1)
	require.True(t, ok)
	assert.Equal(t, "alice", v.Str)

	_, ok = tp.Field(2)
	assert.False(t, ok, "absent optional trailing field reports not-ok")
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	f := testFormat(t)
	data := encodeRow(pack.Uint(7))
	_, err := New(f, data)
	assert.Error(t, err)
}

func TestValidateRejectsWrongType(t *testing.T) {
	f := testFormat(t)
	data := encodeRow(pack.Str("not-a-uint"), pack.Str("alice"))
	_, err := New(f, data)
	assert.Error(t, err)
}

func TestRefcountSoundness(t *testing.T) {
	f := testFormat(t)
	data := encodeRow(pack.Uint(1), pack.Str("x"))
	tp, err := New(f, data)
	require.NoError(t, err)

	assert.Equal(t, int64(0), tp.Refcount())
	tp.Ref()
	tp.Ref()
	tp.Ref()
	assert.Equal(t, int64(3), tp.Refcount())
	tp.Unref()
	assert.Equal(t, int64(2), tp.Refcount())
	tp.Unref()
	tp.Unref()
	assert.Equal(t, int64(0), tp.Refcount())
}

func TestRefcountPromotion(t *testing.T) {
	f := testFormat(t)
	data := encodeRow(pack.Uint(1), pack.Str("x"))
	tp, err := New(f, data)
	require.NoError(t, err)

	for i := 0; i < inlineRefMax+10; i++ {
		tp.Ref()
	}
	assert.Equal(t, int64(inlineRefMax+10), tp.Refcount())
	for i := 0; i < inlineRefMax+10; i++ {
		tp.Unref()
	}
	assert.Equal(t, int64(0), tp.Refcount())
}

func TestFormatRegistryInterning(t *testing.T) {
	reg := NewRegistry(0)
	fields := []FieldDef{{Name: "a", Type: TypeUnsigned}}
	f1, err := reg.Register(fields, nil)
	require.NoError(t, err)
	f2, err := reg.Register(fields, nil)
	require.NoError(t, err)
	assert.Same(t, f1, f2, "structurally identical formats must intern to the same pointer")
	assert.Equal(t, int64(2), f1.Refcount())
}

func TestFormatIDReuseAfterFullRelease(t *testing.T) {
	reg := NewRegistry(0)
	f1, err := reg.Register([]FieldDef{{Name: "a", Type: TypeUnsigned}}, nil)
	require.NoError(t, err)
	id := f1.ID()
	f1.Unref()

	_, ok := reg.ByID(id)
	assert.False(t, ok)

	f2, err := reg.Register([]FieldDef{{Name: "b", Type: TypeString}}, nil)
	require.NoError(t, err)
	assert.Equal(t, id, f2.ID(), "freed ids are reused")
}

func TestFieldByPath(t *testing.T) {
	reg := NewRegistry(0)
	f, err := reg.Register([]FieldDef{{Name: "doc", Type: TypeMap}}, nil)
	require.NoError(t, err)

	doc := pack.Map(
		pack.MapEntry{Key: pack.Str("a"), Val: pack.Array(pack.Uint(1), pack.Uint(2))},
	)
	data := encodeRow(doc)
	tp, err := New(f, data)
	require.NoError(t, err)

	v, ok := tp.FieldByPath(0, []JSONPathElem{{Key: "a"}, {IsIndex: true, Index: 1}})
	require.True(t, ok)
	assert.Equal(t, uint64(2), v.Uint)
}
