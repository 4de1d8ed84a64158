package rowio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/merger"
	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/vm"
)

func TestWriterDumpSelectEnvelopeRoundTrips(t *testing.T) {
	w := NewWriter()
	tuples := []pack.Value{pack.Array(pack.Uint(1)), pack.Array(pack.Uint(2))}

	require.NoError(t, w.Dump(merger.EnvelopeSelect, tuples))

	r := NewReader(w.Bytes())
	got, err := r.Unwrap(merger.EnvelopeSelect)
	require.NoError(t, err)
	assert.Equal(t, tuples, got)
	assert.Empty(t, r.Remaining(), "a full single-envelope buffer is fully consumed")
}

func TestWriterDumpReservesExactSize(t *testing.T) {
	w := NewWriter()
	tuples := []pack.Value{pack.Array(pack.Str("hello"))}
	require.NoError(t, w.Dump(merger.EnvelopeRaw, tuples))

	wrapped := pack.Array(tuples...)
	assert.Len(t, w.Bytes(), pack.SizeOf(wrapped))
}

func TestReaderUnwrapLeavesRposOnError(t *testing.T) {
	// A map missing RESULT_KEY is not a valid select envelope.
	bad := pack.Encode(pack.Map(pack.MapEntry{Key: pack.Str("nope"), Val: pack.Array()}), nil)
	r := NewReader(bad)

	_, err := r.Unwrap(merger.EnvelopeSelect)
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.ErrClient))
	assert.Equal(t, 0, r.rpos, "a failed unwrap must not advance rpos")
}

func TestReaderUnwrapSequentialEnvelopes(t *testing.T) {
	w := NewWriter()
	first := []pack.Value{pack.Array(pack.Uint(1))}
	second := []pack.Value{pack.Array(pack.Uint(2)), pack.Array(pack.Uint(3))}
	require.NoError(t, w.Dump(merger.EnvelopeSelect, first))
	require.NoError(t, w.Dump(merger.EnvelopeSelect, second))

	r := NewReader(w.Bytes())
	got1, err := r.Unwrap(merger.EnvelopeSelect)
	require.NoError(t, err)
	assert.Equal(t, first, got1)

	got2, err := r.Unwrap(merger.EnvelopeSelect)
	require.NoError(t, err)
	assert.Equal(t, second, got2)
	assert.Empty(t, r.Remaining())
}

func TestWriteQueryResultShapesMetadataAndData(t *testing.T) {
	w := NewWriter()
	cols := []ColumnMeta{{Name: "id", Type: "integer"}, {Name: "name", Type: "text"}}
	rows := [][]vm.Value{
		{vm.Int64(1), vm.Str("a")},
		{vm.Int64(2), vm.Str("b")},
	}
	require.NoError(t, WriteQueryResult(w, cols, rows))

	decoded, rest, err := pack.Decode(w.Bytes())
	require.NoError(t, err)
	assert.Empty(t, rest)
	require.Equal(t, pack.KindMap, decoded.Kind)
	require.Len(t, decoded.Map, 2)

	var metadata, data pack.Value
	for _, e := range decoded.Map {
		switch e.Key.Uint {
		case keyMetadata:
			metadata = e.Val
		case keyData:
			data = e.Val
		}
	}
	require.Len(t, metadata.Array, 2)
	require.Len(t, data.Array, 2)
	assert.Equal(t, uint64(1), data.Array[0].Array[0].Uint)
}

func TestWriteMutationResultWithAutoinc(t *testing.T) {
	w := NewWriter()
	require.NoError(t, WriteMutationResultWithAutoinc(w, 3, []int64{10, 11, 12}))

	decoded, _, err := pack.Decode(w.Bytes())
	require.NoError(t, err)
	require.Len(t, decoded.Map, 1)
	info := decoded.Map[0].Val
	require.Len(t, info.Map, 2)
	assert.Equal(t, uint64(3), info.Map[0].Val.Uint)
	require.Len(t, info.Map[1].Val.Array, 3)
}
