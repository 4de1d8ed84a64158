package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/keydef"
	"github.com/tarandb/tarancore/pack"
	"github.com/tarandb/tarancore/tuple"
)

func testFormat(t *testing.T) *tuple.Format {
	t.Helper()
	reg := tuple.NewRegistry(0)
	f, err := reg.Register([]tuple.FieldDef{{Name: "id", Type: tuple.TypeInteger}}, []int{0})
	require.NoError(t, err)
	return f
}

func makeTuple(t *testing.T, format *tuple.Format, n int64) *tuple.Tuple {
	t.Helper()
	data := pack.Encode(pack.Array(pack.Int(n)), nil)
	tp, err := tuple.New(format, data)
	require.NoError(t, err)
	return tp
}

func idsOf(t *testing.T, tuples []*tuple.Tuple) []int64 {
	t.Helper()
	out := make([]int64, len(tuples))
	for i, tp := range tuples {
		v, ok := tp.Field(0)
		require.True(t, ok)
		if v.Kind == pack.KindUint {
			out[i] = int64(v.Uint)
		} else {
			out[i] = v.Int
		}
	}
	return out
}

func newMerger(t *testing.T) *Merger {
	t.Helper()
	kd := keydef.New([]keydef.KeyPart{{FieldNo: 0, SortOrder: 1}})
	cmp := keydef.NewComparator(keydef.NewRegistry())
	return New(kd, cmp)
}

// TestSingleSourceBufferMerge covers scenario S1: a single buffer
// source under the select envelope containing [[1],[2],[3]], ascending.
func TestSingleSourceBufferMerge(t *testing.T) {
	format := testFormat(t)
	m := newMerger(t)
	src := NewSource(0, nil, []*tuple.Tuple{
		makeTuple(t, format, 1),
		makeTuple(t, format, 2),
		makeTuple(t, format, 3),
	})

	out, err := m.Select([]*Source{src}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, idsOf(t, out))
}

// TestTwoSourceDescendingMerge covers scenario S2: a buffer source and
// a table source, each pre-sorted descending (the merge direction the
// caller requests), merged into one descending stream.
func TestTwoSourceDescendingMerge(t *testing.T) {
	format := testFormat(t)
	m := newMerger(t)
	buffer := NewSource(0, nil, []*tuple.Tuple{
		makeTuple(t, format, 5), makeTuple(t, format, 2),
	})
	table := NewSource(1, nil, []*tuple.Tuple{
		makeTuple(t, format, 4), makeTuple(t, format, 1),
	})

	out, err := m.Select([]*Source{buffer, table}, Options{Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 2, 1}, idsOf(t, out))
}

// TestFetchOnDrainInvokedExactlyThreeTimes covers scenario S3: a source
// that starts out empty, with fetch_source producing [[1]] then [[2]]
// then nil, for exactly 3 callback invocations.
func TestFetchOnDrainInvokedExactlyThreeTimes(t *testing.T) {
	format := testFormat(t)
	m := newMerger(t)

	batches := [][]*tuple.Tuple{
		{makeTuple(t, format, 1)},
		{makeTuple(t, format, 2)},
	}
	calls := 0
	fetch := func(desc any, last *tuple.Tuple, processed int) ([]*tuple.Tuple, bool) {
		calls++
		if len(batches) == 0 {
			return nil, false
		}
		next := batches[0]
		batches = batches[1:]
		return next, true
	}

	src := NewSource(0, "only-source", nil)
	out, err := m.Select([]*Source{src}, Options{FetchSource: fetch})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, idsOf(t, out))
	assert.Equal(t, 3, calls, "fetch_source is invoked once per exhaustion, including the final confirming call")
}

// TestMergeStabilityWithinAndAcrossSources covers property 5: duplicate
// keys preserve each source's input order, and cross-source ties break
// by source ordinal (insertion order).
func TestMergeStabilityWithinAndAcrossSources(t *testing.T) {
	format := testFormat(t)
	m := newMerger(t)

	// Two sources both holding key "1": source 0's copy must precede
	// source 1's copy in the output.
	a := NewSource(0, "a", []*tuple.Tuple{makeTuple(t, format, 1), makeTuple(t, format, 2)})
	b := NewSource(1, "b", []*tuple.Tuple{makeTuple(t, format, 1), makeTuple(t, format, 2)})

	out, err := m.Select([]*Source{a, b}, Options{})
	require.NoError(t, err)
	require.Len(t, out, 4)

	ids := idsOf(t, out)
	assert.Equal(t, []int64{1, 1, 2, 2}, ids)

	// The first "1" in the output must be source a's tuple (lower
	// ordinal), the second source b's.
	assert.Same(t, a.data[0], out[0])
	assert.Same(t, b.data[0], out[1])
	assert.Same(t, a.data[1], out[2])
	assert.Same(t, b.data[1], out[3])
}

// TestChainedMergerClosure covers property 6: the output envelope of one
// merger is a valid input envelope for another.
func TestChainedMergerClosure(t *testing.T) {
	format := testFormat(t)
	m1 := newMerger(t)

	a := NewSource(0, nil, []*tuple.Tuple{makeTuple(t, format, 1), makeTuple(t, format, 4)})
	b := NewSource(1, nil, []*tuple.Tuple{makeTuple(t, format, 2), makeTuple(t, format, 3)})
	firstPass, err := m1.Select([]*Source{a, b}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, idsOf(t, firstPass))

	wire := EncodeEnvelope(EnvelopeSelect, ToPackValues(firstPass))

	decoded, err := DecodeEnvelope(EnvelopeSelect, wire)
	require.NoError(t, err)
	rebuilt, err := ToTuples(decoded, format)
	require.NoError(t, err)

	m2 := newMerger(t)
	c := NewSource(0, nil, []*tuple.Tuple{makeTuple(t, format, 0), makeTuple(t, format, 5)})
	d := NewSource(1, nil, rebuilt)
	secondPass, err := m2.Select([]*Source{c, d}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5}, idsOf(t, secondPass))
}

// TestEnvelopeCallAndChainUnwrapExtraLayers checks the call and chain
// envelope shapes unwrap the documented number of extra array layers.
func TestEnvelopeCallAndChainUnwrapExtraLayers(t *testing.T) {
	rows := []pack.Value{pack.Array(pack.Uint(1)), pack.Array(pack.Uint(2))}

	callWire := EncodeEnvelope(EnvelopeCall, rows)
	got, err := DecodeEnvelope(EnvelopeCall, callWire)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	chainWire := EncodeEnvelope(EnvelopeChain, rows)
	got, err = DecodeEnvelope(EnvelopeChain, chainWire)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

// TestDecodeEnvelopeRejectsMissingResultKey exercises the error path a
// malformed select/call/chain envelope must take.
func TestDecodeEnvelopeRejectsMissingResultKey(t *testing.T) {
	wire := pack.Encode(pack.Map(pack.MapEntry{Key: pack.Str("WRONG_KEY"), Val: pack.Array()}), nil)
	_, err := DecodeEnvelope(EnvelopeSelect, wire)
	assert.Error(t, err)
}
