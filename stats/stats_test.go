package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/keydef"
	"github.com/tarandb/tarancore/pack"
)

func testKeyDef(t *testing.T) *keydef.KeyDef {
	t.Helper()
	return keydef.New([]keydef.KeyPart{
		{FieldNo: 0, SortOrder: 1},
	})
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}

func encodeKey(t *testing.T, n int64) string {
	t.Helper()
	return hexEncode(pack.Encode(pack.Array(pack.Int(n)), nil))
}

func TestLoadParsesStatAndSamplesSortedByKey(t *testing.T) {
	kd := testKeyDef(t)
	cmp := keydef.NewComparator(keydef.NewRegistry())

	statRows := []string{"1000 50,200 unordered"}
	sampleRows := []string{
		encodeKey(t, 30) + " 1,1 10,10 9,9",
		encodeKey(t, 10) + " 1,1 2,2 1,1",
		encodeKey(t, 20) + " 1,1 6,6 5,5",
	}

	st, err := Load(statRows, sampleRows, kd, cmp)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), st.RowCount)
	assert.Equal(t, []int64{50, 200}, st.DistinctCount)
	assert.True(t, st.Unordered)
	assert.False(t, st.NoSkipScan)

	require.Len(t, st.Samples, 3)
	assert.Equal(t, uint64(10), st.Samples[0].Key.Array[0].Uint)
	assert.Equal(t, uint64(20), st.Samples[1].Key.Array[0].Uint)
	assert.Equal(t, uint64(30), st.Samples[2].Key.Array[0].Uint)
}

func TestLoadRejectsMalformedStatRow(t *testing.T) {
	kd := testKeyDef(t)
	cmp := keydef.NewComparator(keydef.NewRegistry())
	_, err := Load([]string{"not-a-number"}, nil, kd, cmp)
	assert.Error(t, err)
}

func TestStoreInstallKeepsPreviousOnNoReload(t *testing.T) {
	s := NewStore()
	first := &IndexStat{RowCount: 5}
	s.Install(1, first)

	got, ok := s.Lookup(1)
	require.True(t, ok)
	assert.Same(t, first, got)

	// A failed Load for index 2 never calls Install, so index 1's entry
	// and the absence of index 2 are both unaffected.
	_, ok = s.Lookup(2)
	assert.False(t, ok)

	second := &IndexStat{RowCount: 6}
	s.Install(1, second)
	got, ok = s.Lookup(1)
	require.True(t, ok)
	assert.Same(t, second, got)
}
