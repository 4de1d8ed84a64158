package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/pack"
)

func TestScalarOfTyping(t *testing.T) {
	assert.Equal(t, pack.Nil(), scalarOf(""))
	assert.Equal(t, pack.Int(42), scalarOf("42"))
	assert.Equal(t, pack.Int(-7), scalarOf("-7"))
	assert.Equal(t, pack.Float64_(3.5), scalarOf("3.5"))
	assert.Equal(t, pack.Str("hello"), scalarOf("hello"))
	// a numeric-looking value that isn't a clean int still parses as a float
	assert.Equal(t, pack.Float64_(1e3), scalarOf("1e3"))
}

func TestParseBindFlagsRoundTrip(t *testing.T) {
	data, err := parseBindFlags([]string{"id=7", "name=alice", "score=9.5"})
	require.NoError(t, err)

	v, rest, err := pack.Decode(data)
	require.NoError(t, err)
	assert.Empty(t, rest)
	require.Equal(t, pack.KindArray, v.Kind)
	require.Len(t, v.Array, 3)

	got := map[string]pack.Value{}
	for _, entry := range v.Array {
		require.Equal(t, pack.KindMap, entry.Kind)
		require.Len(t, entry.Map, 1)
		got[entry.Map[0].Key.Str] = entry.Map[0].Val
	}
	assert.Equal(t, pack.Uint(7), got["id"])
	assert.Equal(t, pack.Str("alice"), got["name"])
	assert.Equal(t, pack.Float64_(9.5), got["score"])
}

func TestParseBindFlagsMalformed(t *testing.T) {
	_, err := parseBindFlags([]string{"noequalsign"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "noequalsign")
}

func TestParseBindFlagsEmpty(t *testing.T) {
	data, err := parseBindFlags(nil)
	require.NoError(t, err)

	v, _, err := pack.Decode(data)
	require.NoError(t, err)
	require.Equal(t, pack.KindArray, v.Kind)
	assert.Empty(t, v.Array)
}
