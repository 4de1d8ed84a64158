package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v Value) {
	t.Helper()
	buf := Encode(v, nil)
	assert.Equal(t, len(buf), SizeOf(v), "size_of must match encoded length")

	got, rest, err := Decode(buf)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.True(t, Equal(v, got), "decode(encode(v)) must equal v")
}

func TestCodecRoundTrip(t *testing.T) {
	cases := []Value{
		Nil(),
		Bool_(true),
		Bool_(false),
		Uint(0),
		Uint(127),
		Uint(128),
		Uint(65535),
		Uint(1 << 40),
		Int(-1),
		Int(-32),
		Int(-33),
		Int(-1 << 40),
		Float32_(1.5),
		Float64_(3.14159),
		Str(""),
		Str("hello world"),
		Bin([]byte{1, 2, 3, 4}),
		Array(Uint(1), Uint(2), Str("x")),
		Map(MapEntry{Key: Str("a"), Val: Uint(1)}, MapEntry{Key: Str("b"), Val: Nil()}),
		ExtVal(3, []byte{0xde, 0xad, 0xbe, 0xef}),
	}
	for _, c := range cases {
		roundTrip(t, c)
	}
}

func TestCanonicalWidths(t *testing.T) {
	// Non-negative ints encode as unsigned, not signed.
	buf := Encode(Int(5), nil)
	assert.Equal(t, byte(5), buf[0])

	// Smallest-width string length prefix.
	buf = Encode(Str("x"), nil)
	assert.Equal(t, byte(tagFixstrMask|1), buf[0])
}

func TestTruncatedIsError(t *testing.T) {
	full := Encode(Array(Uint(1), Uint(2), Uint(3)), nil)
	for n := 0; n < len(full); n++ {
		_, _, err := Decode(full[:n])
		require.Error(t, err, "truncated input at %d bytes must error", n)
	}
}

func TestSkipAdvancesPastValue(t *testing.T) {
	buf := Encode(Array(Uint(1), Str("x")), nil)
	buf = append(buf, Encode(Uint(42), nil)...)

	rest, err := Skip(buf)
	require.NoError(t, err)
	v, rest2, err := Decode(rest)
	require.NoError(t, err)
	assert.Empty(t, rest2)
	assert.Equal(t, uint64(42), v.Uint)
}

func TestDecodeArrayHeaderLeavesElementsEncoded(t *testing.T) {
	buf := Encode(Array(Uint(10), Uint(20)), nil)
	n, rest, err := DecodeArrayHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, rest, err := Decode(rest)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), first.Uint)
	second, rest, err := Decode(rest)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), second.Uint)
	assert.Empty(t, rest)
}

func TestUnexpectedType(t *testing.T) {
	buf := Encode(Str("x"), nil)
	_, _, err := DecodeUint(buf)
	assert.ErrorIs(t, err, ErrUnexpectedType)
}
