package oem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	cp, err := Lookup(437)
	require.NoError(t, err)
	assert.Equal(t, 437, cp.ID())
	assert.Equal(t, "CP437", cp.String())

	_, err = Lookup(1)
	require.Error(t, err)
}

func TestUpper(t *testing.T) {
	cp := MustLookup(437)
	assert.Equal(t, byte('A'), cp.Upper('a'))
	assert.Equal(t, byte('Z'), cp.Upper('z'))
	assert.Equal(t, byte('~'), cp.Upper('~'))
	// é (0x82) folds to É (0x90) in CP437.
	assert.Equal(t, byte(0x90), cp.Upper(0x82))
	// ä (0x84) folds to Ä (0x8E).
	assert.Equal(t, byte(0x8e), cp.Upper(0x84))

	cyr := MustLookup(866)
	// а (0xA0) folds to А (0x80) in CP866.
	assert.Equal(t, byte(0x80), cyr.Upper(0xa0))
}

func TestEncodeDecode(t *testing.T) {
	cp := MustLookup(437)

	got, ok := cp.Encode("café.txt")
	require.True(t, ok)
	assert.Equal(t, "caf\x82.txt", got)
	assert.Equal(t, "café.txt", cp.Decode(got))

	// Decomposed e + combining acute normalizes to the same byte.
	got, ok = cp.Encode("café.txt")
	require.True(t, ok)
	assert.Equal(t, "caf\x82.txt", got)

	got, ok = cp.Encode("日本.txt")
	assert.False(t, ok)
	assert.Equal(t, "__.txt", got)

	assert.Equal(t, "PLAIN", cp.Decode("PLAIN"))
}
