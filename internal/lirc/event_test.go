package lirc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	e, err := ParseLine("0000000000000001 00 KEY_OK mceusb")
	require.NoError(t, err)
	assert.Equal(t, "0000000000000001", e.Code)
	assert.Equal(t, 0, e.Repeats)
	assert.Equal(t, "KEY_OK", e.KeyName)
	assert.Equal(t, "mceusb", e.Source)
}

func TestParseLineRepeatCountIsHex(t *testing.T) {
	e, err := ParseLine("0000000000000001 0a KEY_OK mceusb")
	require.NoError(t, err)
	assert.Equal(t, 10, e.Repeats)
}

func TestParseLineWrongFieldCount(t *testing.T) {
	_, err := ParseLine("only two fields")
	require.Error(t, err)
}

func TestParseLineBadRepeatCount(t *testing.T) {
	_, err := ParseLine("code zz KEY_OK mceusb")
	require.Error(t, err)
}
