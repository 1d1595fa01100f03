package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecond2Screen(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{":0", ":0.1"},
		{":0.0", ":0.1"},
		{":0.1", ":0.0"},
		{"foo:1", "foo:1.1"},
	}
	for _, tc := range cases {
		got, err := Second2Screen(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestSecond2ScreenInvalid(t *testing.T) {
	_, err := Second2Screen("not-a-display")
	assert.Error(t, err)
}

func TestDisplayRE(t *testing.T) {
	assert.True(t, DisplayRE.MatchString(":0"))
	assert.True(t, DisplayRE.MatchString(":0.1"))
	assert.True(t, DisplayRE.MatchString("foo:1"))
	assert.False(t, DisplayRE.MatchString("not-a-display"))
}
