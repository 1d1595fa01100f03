package drm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFacts(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "drm.fact")
	require.NoError(t, os.WriteFile(p, []byte(`{"connectors":[{"name":"HDMI-A-1","card":"card0"}]}`), 0o644))

	facts, err := LoadFacts(p)
	require.NoError(t, err)
	require.Len(t, facts.Connectors, 1)

	c, ok := facts.ByName("HDMI-A-1")
	require.True(t, ok)
	assert.Equal(t, "card0", c.Card)

	_, ok = facts.ByName("DP-1")
	assert.False(t, ok)
}

func TestLoadFactsMissingFile(t *testing.T) {
	_, err := LoadFacts("/nonexistent/drm.fact")
	require.Error(t, err)
}

func TestNewHandlerDefaultsPollInterval(t *testing.T) {
	h := NewHandler(hclog.NewNullLogger(), 0)
	assert.Equal(t, 2*time.Second, h.pollInterval)
}
