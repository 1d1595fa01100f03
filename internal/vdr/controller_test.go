package vdr

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTypeString(t *testing.T) {
	assert.Equal(t, "manual", StartManual.String())
	assert.Equal(t, "vdr-wakeup", StartVDRWakeup.String())
	assert.Equal(t, "other-wakeup", StartOtherWakeup.String())
	assert.Equal(t, "unknown", StartUnknown.String())
}

func writeTimestamp(t *testing.T, ts int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wakeup_ts")
	require.NoError(t, os.WriteFile(path, []byte(strconv.FormatInt(ts, 10)), 0o644))
	return path
}

func TestClassifyFromTimestampFileWithinDelta(t *testing.T) {
	path := writeTimestamp(t, time.Now().Unix()-60)
	assert.Equal(t, StartVDRWakeup, classifyFromTimestampFile(path, 120))
}

func TestClassifyFromTimestampFileBeyondDeltaFallsBack(t *testing.T) {
	path := writeTimestamp(t, time.Now().Unix()-10_000)
	assert.Equal(t, StartOtherWakeup, classifyFromTimestampFile(path, 120))
}

func TestClassifyFromTimestampFileMissingFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist")
	assert.Equal(t, StartOtherWakeup, classifyFromTimestampFile(path, 120))
}

func TestClassifyFromTimestampFileGarbageFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wakeup_ts")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))
	assert.Equal(t, StartOtherWakeup, classifyFromTimestampFile(path, 120))
}

func TestControllerResetRewindsState(t *testing.T) {
	c := &Controller{state: StateRegular}
	assert.Equal(t, StateRegular, c.State())
	c.Reset()
	assert.Equal(t, StatePrepare, c.State())
}
