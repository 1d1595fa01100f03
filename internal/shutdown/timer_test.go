package shutdown

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayedRepeatableTaskFiresThenRepeats(t *testing.T) {
	task := NewDelayedRepeatableTask()
	defer task.Stop()

	var count atomic.Int32
	task.Arm(5*time.Millisecond, 10*time.Millisecond, func() {
		count.Add(1)
	})

	require.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestDelayedRepeatableTaskStopPreventsFurtherRuns(t *testing.T) {
	task := NewDelayedRepeatableTask()

	var count atomic.Int32
	task.Arm(5*time.Millisecond, 5*time.Millisecond, func() {
		count.Add(1)
	})

	require.Eventually(t, func() bool { return count.Load() >= 1 }, time.Second, time.Millisecond)
	task.Stop()
	seen := count.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, count.Load())
}

func TestDelayedRepeatableTaskReArmCancelsPrevious(t *testing.T) {
	task := NewDelayedRepeatableTask()
	defer task.Stop()

	var first, second atomic.Int32
	task.Arm(100*time.Millisecond, time.Second, func() { first.Add(1) })
	task.Arm(5*time.Millisecond, time.Second, func() { second.Add(1) })

	require.Eventually(t, func() bool { return second.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestDelayedRepeatableTaskArmed(t *testing.T) {
	task := NewDelayedRepeatableTask()
	assert.False(t, task.Armed())
	task.Arm(time.Second, time.Second, func() {})
	assert.True(t, task.Armed())
	task.Stop()
	assert.False(t, task.Armed())
}
