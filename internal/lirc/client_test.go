package lirc

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(minDelay time.Duration, ignoreCoffee bool, onKey func(string)) *Client {
	return NewClient(hclog.NewNullLogger(), "/nonexistent", minDelay, ignoreCoffee, onKey)
}

func TestClientHandleDispatchesFirstPress(t *testing.T) {
	fired := make(chan string, 1)
	c := newTestClient(100*time.Millisecond, false, func(k string) { fired <- k })

	c.handle(Event{KeyName: "KEY_OK", Repeats: 0})

	select {
	case k := <-fired:
		assert.Equal(t, "KEY_OK", k)
	case <-time.After(time.Second):
		t.Fatal("expected dispatch")
	}
}

func TestClientHandleDebouncesFastRepeats(t *testing.T) {
	var count int
	done := make(chan struct{}, 10)
	c := newTestClient(200*time.Millisecond, false, func(k string) {
		count++
		done <- struct{}{}
	})

	c.handle(Event{KeyName: "KEY_OK", Repeats: 0})
	c.handle(Event{KeyName: "KEY_OK", Repeats: 1})
	c.handle(Event{KeyName: "KEY_OK", Repeats: 2})

	require.Eventually(t, func() bool { return len(done) >= 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, count)
}

func TestClientHandleIgnoresKeyCoffeeWhenConfigured(t *testing.T) {
	fired := false
	c := newTestClient(time.Millisecond, true, func(k string) { fired = true })
	c.handle(Event{KeyName: "KEY_COFFEE", Repeats: 0})
	time.Sleep(20 * time.Millisecond)
	assert.False(t, fired)
}

func TestClientHandleAllowsRepeatAfterMinDelay(t *testing.T) {
	var count int
	done := make(chan struct{}, 10)
	c := newTestClient(5*time.Millisecond, false, func(k string) {
		count++
		done <- struct{}{}
	})

	c.handle(Event{KeyName: "KEY_OK", Repeats: 0})
	require.Eventually(t, func() bool { return len(done) >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	c.handle(Event{KeyName: "KEY_OK", Repeats: 1})
	require.Eventually(t, func() bool { return len(done) >= 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 2, count)
}
