package vdrbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher() *StatusWatcher {
	return &StatusWatcher{
		log:     hclog.NewNullLogger(),
		signals: make(chan *dbus.Signal, 4),
		updates: make(chan VDRState, 1),
	}
}

func TestStatusWatcherHandleReady(t *testing.T) {
	w := newTestWatcher()
	w.handle(&dbus.Signal{Name: ifaceStatus + ".Ready"})
	select {
	case got := <-w.updates:
		assert.Equal(t, VDRRunning, got)
	default:
		t.Fatal("expected an update")
	}
}

func TestStatusWatcherHandleStop(t *testing.T) {
	w := newTestWatcher()
	w.handle(&dbus.Signal{Name: ifaceStatus + ".Stop"})
	require.Len(t, w.updates, 1)
	assert.Equal(t, VDRStopping, <-w.updates)
}

func TestStatusWatcherHandleNameOwnerChangedToEmpty(t *testing.T) {
	w := newTestWatcher()
	w.handle(&dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []interface{}{busName, "old-owner", ""},
	})
	require.Len(t, w.updates, 1)
	assert.Equal(t, VDRAbsent, <-w.updates)
}

func TestStatusWatcherHandleNameOwnerChangedToNonEmptyIgnored(t *testing.T) {
	w := newTestWatcher()
	w.handle(&dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []interface{}{busName, "", "new-owner"},
	})
	assert.Len(t, w.updates, 0)
}

func TestStatusWatcherPublishDropsStaleState(t *testing.T) {
	w := newTestWatcher()
	w.publish(VDRRunning)
	w.publish(VDRStopping)
	require.Len(t, w.updates, 1)
	assert.Equal(t, VDRStopping, <-w.updates)
}

func TestVDRStateString(t *testing.T) {
	assert.Equal(t, "absent", VDRAbsent.String())
	assert.Equal(t, "stopping", VDRStopping.String())
	assert.Equal(t, "running", VDRRunning.String())
}
