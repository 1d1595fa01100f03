// Command run-desktop calls the daemon's SwitchTo method for a single
// named application and waits for it to report running, mirroring
// run_desktop.py's blocking desktop-session launcher.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	busName    = "de.yavdr.frontend"
	objectPath = dbus.ObjectPath("/Controller")
	ifaceName  = "de.yavdr.frontend.Controller"
	pollEvery  = 500 * time.Millisecond
	waitFor    = 30 * time.Second
)

func main() {
	flag.Parse()
	name := flag.Arg(0)
	if name == "" {
		fmt.Fprintln(os.Stderr, "usage: run-desktop <frontend-name>")
		os.Exit(1)
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		fmt.Fprintln(os.Stderr, "connecting to session bus:", err)
		os.Exit(1)
	}
	defer conn.Close()

	obj := conn.Object(busName, objectPath)
	if call := obj.Call(ifaceName+".SwitchTo", 0, name); call.Err != nil {
		fmt.Fprintln(os.Stderr, "switchto failed:", call.Err)
		os.Exit(1)
	}

	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		var current string
		if err := obj.Call("org.freedesktop.DBus.Properties.Get", 0, ifaceName, "CurrentFrontend").Store(&current); err == nil && current == name {
			return
		}
		time.Sleep(pollEvery)
	}
	fmt.Fprintln(os.Stderr, "timed out waiting for", name, "to become current")
	os.Exit(1)
}
