// Command start-desktop calls the daemon's StartDesktop method for a
// single named application, mirroring start_desktop.py. It is the
// script desktop entries invoke.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	busName    = "de.yavdr.frontend"
	objectPath = dbus.ObjectPath("/Controller")
	ifaceName  = "de.yavdr.frontend.Controller"
)

func main() {
	flag.Parse()
	appName := flag.Arg(0)
	if appName == "" {
		fmt.Fprintln(os.Stderr, "usage: start-desktop <app-name>")
		os.Exit(1)
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		fmt.Fprintln(os.Stderr, "connecting to session bus:", err)
		os.Exit(1)
	}
	defer conn.Close()

	var result string
	obj := conn.Object(busName, objectPath)
	if err := obj.Call(ifaceName+".StartDesktop", 0, appName).Store(&result); err != nil {
		fmt.Fprintln(os.Stderr, "start_desktop failed:", err)
		os.Exit(1)
	}
	fmt.Println(result)
}
