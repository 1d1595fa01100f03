// Command frontend-dbus-send is a thin CLI wrapper that calls a method
// on the running yavdr-frontend daemon's public D-Bus interface,
// mirroring frontend_dbus_send.py.
package main

import (
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
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: frontend-dbus-send <method> [args...]")
	}
	method, methodArgs := args[0], args[1:]

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("connecting to session bus: %w", err)
	}
	defer conn.Close()

	call := make([]interface{}, len(methodArgs))
	for i, a := range methodArgs {
		call[i] = a
	}

	obj := conn.Object(busName, objectPath)
	ret := obj.Call(ifaceName+"."+method, 0, call...)
	if ret.Err != nil {
		return fmt.Errorf("calling %s: %w", method, ret.Err)
	}
	for _, v := range ret.Body {
		fmt.Println(v)
	}
	return nil
}
