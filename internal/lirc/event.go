// Package lirc implements the remote-control client: it dials the lircd
// socket, parses its line protocol, applies repeat/debounce policy, and
// dispatches resolved key presses asynchronously (spec.md §4.6).
package lirc

import (
	"fmt"
	"strconv"
	"strings"
)

// Event is one parsed lircd protocol line: "<code> <repeats> <key_name>
// <source>", e.g. "0000000000000001 00 KEY_OK mceusb".
type Event struct {
	Code    string
	Repeats int
	KeyName string
	Source  string
}

// ParseLine parses a single lircd protocol line into an Event.
func ParseLine(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Event{}, fmt.Errorf("lirc: expected 4 fields, got %d: %q", len(fields), line)
	}
	repeats, err := strconv.ParseInt(fields[1], 16, 32)
	if err != nil {
		return Event{}, fmt.Errorf("lirc: invalid repeat count %q: %w", fields[1], err)
	}
	return Event{
		Code:    fields[0],
		Repeats: int(repeats),
		KeyName: fields[2],
		Source:  fields[3],
	}, nil
}
