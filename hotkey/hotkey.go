package hotkey

import (
	"fmt"
	"slices"
	"strings"
)

// Key is a logical key. Several physical keys may map to one Key
// (left and right Ctrl are both "ctrl").
type Key string

const (
	Ctrl  Key = "ctrl"
	Shift Key = "shift"
	Alt   Key = "alt"
	Super Key = "super"
	Space Key = "space"
)

// Event is one raw key transition. Code identifies the physical key in
// the source's own code space.
type Event struct {
	Key  Key
	Code uint16
	Down bool
}

type Request int

const (
	StartRequested Request = iota + 1
	StopRequested
)

func (r Request) String() string {
	switch r {
	case StartRequested:
		return "start"
	case StopRequested:
		return "stop"
	}
	return "unknown"
}

// Source delivers raw key events to handle until Close. handle may be
// called from several goroutines.
type Source interface {
	Start(handle func(Event)) error
	Close()
}

// Combo is the set of logical keys that must all be held.
type Combo []Key

var aliases = map[string]Key{
	"ctrl":    Ctrl,
	"control": Ctrl,
	"shift":   Shift,
	"alt":     Alt,
	"option":  Alt,
	"super":   Super,
	"win":     Super,
	"cmd":     Super,
	"command": Super,
	"meta":    Super,
	"space":   Space,
}

// ParseCombo parses "ctrl+super" style strings. Letters a-z are accepted
// as keys too.
func ParseCombo(s string) (Combo, error) {
	var c Combo
	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, ok := aliases[part]
		if !ok {
			if len(part) != 1 || part[0] < 'a' || part[0] > 'z' {
				return nil, fmt.Errorf("unknown key %q in hotkey %q", part, s)
			}
			k = Key(part)
		}
		if !slices.Contains(c, k) {
			c = append(c, k)
		}
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("empty hotkey %q", s)
	}
	return c, nil
}

func (c Combo) String() string {
	parts := make([]string, len(c))
	for i, k := range c {
		parts[i] = string(k)
	}
	return strings.Join(parts, "+")
}

func (c Combo) Contains(k Key) bool { return slices.Contains(c, k) }

func isModifier(k Key) bool {
	switch k {
	case Ctrl, Shift, Alt, Super:
		return true
	}
	return false
}

// letterCodes holds the set-1 scancodes shared by evdev and libuiohook.
var letterCodes = map[uint16]Key{
	16: "q", 17: "w", 18: "e", 19: "r", 20: "t", 21: "y", 22: "u", 23: "i", 24: "o", 25: "p",
	30: "a", 31: "s", 32: "d", 33: "f", 34: "g", 35: "h", 36: "j", 37: "k", 38: "l",
	44: "z", 45: "x", 46: "c", 47: "v", 48: "b", 49: "n", 50: "m",
}
