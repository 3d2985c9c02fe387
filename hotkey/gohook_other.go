//go:build !linux

package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// libuiohook virtual key codes.
var uiohookKeys = map[uint16]Key{
	0x001D: Ctrl, 0x0E1D: Ctrl,
	0x002A: Shift, 0x0036: Shift,
	0x0038: Alt, 0x0E38: Alt,
	0x0E5B: Super, 0x0E5C: Super,
	0x0039: Space,
}

type hookSource struct {
	once sync.Once
}

// NewRaw returns a Source backed by a global keyboard hook (libuiohook).
// On macOS the process needs the Accessibility permission.
func NewRaw() Source {
	return &hookSource{}
}

func (s *hookSource) Start(handle func(Event)) error {
	events := hook.Start()
	go func() {
		for ev := range events {
			var down bool
			switch ev.Kind {
			case hook.KeyHold:
				down = true
			case hook.KeyUp:
			default:
				continue
			}
			key, ok := uiohookKeys[ev.Keycode]
			if !ok {
				if key, ok = letterCodes[ev.Keycode]; !ok {
					continue
				}
			}
			handle(Event{Key: key, Code: ev.Keycode, Down: down})
		}
	}()
	return nil
}

func (s *hookSource) Close() {
	s.once.Do(func() {
		hook.End()
	})
}

func Diagnose() (string, error) {
	return "global keyboard hook available (libuiohook)", nil
}
