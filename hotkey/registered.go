//go:build darwin || windows

package hotkey

import (
	"fmt"

	xhotkey "golang.design/x/hotkey"
)

var triggerKeys = map[Key]xhotkey.Key{
	Space: xhotkey.KeySpace,
	"a": xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC, "d": xhotkey.KeyD,
	"e": xhotkey.KeyE, "f": xhotkey.KeyF, "g": xhotkey.KeyG, "h": xhotkey.KeyH,
	"i": xhotkey.KeyI, "j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO, "p": xhotkey.KeyP,
	"q": xhotkey.KeyQ, "r": xhotkey.KeyR, "s": xhotkey.KeyS, "t": xhotkey.KeyT,
	"u": xhotkey.KeyU, "v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,
}

// registeredSource uses the OS hotkey registration API. It cannot observe
// individual keys, so keydown is reported as every combo key pressed and
// keyup as every combo key released.
type registeredSource struct {
	combo Combo
	hk    *xhotkey.Hotkey
	stop  chan struct{}
}

// NewRegistered builds a Source for combos with exactly one non-modifier
// key, e.g. ctrl+shift+space.
func NewRegistered(c Combo) (Source, error) {
	var mods []xhotkey.Modifier
	var trigger xhotkey.Key
	triggers := 0
	for _, k := range c {
		if isModifier(k) {
			mods = append(mods, modifiers[k])
			continue
		}
		tk, ok := triggerKeys[k]
		if !ok {
			return nil, fmt.Errorf("key %q cannot be registered", k)
		}
		trigger = tk
		triggers++
	}
	if triggers != 1 {
		return nil, fmt.Errorf("registered hotkey %q needs exactly one non-modifier key", c)
	}
	return &registeredSource{combo: c, hk: xhotkey.New(mods, trigger)}, nil
}

func (s *registeredSource) Start(handle func(Event)) error {
	if err := s.hk.Register(); err != nil {
		return err
	}
	s.stop = make(chan struct{})
	go func() {
		for {
			select {
			case <-s.stop:
				return
			case <-s.hk.Keydown():
				for _, k := range s.combo {
					handle(Event{Key: k, Down: true})
				}
			case <-s.hk.Keyup():
				for i := len(s.combo) - 1; i >= 0; i-- {
					handle(Event{Key: s.combo[i]})
				}
			}
		}
	}()
	return nil
}

func (s *registeredSource) Close() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.hk.Unregister()
}
