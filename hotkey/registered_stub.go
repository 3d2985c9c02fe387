//go:build !linux && !darwin && !windows

package hotkey

import "errors"

func NewRegistered(Combo) (Source, error) {
	return nil, errors.New("registered hotkeys are not supported on this platform, use hook=raw")
}
