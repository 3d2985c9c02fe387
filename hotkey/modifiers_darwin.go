//go:build darwin

package hotkey

import xhotkey "golang.design/x/hotkey"

var modifiers = map[Key]xhotkey.Modifier{
	Ctrl:  xhotkey.ModCtrl,
	Shift: xhotkey.ModShift,
	Alt:   xhotkey.ModOption,
	Super: xhotkey.ModCmd,
}
