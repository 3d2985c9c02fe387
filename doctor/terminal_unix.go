//go:build !windows

package doctor

import (
	"os"
	"os/exec"
)

const (
	rawHookHint = "Run: sudo usermod -aG input $USER, then log in again."
	pasteHint   = "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput"
)

// resetTerminal undoes raw mode left behind by an interrupted picker.
func resetTerminal() {
	cmd := exec.Command("stty", "sane")
	cmd.Stdin = os.Stdin
	cmd.Run()
}
