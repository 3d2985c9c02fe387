package clipboard

import (
	"runtime"
	"sync"

	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

// Init creates the keyboard binding. On Linux this registers a uinput
// device, so the user needs write access to /dev/uinput.
func Init() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	return kbErr
}

// pasteUsesSuper reports whether the paste chord is Cmd+V rather than
// Ctrl+V on goos.
func pasteUsesSuper(goos string) bool {
	return goos == "darwin"
}

func chordName(goos string) string {
	if pasteUsesSuper(goos) {
		return "Cmd+V"
	}
	return "Ctrl+V"
}

// Paste sends Cmd+V on macOS and Ctrl+V elsewhere.
func Paste() error {
	if err := Init(); err != nil {
		return err
	}
	kb.Clear()
	kb.SetKeys(keybd_event.VK_V)
	if pasteUsesSuper(runtime.GOOS) {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	return kb.Launching()
}

// Verify checks that the keyboard binding can be created.
func Verify() (string, error) {
	if err := Init(); err != nil {
		return "", err
	}
	return "keyboard event binding OK (" + chordName(runtime.GOOS) + ")", nil
}
