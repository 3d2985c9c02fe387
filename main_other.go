//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if wantsGUI(os.Args[1:]) {
		os.Exit(initGUI()) // fyne takes the main thread
	}
	// Registered hotkeys and the tray need the main thread on macOS.
	code := 0
	mainthread.Init(func() { code = execute() })
	os.Exit(code)
}
