//go:build darwin

package tray

import "golang.design/x/hotkey/mainthread"

// AppKit requires the status item to be created on the main thread.
func runLoop(start func()) {
	done := make(chan struct{})
	mainthread.Call(func() {
		start()
		close(done)
	})
	<-done
}
