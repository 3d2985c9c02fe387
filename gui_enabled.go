//go:build gui

package main

import (
	"runtime"
	"sync"

	"voxpaste/gui"
	"voxpaste/log"
	"voxpaste/popup"
	"voxpaste/tray"
)

var (
	guiApp      *gui.App
	guiQuit     = make(chan struct{})
	guiQuitOnce sync.Once
)

// initGUI runs the CLI in a goroutine while fyne owns the main thread.
func initGUI() int {
	runtime.LockOSThread()

	code := 0
	guiApp = gui.NewApp(func() {
		code = execute()
		guiApp.Quit()
	}, gui.Actions{
		OpenData: func() {
			if cfg == nil {
				return
			}
			if err := tray.OpenFolder(cfg.DataDir); err != nil {
				log.Warnf("open data folder: %v", err)
			}
		},
		Quit: func() {
			guiQuitOnce.Do(func() { close(guiQuit) })
		},
	})
	if err := gui.Run(guiApp); err != nil {
		panic(err)
	}
	return code
}

func guiRenderer() (popup.Renderer, <-chan struct{}) {
	if guiApp == nil {
		return nil, nil
	}
	return guiApp, guiQuit
}
