//go:build gui

// Package gui shows the popup as a small frameless window near the bottom
// of the screen.
package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/go-gl/glfw/v3.3/glfw"

	"voxpaste/popup"
	"voxpaste/tray"
)

const margin = 20

// Actions are the tray menu callbacks.
type Actions struct {
	OpenData func()
	Quit     func()
}

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	label   *widget.Label
	dot     *canvas.Circle
	onReady func()
	actions Actions
	posX    int
	posY    int
}

// NewApp returns an App that calls onReady in a new goroutine once the
// event loop is about to start.
func NewApp(onReady func(), actions Actions) *App {
	return &App{onReady: onReady, actions: actions}
}

// Run takes over the calling (main) thread until Quit.
func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.voxpaste.gui")
	a.fyneApp.Settings().SetTheme(&darkTheme{})

	if desk, ok := a.fyneApp.(desktop.App); ok {
		menu := fyne.NewMenu("voxpaste",
			fyne.NewMenuItem("Open Data Folder", func() {
				if a.actions.OpenData != nil {
					a.actions.OpenData()
				}
			}),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Quit", func() {
				if a.actions.Quit != nil {
					a.actions.Quit()
				}
				a.fyneApp.Quit()
			}),
		)
		desk.SetSystemTrayMenu(menu)
		desk.SetSystemTrayIcon(fyne.NewStaticResource("tray.png", tray.IconPNG()))
	}

	var screenW, screenH int
	if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
		_, _, screenW, screenH = monitor.GetWorkarea()
	} else {
		screenW, screenH = 1920, 1080
	}

	if drv, ok := a.fyneApp.Driver().(desktop.Driver); ok {
		a.window = drv.CreateSplashWindow()
	} else {
		a.window = a.fyneApp.NewWindow("voxpaste")
	}

	a.label = widget.NewLabel("")
	a.label.Alignment = fyne.TextAlignCenter
	a.dot = canvas.NewCircle(recColor)
	a.dot.Resize(fyne.NewSize(12, 12))
	dot := container.NewGridWrap(fyne.NewSize(12, 12), a.dot)

	a.window.SetContent(container.NewPadded(container.NewBorder(nil, nil, container.NewCenter(dot), nil, a.label)))
	a.window.SetFixedSize(true)
	size := fyne.NewSize(260, 64)
	a.window.Resize(size)

	a.posX = (screenW - int(size.Width)) / 2
	a.posY = screenH - int(size.Height) - margin

	go a.onReady()

	// Hidden until the first Show.
	a.fyneApp.Run()
	return nil
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		a.fyneApp.Quit()
	}
}

// Render implements popup.Renderer. It is called from the popup loop and
// hops to the fyne thread.
func (a *App) Render(s popup.State) {
	fyne.Do(func() {
		if a.window == nil {
			return
		}
		if !s.Visible {
			a.window.Hide()
			return
		}
		a.label.SetText(s.Message)
		a.dot.FillColor = dotColor(s.Message)
		a.dot.Refresh()
		a.show()
	})
}

// show raises the window without taking focus from the paste target.
func (a *App) show() {
	if w := glfw.GetCurrentContext(); w != nil {
		w.SetPos(a.posX, a.posY)
		w.SetAttrib(glfw.FocusOnShow, glfw.False)
		w.SetAttrib(glfw.Floating, glfw.True)
		w.Show()
		return
	}
	a.window.Show()
}
