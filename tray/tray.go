// Package tray owns the system tray icon and its menu.
package tray

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"fyne.io/systray"

	"voxpaste/log"
	"voxpaste/popup"
	"voxpaste/store"
)

const (
	RecentCount = 5
	RecentWidth = 100
	emptyRecent = "(nothing yet)"
)

type Options struct {
	DataDir string
	Hotkey  string

	// Recent returns up to n records, newest first.
	Recent func(n int) ([]store.Record, error)
	// Copy puts text on the clipboard when a recent item is clicked.
	Copy func(text string) error
}

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once
	ready     atomic.Bool
	lastErr   atomic.Pointer[string]

	opts Options

	mu          sync.Mutex
	mRecent     *systray.MenuItem
	recentItems []*systray.MenuItem
	recentTexts []string
)

// Init starts the tray and returns a channel closed when the user picks
// Quit.
func Init(o Options) <-chan struct{} {
	opts = o
	start, _ := systray.RunWithExternalLoop(onReady, func() {})
	runLoop(start)
	return quitCh
}

func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}

// Stop removes the icon. Safe to call without Init.
func Stop() {
	if ready.Load() {
		systray.Quit()
	}
}

func onReady() {
	systray.SetTemplateIcon(iconIdleHi, iconIdle)
	systray.SetTooltip(idleTooltip())

	mRecent = systray.AddMenuItem("View Recent", "Click an item to copy it")
	mu.Lock()
	for i := 0; i < RecentCount; i++ {
		item := mRecent.AddSubMenuItem("", "")
		item.Hide()
		recentItems = append(recentItems, item)
		go watchRecent(i, item)
	}
	mu.Unlock()

	mOpen := systray.AddMenuItem("Open Data Folder", opts.DataDir)
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit voxpaste")

	go func() {
		for {
			select {
			case <-mOpen.ClickedCh:
				if err := OpenFolder(opts.DataDir); err != nil {
					log.Warnf("open data folder: %v", err)
				}
			case <-mQuit.ClickedCh:
				Quit()
				return
			}
		}
	}()

	ready.Store(true)
	RefreshRecent()
}

func watchRecent(idx int, item *systray.MenuItem) {
	for range item.ClickedCh {
		mu.Lock()
		var text string
		if idx < len(recentTexts) {
			text = recentTexts[idx]
		}
		mu.Unlock()
		if text == "" || opts.Copy == nil {
			continue
		}
		if err := opts.Copy(text); err != nil {
			log.Warnf("copy recent: %v", err)
		}
	}
}

// RefreshRecent reloads the View Recent submenu from the store.
func RefreshRecent() {
	if !ready.Load() || opts.Recent == nil {
		return
	}
	recs, err := opts.Recent(RecentCount)
	if err != nil {
		log.Warnf("load recent records: %v", err)
		return
	}
	labels := recentLabels(recs, RecentWidth)

	mu.Lock()
	defer mu.Unlock()
	recentTexts = recentTexts[:0]
	for _, r := range recs {
		recentTexts = append(recentTexts, r.Text)
	}
	for i, item := range recentItems {
		if i < len(labels) {
			item.SetTitle(labels[i])
			item.SetTooltip(recs[i].CreatedAt.Format("2006-01-02 15:04:05"))
			item.Show()
		} else {
			item.Hide()
		}
	}
	if len(labels) == 0 {
		mRecent.SetTitle("View Recent " + emptyRecent)
		mRecent.Disable()
	} else {
		mRecent.SetTitle("View Recent")
		mRecent.Enable()
	}
}

func idleTooltip() string {
	if opts.Hotkey == "" {
		return "voxpaste: hold the hotkey to talk"
	}
	return "voxpaste: hold " + opts.Hotkey + " to talk"
}

func recentLabels(recs []store.Record, width int) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		text := strings.Join(strings.Fields(r.Text), " ")
		out = append(out, truncate(text, width))
	}
	return out
}

// truncate cuts s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// Renderer shows popup state as the tray icon and tooltip.
type Renderer struct{}

type trayView struct {
	icon     []byte
	template bool
	title    string
	tooltip  string
}

// view maps popup state and the last job error to what the tray shows.
// A visible popup wins; the error only shows once the popup is hidden.
func view(s popup.State) trayView {
	if s.Visible {
		first, _, _ := strings.Cut(s.Message, "\n")
		return trayView{icon: iconRecHi, title: first, tooltip: strings.ReplaceAll(s.Message, "\n", " ")}
	}
	if msg := lastErr.Load(); msg != nil {
		return trayView{icon: iconWarnHi, tooltip: "voxpaste: " + *msg}
	}
	return trayView{icon: iconIdleHi, template: true, tooltip: idleTooltip()}
}

func (Renderer) Render(s popup.State) {
	if !ready.Load() {
		return
	}
	v := view(s)
	if v.template {
		systray.SetTemplateIcon(v.icon, iconIdle)
	} else {
		systray.SetIcon(v.icon)
	}
	systray.SetTitle(v.title)
	systray.SetTooltip(v.tooltip)
}

// SetError flags the last job as failed. The warning icon stays until
// ClearError, which the session calls when the next recording starts.
func SetError(msg string) {
	lastErr.Store(&msg)
	if ready.Load() {
		systray.SetIcon(iconWarnHi)
		systray.SetTooltip("voxpaste: " + msg)
	}
}

func ClearError() {
	lastErr.Store(nil)
}

// OpenFolder opens dir in the platform file manager.
func OpenFolder(dir string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", dir)
	case "windows":
		cmd = exec.Command("explorer", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Path, err)
	}
	go cmd.Wait()
	return nil
}
