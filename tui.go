package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voxpaste/log"
	"voxpaste/popup"
	"voxpaste/session"
	"voxpaste/store"
)

const (
	tuiFrame     = 60 * time.Millisecond
	tuiRecent    = 5
	tuiLeftWidth = 45
)

type tickMsg time.Time

// tuiSource is polled on every tick; recent is only reloaded when the
// session returns to idle.
type tuiSource struct {
	state  func() session.State
	recent func(n int) ([]store.Record, error)
}

// tuiModel is the terminal popup. It drains the popup queue on its own
// tick instead of going through popup.Run.
type tuiModel struct {
	queue  *popup.Queue
	source tuiSource
	popup  popup.State
	state  session.State
	recent []store.Record

	hotkey  string
	backend string
	device  string

	frame         int
	width, height int
}

func newTUIModel(q *popup.Queue, hotkey, backend, device string) tuiModel {
	return tuiModel{queue: q, hotkey: hotkey, backend: backend, device: device}
}

func tuiTick() tea.Cmd {
	return tea.Tick(tuiFrame, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		if m.queue != nil {
			for _, c := range m.queue.Drain() {
				m.popup.Apply(c)
			}
		}
		m.poll()
		return m, tuiTick()
	}
	return m, nil
}

func (m *tuiModel) poll() {
	reload := m.frame == 1
	if m.source.state != nil {
		s := m.source.state()
		if s != m.state && s == session.Idle {
			reload = true
		}
		m.state = s
	}
	if reload && m.source.recent != nil {
		recs, err := m.source.recent(tuiRecent)
		if err != nil {
			log.Warnf("load recent records: %v", err)
			return
		}
		m.recent = recs
	}
}

var (
	recStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldHelp   = helpStyle.Bold(true)
	textStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	popupStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("208")).Padding(0, 1)
)

func (m tuiModel) statusLine() string {
	switch m.state {
	case session.Recording:
		return recStyle.Render("● REC")
	case session.Transcribing:
		return busyStyle.Render("◌ TRANSCRIBING")
	}
	return dimStyle.Render("○ STANDBY")
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var left []string
	left = append(left, strings.Split(renderEye(m.frame, m.state), "\n")...)
	left = append(left, m.statusLine())
	if m.popup.Visible {
		left = append(left, popupStyle.Render(m.popup.Message))
	}
	if m.backend != "" {
		left = append(left, dimStyle.Render("backend: "+m.backend))
	}
	if m.device != "" {
		left = append(left, dimStyle.Render("mic: "+m.device))
	}
	left = append(left, "")
	left = append(left, boldHelp.Render(m.hotkey)+helpStyle.Render(" hold to record, q to quit"))
	left = append(left, helpStyle.Render("voxpaste "+version))

	rightWidth := max(m.width-tuiLeftWidth-1, 20)
	right := lipgloss.NewStyle().
		Width(rightWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(m.recentPanel(rightWidth - 2))

	leftPanel := lipgloss.NewStyle().
		Width(tuiLeftWidth - 1).
		Height(m.height).
		Render(strings.Join(left, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, right)
}

func (m tuiModel) recentPanel(width int) string {
	if len(m.recent) == 0 {
		return dimStyle.Render("No transcriptions yet")
	}
	var b strings.Builder
	for i, r := range m.recent {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %.1fs", r.CreatedAt.Format("15:04:05"), r.Duration)))
		b.WriteString("\n")
		for _, line := range wrapText(r.Text, max(width, 10)) {
			b.WriteString(textStyle.Render(line) + "\n")
		}
		if r.Summary != nil {
			b.WriteString(dimStyle.Render("» "+*r.Summary) + "\n")
		}
	}
	return b.String()
}

var (
	eyeIdle = []string{"231", "224", "217", "210", "160", "124", "88", "52", "236"}
	eyeRec  = []string{"226", "220", "214", "208", "196", "160", "124", "88", "236"}
	eyeBusy = []string{"231", "195", "159", "123", "87", "51", "45", "39", "236"}
)

// renderEye draws concentric rings using half-block characters. The rings
// pulse faster while recording.
func renderEye(frame int, state session.State) string {
	const w, h = 44, 11
	palette := eyeIdle
	speed, amp := 0.08, 0.4
	switch state {
	case session.Recording:
		palette, speed, amp = eyeRec, 0.25, 1.2
	case session.Transcribing:
		palette, speed, amp = eyeBusy, 0.15, 0.6
	}
	breathe := math.Sin(float64(frame)*speed) * amp

	pixel := func(x, y int) int {
		dx := float64(x) - w/2 + 0.5
		dy := float64(y) - h + 0.5
		d := math.Hypot(dx, dy)
		for i := range palette {
			if d < 1.2*float64(i+1)+breathe*float64(len(palette)-i)/float64(len(palette)) {
				return i + 1
			}
		}
		return 0
	}

	var b strings.Builder
	for cy := 0; cy < h; cy++ {
		for x := 0; x < w; x++ {
			top, bot := pixel(x, cy*2), pixel(x, cy*2+1)
			switch {
			case top == 0 && bot == 0:
				b.WriteString(" ")
			case top == bot:
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(palette[top-1])).Render("█"))
			case bot == 0:
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(palette[top-1])).Render("▀"))
			case top == 0:
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(palette[bot-1])).Render("▄"))
			default:
				b.WriteString(lipgloss.NewStyle().
					Foreground(lipgloss.Color(palette[top-1])).
					Background(lipgloss.Color(palette[bot-1])).
					Render("▀"))
			}
		}
		if cy < h-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// wrapText breaks text on spaces so that no line exceeds width runes.
// Words longer than width are split.
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 1
	}
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(cur) == 0:
			cur = w
		case len(cur)+1+len(w) <= width:
			cur = append(append(cur, ' '), w...)
		default:
			lines = append(lines, string(cur))
			cur = w
		}
	}
	if len(cur) > 0 || len(lines) == 0 {
		lines = append(lines, string(cur))
	}
	return lines
}
