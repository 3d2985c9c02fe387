// Package doctor checks that every outside dependency of a recording
// session is usable on this machine.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"voxpaste/audio"
	"voxpaste/clipboard"
	"voxpaste/config"
	"voxpaste/hotkey"
	"voxpaste/store"
	"voxpaste/transcriber"
)

const checkTimeout = 10 * time.Second

// Check is one diagnostic. Run returns a short detail line on success.
type Check struct {
	Name string
	Hint string // printed on failure
	Run  func(ctx context.Context) (string, error)
}

// Run executes every check in order and returns an exit code (0 = all
// pass, 1 = any fail). A failing check does not stop the rest.
func Run(ctx context.Context, w io.Writer, checks []Check) int {
	resetTerminal()

	fmt.Fprintln(w, "voxpaste doctor")
	fmt.Fprintln(w, "===============")

	failed := 0
	for i, c := range checks {
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		detail, err := runOne(ctx, c)
		if err != nil {
			failed++
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			if c.Hint != "" {
				fmt.Fprintf(w, "  %s\n", c.Hint)
			}
			continue
		}
		fmt.Fprintf(w, "  PASS: %s\n", detail)
	}

	fmt.Fprintln(w)
	if failed > 0 {
		fmt.Fprintf(w, "%d of %d checks failed. See details above.\n", failed, len(checks))
		return 1
	}
	fmt.Fprintln(w, "All checks passed!")
	return 0
}

func runOne(ctx context.Context, c Check) (detail string, err error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	type result struct {
		detail string
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		d, err := c.Run(ctx)
		ch <- result{d, err}
	}()

	select {
	case r := <-ch:
		return r.detail, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("timed out: %w", ctx.Err())
	}
}

// Checks returns the standard diagnostics for cfg.
func Checks(cfg *config.Config) []Check {
	return []Check{
		{
			Name: "Hotkey",
			Hint: hotkeyHint(cfg.Hook),
			Run: func(context.Context) (string, error) {
				return CheckHotkey(cfg.Hotkey, cfg.Hook)
			},
		},
		{
			Name: "Microphone",
			Hint: "Pick a device with --device or --setup.",
			Run: func(ctx context.Context) (string, error) {
				actx, err := audio.NewContext()
				if err != nil {
					return "", fmt.Errorf("cannot connect to audio: %w", err)
				}
				defer actx.Close()
				return CheckMicrophone(ctx, actx, cfg.Device, cfg.SampleRate, time.Second)
			},
		},
		{
			Name: "Transcription backend",
			Hint: "Set OPENAI_API_KEY or GROQ_API_KEY, or install whisper.cpp.",
			Run: func(context.Context) (string, error) {
				t, err := transcriber.New(cfg)
				if err != nil {
					return "", err
				}
				return "using " + t.Name(), nil
			},
		},
		{
			Name: "Clipboard",
			Run: func(context.Context) (string, error) {
				return CheckClipboard(clipboard.System{})
			},
		},
		{
			Name: "Paste keystroke",
			Hint: pasteHint,
			Run: func(context.Context) (string, error) {
				return clipboard.Verify()
			},
		},
		{
			Name: "Store",
			Hint: "Another voxpaste may be running and holding the database.",
			Run: func(ctx context.Context) (string, error) {
				return CheckStore(ctx, cfg.DBDir())
			},
		},
	}
}

func hotkeyHint(hook string) string {
	if hook == "raw" {
		return rawHookHint
	}
	return "Try --hotkey with a single non-modifier key, e.g. ctrl+shift+space."
}

func CheckHotkey(combo, hook string) (string, error) {
	c, err := hotkey.ParseCombo(combo)
	if err != nil {
		return "", err
	}
	if hook == "registered" {
		src, err := hotkey.NewRegistered(c)
		if err != nil {
			return "", err
		}
		if err := src.Start(func(hotkey.Event) {}); err != nil {
			return "", fmt.Errorf("register %s: %w", c, err)
		}
		src.Close()
		return c.String() + " registered", nil
	}
	msg, err := hotkey.Diagnose()
	if err != nil {
		return "", err
	}
	return c.String() + ": " + msg, nil
}

// CheckMicrophone records for d and reports the captured length and peak.
func CheckMicrophone(ctx context.Context, actx audio.Context, device string, sampleRate int, d time.Duration) (string, error) {
	var info *audio.DeviceInfo
	if device != "" {
		var err error
		if info, err = audio.FindDevice(actx, device); err != nil {
			return "", err
		}
	}
	dev, err := actx.NewCapture(info, audio.CaptureConfig{SampleRate: uint32(sampleRate), Channels: 1})
	if err != nil {
		return "", fmt.Errorf("open capture: %w", err)
	}
	p := audio.NewPipeline(dev, sampleRate)
	defer p.Close()

	if err := p.Start(); err != nil {
		return "", fmt.Errorf("start capture: %w", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
	buf, err := p.Stop()
	if err != nil {
		return "", err
	}
	if buf.Empty() {
		return "", errors.New("no audio captured")
	}

	var peak float64
	for _, s := range buf.Samples() {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	detail := fmt.Sprintf("%s: %.1fs captured, peak %.0f%%", dev.DeviceName(), buf.Duration().Seconds(), peak*100)
	if peak == 0 {
		detail += " (silent, is the microphone muted?)"
	}
	return detail, nil
}

// CheckClipboard writes a sentinel, reads it back and restores what was
// there before.
func CheckClipboard(cb interface {
	Get() (string, error)
	Set(string) error
}) (string, error) {
	prev, prevErr := cb.Get()
	sentinel := fmt.Sprintf("voxpaste-doctor-%d", time.Now().UnixNano())
	if err := cb.Set(sentinel); err != nil {
		return "", fmt.Errorf("clipboard write: %w", err)
	}
	got, err := cb.Get()
	if prevErr == nil {
		defer cb.Set(prev)
	}
	if err != nil {
		return "", fmt.Errorf("clipboard read: %w", err)
	}
	if got != sentinel {
		return "", fmt.Errorf("clipboard mismatch: wrote %q, got %q", sentinel, got)
	}
	return "write/read verified", nil
}

func CheckStore(ctx context.Context, dir string) (string, error) {
	s, err := store.Open(dir)
	if err != nil {
		return "", err
	}
	defer s.Close()
	n, err := s.Count(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: %d records", dir, n), nil
}
