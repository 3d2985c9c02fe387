package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"voxpaste/audio"
	"voxpaste/beep"
	"voxpaste/clipboard"
	"voxpaste/config"
	"voxpaste/encoder"
	"voxpaste/hotkey"
	"voxpaste/log"
	"voxpaste/popup"
	"voxpaste/session"
	"voxpaste/store"
	"voxpaste/summarize"
	"voxpaste/transcriber"
	"voxpaste/tray"
)

const (
	staleTempAge  = time.Hour
	shutdownGrace = 30 * time.Second
)

// parts are the collaborators of one controller. The run and test
// commands fill them differently.
type parts struct {
	capture     session.Capture
	transcriber transcriber.Transcriber
	store       session.Store
	clipboard   session.Clipboard
	paster      session.Paster
	cues        session.Cues
	queue       *popup.Queue

	onTransition func(from, to session.State)
	onOutcome    func(jobID string, o session.Outcome)
}

func newController(c *config.Config, p parts) *session.Controller {
	w := &session.Worker{
		Transcriber: p.transcriber,
		Store:       p.store,
		Clipboard:   p.clipboard,
		Paster:      p.paster,
		UI:          p.queue,
		Cues:        p.cues,
		Timeout:     c.TranscribeTimeout,
		Settle:      c.PasteSettle,
	}
	if c.KeepAudio {
		w.ArchiveDir = c.ArchiveDir()
	}
	if c.Summary.Enabled {
		w.Summarizer = summarize.New(c.OpenAI.APIKey, c.OpenAI.BaseURL, c.Summary.Model)
	}
	return session.NewController(session.Options{
		SampleRate: c.SampleRate,
		TempDir:    c.TempDir,
		OnTransition: func(from, to session.State) {
			log.Debugf("session %s -> %s", from, to)
			if p.onTransition != nil {
				p.onTransition(from, to)
			}
		},
		OnOutcome: p.onOutcome,
	}, p.capture, w, p.queue, p.cues)
}

func newHotkeySource(c *config.Config, combo hotkey.Combo) (hotkey.Source, error) {
	if c.Hook == "registered" {
		return hotkey.NewRegistered(combo)
	}
	return hotkey.NewRaw(), nil
}

func chooseDevice(actx audio.Context) (*audio.DeviceInfo, error) {
	switch {
	case flagSetup:
		return audio.SelectDevice(actx)
	case cfg.Device != "":
		return audio.FindDevice(actx, cfg.Device)
	}
	return nil, nil
}

// runSession is the default command: capture on hotkey, transcribe,
// store and paste until interrupted or quit from the UI.
func runSession(ctx context.Context) error {
	combo, err := hotkey.ParseCombo(cfg.Hotkey)
	if err != nil {
		return err
	}
	if cfg.Beep {
		beep.Init()
	} else {
		beep.Disable()
	}
	if n := session.CleanStale(cfg.TempDir, staleTempAge); n > 0 {
		log.Infof("removed %d stale temp files", n)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	defer actx.Close()
	dev, err := chooseDevice(actx)
	if err != nil {
		return err
	}
	capDev, err := actx.NewCapture(dev, audio.CaptureConfig{SampleRate: uint32(cfg.SampleRate), Channels: encoder.Channels})
	if err != nil {
		return fmt.Errorf("open capture device: %w", err)
	}
	pipe := audio.NewPipeline(capDev, cfg.SampleRate)
	defer pipe.Close()

	trans, err := transcriber.New(cfg)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBDir())
	if err != nil {
		return err
	}
	defer st.Close()

	if err := clipboard.Init(); err != nil {
		log.Warnf("paste init: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: paste keystroke unavailable: %v\n", err)
	}

	recent := func(n int) ([]store.Record, error) {
		return st.Recent(context.Background(), n)
	}
	queue := popup.NewQueue()
	ctrl := newController(cfg, parts{
		capture:     pipe,
		transcriber: trans,
		store:       st,
		clipboard:   clipboard.System{},
		paster:      clipboard.System{},
		cues:        beep.Cues{},
		queue:       queue,
		onTransition: func(_, to session.State) {
			switch to {
			case session.Recording:
				tray.ClearError()
			case session.Idle:
				if cfg.UI == "tray" {
					go tray.RefreshRecent()
				}
			}
		},
		onOutcome: func(id string, o session.Outcome) {
			switch o {
			case session.OutcomeModelFailed, session.OutcomePasteFailed, session.OutcomePanic:
				tray.SetError(fmt.Sprintf("last job failed (%s)", o))
			}
		},
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctrlDone := make(chan struct{})
	go func() {
		defer close(ctrlDone)
		ctrl.Run(runCtx)
	}()

	src, err := newHotkeySource(cfg, combo)
	if err == nil {
		detector := hotkey.NewDetector(combo, ctrl.Request)
		err = src.Start(detector.Handle)
	}
	if err != nil {
		cancel()
		<-ctrlDone
		return fmt.Errorf("hotkey %s: %w", combo, err)
	}

	log.SessionStart(trans.Name(), cfg.Model, combo.String())
	fmt.Fprintf(os.Stderr, "voxpaste %s: hold %s to talk (%s, mic: %s)\n", version, combo, trans.Name(), pipe.DeviceName())

	uiErr := runUI(runCtx, queue, uiInfo{
		hotkey:  combo.String(),
		backend: trans.Name(),
		device:  pipe.DeviceName(),
		state:   ctrl.State,
		recent:  recent,
	})
	cancel()
	src.Close()

	select {
	case <-ctrlDone:
	case <-time.After(shutdownGrace):
		log.Warn("in-flight job did not finish before shutdown")
	}
	log.SessionEnd(ctrl.Jobs())
	return uiErr
}

type uiInfo struct {
	hotkey  string
	backend string
	device  string
	state   func() session.State
	recent  func(n int) ([]store.Record, error)
}

// runUI owns the popup queue until ctx is done or the user quits.
func runUI(ctx context.Context, q *popup.Queue, info uiInfo) error {
	switch cfg.UI {
	case "tray":
		quit := tray.Init(tray.Options{
			DataDir: cfg.DataDir,
			Hotkey:  info.hotkey,
			Recent:  info.recent,
			Copy:    clipboard.Set,
		})
		defer tray.Stop()
		go popup.Run(ctx, q, tray.Renderer{}, popup.PollInterval)
		select {
		case <-ctx.Done():
		case <-quit:
		}
		return nil

	case "gui":
		r, quit := guiRenderer()
		if r == nil {
			return errors.New("built without gui support (rebuild with -tags gui)")
		}
		go popup.Run(ctx, q, r, popup.PollInterval)
		select {
		case <-ctx.Done():
		case <-quit:
		}
		return nil

	case "tui":
		m := newTUIModel(q, info.hotkey, info.backend, info.device)
		m.source = tuiSource{state: info.state, recent: info.recent}
		_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}

	popup.Run(ctx, q, popup.LogRenderer{}, popup.PollInterval)
	return nil
}
