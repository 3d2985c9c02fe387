package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"voxpaste/audio"
	"voxpaste/beep"
	"voxpaste/clipboard"
	"voxpaste/encoder"
	"voxpaste/hotkey"
	"voxpaste/log"
	"voxpaste/popup"
	"voxpaste/session"
	"voxpaste/store"
	"voxpaste/transcriber"
)

const testWait = 60 * time.Second

// testCmd runs a headless session: the WAV file stands in for the
// microphone and stdin stands in for the keyboard. Commands, one per line:
//
//	KEYDOWN | KEYUP        press or release the hotkey combo
//	WAIT                   block until the session is idle again
//	WAIT_AUDIO_DONE        block until the WAV has been fully played
//	SLEEP <ms>
//	QUIT
var testCmd = &cobra.Command{
	Use:    "test <file.wav>",
	Short:  "Headless session driven from stdin",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		realtime, _ := cmd.Flags().GetBool("realtime")
		fakeText, _ := cmd.Flags().GetString("fake-text")
		systemClip, _ := cmd.Flags().GetBool("system-clipboard")
		return runTestMode(cmd.Context(), args[0], testOptions{
			realtime:   realtime,
			fakeText:   fakeText,
			systemClip: systemClip,
			in:         cmd.InOrStdin(),
			out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	testCmd.Flags().Bool("realtime", true, "pace the WAV at its sample rate")
	testCmd.Flags().String("fake-text", "", "text returned by the fake backend")
	testCmd.Flags().Bool("system-clipboard", false, "use the OS clipboard and paste keystroke")
	rootCmd.AddCommand(testCmd)
}

type testOptions struct {
	realtime   bool
	fakeText   string
	systemClip bool
	in         io.Reader
	out        io.Writer
}

// memClipboard keeps the clipboard in memory and counts pastes.
type memClipboard struct {
	mu     sync.Mutex
	text   string
	pastes int
}

func (m *memClipboard) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *memClipboard) Set(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = s
	return nil
}

func (m *memClipboard) SendPaste() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pastes++
	return nil
}

func runTestMode(ctx context.Context, wavPath string, opts testOptions) error {
	beep.Disable()

	combo, err := hotkey.ParseCombo(cfg.Hotkey)
	if err != nil {
		return err
	}
	fctx, err := audio.NewFakeContextFromWAV(wavPath, opts.realtime)
	if err != nil {
		return fmt.Errorf("load WAV: %w", err)
	}
	dev, err := fctx.NewCapture(nil, audio.CaptureConfig{SampleRate: uint32(cfg.SampleRate), Channels: encoder.Channels})
	if err != nil {
		return err
	}
	fake := dev.(*audio.FakeCapture)
	pipe := audio.NewPipeline(dev, cfg.SampleRate)
	defer pipe.Close()

	var trans transcriber.Transcriber
	if cfg.Backend == "fake" {
		trans = transcriber.NewFake(opts.fakeText, nil)
	} else if trans, err = transcriber.New(cfg); err != nil {
		return err
	}

	st, err := store.Open(cfg.DBDir())
	if err != nil {
		return err
	}
	defer st.Close()

	var clip session.Clipboard
	var paster session.Paster
	if opts.systemClip {
		if err := clipboard.Init(); err != nil {
			log.Warnf("paste init: %v", err)
		}
		clip, paster = clipboard.System{}, clipboard.System{}
	} else {
		mem := &memClipboard{}
		clip, paster = mem, mem
	}

	var outMu sync.Mutex
	printf := func(format string, args ...any) {
		outMu.Lock()
		fmt.Fprintf(opts.out, format, args...)
		outMu.Unlock()
	}

	idle := make(chan struct{}, 64)
	ctrl := newController(cfg, parts{
		capture:     pipe,
		transcriber: trans,
		store:       st,
		clipboard:   clip,
		paster:      paster,
		cues:        beep.Cues{},
		queue:       popup.NewQueue(),
		onTransition: func(from, to session.State) {
			printf("STATE %s\n", to)
			if to == session.Idle {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
		},
		onOutcome: func(id string, o session.Outcome) {
			printf("OUTCOME %s %s\n", id, o)
		},
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctrlDone := make(chan struct{})
	go func() {
		defer close(ctrlDone)
		ctrl.Run(runCtx)
	}()

	src := hotkey.NewFake()
	detector := hotkey.NewDetector(combo, ctrl.Request)
	src.Start(detector.Handle)
	defer src.Close()

	log.SessionStart(trans.Name(), cfg.Model, combo.String())
	defer func() {
		cancel()
		<-ctrlDone
		log.SessionEnd(ctrl.Jobs())
		printf("JOBS %d\n", ctrl.Jobs())
	}()

	wait := func(ch <-chan struct{}, what string) error {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(testWait):
			return fmt.Errorf("timed out waiting for %s", what)
		}
	}

	scanner := bufio.NewScanner(opts.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "KEYDOWN":
			src.PressCombo(combo)
		case line == "KEYUP":
			src.ReleaseCombo(combo)
		case line == "WAIT":
			if err := wait(idle, "idle"); err != nil {
				return err
			}
		case line == "WAIT_AUDIO_DONE":
			if err := wait(fake.AudioDone(), "audio"); err != nil {
				return err
			}
		case strings.HasPrefix(line, "SLEEP "):
			ms, err := strconv.Atoi(strings.TrimSpace(line[len("SLEEP "):]))
			if err != nil {
				return fmt.Errorf("bad SLEEP %q", line)
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
		case line == "QUIT":
			return nil
		default:
			log.Warnf("test mode: unknown command %q", line)
		}
	}
	return scanner.Err()
}
