package transcriber

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

type FakeTranscriber struct {
	text  string
	err   error
	delay time.Duration

	mu    sync.Mutex
	paths []string
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

// WithDelay makes Transcribe block for d or until ctx is done.
func (f *FakeTranscriber) WithDelay(d time.Duration) *FakeTranscriber {
	f.delay = d
	return f
}

func (f *FakeTranscriber) Name() string { return "fake" }

func (f *FakeTranscriber) Transcribe(ctx context.Context, wavPath string) (*Result, error) {
	f.mu.Lock()
	f.paths = append(f.paths, wavPath)
	f.mu.Unlock()

	if _, err := os.Stat(wavPath); err != nil {
		return nil, fmt.Errorf("fake transcriber: %w", err)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, fmt.Errorf("fake transcriber error: %w", f.err)
	}
	return &Result{Text: f.text}, nil
}

// Calls returns the WAV paths passed to Transcribe.
func (f *FakeTranscriber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}
