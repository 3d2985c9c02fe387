package session

import (
	"context"
	"errors"
	"sync"

	"voxpaste/audio"
	"voxpaste/popup"
	"voxpaste/store"
	"voxpaste/transcriber"
)

type recordingUI struct {
	mu   sync.Mutex
	cmds []popup.Command
}

func (u *recordingUI) Push(c popup.Command) {
	u.mu.Lock()
	u.cmds = append(u.cmds, c)
	u.mu.Unlock()
}

func (u *recordingUI) commands() []popup.Command {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]popup.Command(nil), u.cmds...)
}

type fakeClipboard struct {
	mu      sync.Mutex
	content string
	sets    []string
	getErr  error
	setErr  error
}

func (c *fakeClipboard) Get() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.content, nil
}

func (c *fakeClipboard) Set(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.sets = append(c.sets, text)
	c.content = text
	return nil
}

func (c *fakeClipboard) snapshot() (string, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, append([]string(nil), c.sets...)
}

type fakePaster struct {
	mu    sync.Mutex
	count int
	err   error
}

func (p *fakePaster) SendPaste() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.count++
	return nil
}

func (p *fakePaster) pastes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

type fakeStore struct {
	mu      sync.Mutex
	records []store.Record
	err     error
}

func (s *fakeStore) Append(_ context.Context, r store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r)
	return nil
}

func (s *fakeStore) all() []store.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Record(nil), s.records...)
}

// spyCapture remembers the last buffer handed to the controller.
type spyCapture struct {
	*audio.Pipeline
	mu   sync.Mutex
	last audio.Buffer
}

func (s *spyCapture) Stop() (audio.Buffer, error) {
	buf, err := s.Pipeline.Stop()
	s.mu.Lock()
	s.last = buf
	s.mu.Unlock()
	return buf, err
}

func (s *spyCapture) lastBuffer() audio.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type panicTranscriber struct{}

func (panicTranscriber) Name() string { return "panic" }
func (panicTranscriber) Transcribe(context.Context, string) (*transcriber.Result, error) {
	panic("model exploded")
}

var errBoom = errors.New("boom")

// stalledSummarizer ignores its context and returns only once release is
// closed.
type stalledSummarizer struct {
	release chan struct{}
}

func (s stalledSummarizer) Summarize(context.Context, string) (string, error) {
	<-s.release
	return "too late", nil
}
