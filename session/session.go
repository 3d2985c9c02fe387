// Package session runs one push-to-talk recording at a time: capture while
// the hotkey is held, then transcribe, store and paste in the background.
package session

import (
	"context"

	"voxpaste/audio"
	"voxpaste/popup"
	"voxpaste/store"
)

type State int

const (
	Idle State = iota
	Recording
	Transcribing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	}
	return "unknown"
}

// Capture is the audio pipeline as seen by the controller.
type Capture interface {
	Start() error
	Stop() (audio.Buffer, error)
}

type Clipboard interface {
	Get() (string, error)
	Set(text string) error
}

type Paster interface {
	SendPaste() error
}

type Store interface {
	Append(ctx context.Context, r store.Record) error
}

// Notifier accepts popup commands without blocking.
type Notifier interface {
	Push(c popup.Command)
}

// Cues are audible feedback. All methods must return promptly.
type Cues interface {
	PlayStart()
	PlayEnd()
	PlayError()
}

type silentCues struct{}

func (silentCues) PlayStart() {}
func (silentCues) PlayEnd()   {}
func (silentCues) PlayError() {}
