// Package popup carries status commands from the recording pipeline to the
// single goroutine that owns the on-screen indicator.
package popup

import (
	"context"
	"time"

	"voxpaste/inbox"
	"voxpaste/log"
)

const PollInterval = 50 * time.Millisecond

type Kind int

const (
	KindShow Kind = iota
	KindUpdate
	KindHide
)

func (k Kind) String() string {
	switch k {
	case KindShow:
		return "show"
	case KindUpdate:
		return "update"
	case KindHide:
		return "hide"
	}
	return "unknown"
}

type Command struct {
	Kind    Kind
	Message string
}

func Show(msg string) Command   { return Command{Kind: KindShow, Message: msg} }
func Update(msg string) Command { return Command{Kind: KindUpdate, Message: msg} }
func Hide() Command             { return Command{Kind: KindHide} }

// Queue is the only path into the UI goroutine. Any number of goroutines
// may Push; one UI loop drains.
type Queue struct {
	in *inbox.Inbox[Command]
}

func NewQueue() *Queue {
	return &Queue{in: inbox.New[Command]()}
}

func (q *Queue) Push(c Command) { q.in.Push(c) }

func (q *Queue) Drain() []Command { return q.in.Drain() }

// State is the popup's visual state. Only the UI goroutine holds one.
type State struct {
	Visible bool
	Message string
}

// Apply folds c into s and reports whether anything changed. Updates to a
// hidden popup are dropped.
func (s *State) Apply(c Command) bool {
	prev := *s
	switch c.Kind {
	case KindShow:
		s.Visible = true
		s.Message = c.Message
	case KindUpdate:
		if s.Visible {
			s.Message = c.Message
		}
	case KindHide:
		s.Visible = false
		s.Message = ""
	}
	return prev != *s
}

type Renderer interface {
	Render(State)
}

type RendererFunc func(State)

func (f RendererFunc) Render(s State) { f(s) }

// Run polls q every interval and renders each state change, in queue order,
// until ctx is done. A panicking renderer is logged and the loop continues.
func Run(ctx context.Context, q *Queue, r Renderer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var st State
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, c := range q.Drain() {
			if st.Apply(c) {
				render(r, st)
			}
		}
	}
}

func render(r Renderer, st State) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("popup render panic: %v", rec)
		}
	}()
	r.Render(st)
}

// LogRenderer writes state changes to the diagnostics log. Used when no
// visual indicator is available.
type LogRenderer struct{}

func (LogRenderer) Render(s State) {
	if s.Visible {
		log.Debugf("popup: %q", s.Message)
	} else {
		log.Debugf("popup: hidden")
	}
}
