package session

import (
	"context"
	"os"
	"sync"
	"time"

	"voxpaste/encoder"
	"voxpaste/hotkey"
	"voxpaste/inbox"
	"voxpaste/log"
	"voxpaste/popup"
)

const ListeningMessage = "Listening..."

type eventKind int

const (
	evStart eventKind = iota
	evStop
	evJobCompleted
)

type event struct {
	kind  eventKind
	jobID string
}

type Options struct {
	SampleRate int
	TempDir    string

	// OnTransition, if set, runs on the controller goroutine after every
	// state change. It must not block.
	OnTransition func(from, to State)

	// OnOutcome, if set, runs on the job goroutine once a job finishes.
	OnOutcome func(jobID string, o Outcome)
}

// Controller owns the session state. Requests from any goroutine are
// queued and handled one at a time by Run.
type Controller struct {
	opts    Options
	capture Capture
	worker  *Worker
	ui      Notifier
	cues    Cues
	events  *inbox.Inbox[event]

	// only touched by the Run goroutine
	jobID  string
	jobCtx context.Context

	mu    sync.Mutex
	state State
	jobs  int

	wg sync.WaitGroup
}

func NewController(opts Options, capture Capture, worker *Worker, ui Notifier, cues Cues) *Controller {
	if opts.SampleRate == 0 {
		opts.SampleRate = encoder.DefaultSampleRate
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if cues == nil {
		cues = silentCues{}
	}
	return &Controller{
		opts:    opts,
		capture: capture,
		worker:  worker,
		ui:      ui,
		cues:    cues,
		events:  inbox.New[event](),
	}
}

// Request queues a hotkey request. It never blocks, so it can be passed
// straight to hotkey.NewDetector.
func (c *Controller) Request(r hotkey.Request) {
	switch r {
	case hotkey.StartRequested:
		c.events.Push(event{kind: evStart})
	case hotkey.StopRequested:
		c.events.Push(event{kind: evStop})
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Jobs reports how many transcription jobs have been dispatched.
func (c *Controller) Jobs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobs
}

// Run handles requests until ctx is done. A recording in progress is
// discarded and an in-flight job is allowed to finish before Run returns.
func (c *Controller) Run(ctx context.Context) {
	c.jobCtx = context.WithoutCancel(ctx)
	defer c.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.events.Ready():
			for _, ev := range c.events.Drain() {
				c.handle(ev)
			}
		}
	}
}

func (c *Controller) shutdown() {
	c.events.Close()
	if c.State() == Recording {
		if _, err := c.capture.Stop(); err != nil {
			log.Warnf("stop capture on shutdown: %v", err)
		}
		c.setState(Idle)
		c.ui.Push(popup.Hide())
	}
	c.wg.Wait()
}

func (c *Controller) handle(ev event) {
	state := c.State()
	switch {
	case ev.kind == evStart && state == Idle:
		c.startRecording()
	case ev.kind == evStop && state == Recording:
		c.stopRecording()
	case ev.kind == evJobCompleted && state == Transcribing && ev.jobID == c.jobID:
		c.jobID = ""
		c.setState(Idle)
	default:
		log.Debugf("ignoring %s in state %s", ev, state)
	}
}

func (c *Controller) startRecording() {
	if err := c.capture.Start(); err != nil {
		log.Errorf("start capture: %v", err)
		c.cues.PlayError()
		return
	}
	c.setState(Recording)
	c.ui.Push(popup.Show(ListeningMessage))
	c.cues.PlayStart()
}

func (c *Controller) stopRecording() {
	buf, err := c.capture.Stop()
	if err != nil {
		log.Errorf("stop capture: %v", err)
		c.toIdle()
		return
	}
	if buf.Empty() {
		log.Debugf("empty recording, nothing to transcribe")
		c.toIdle()
		return
	}

	rate := buf.SampleRate
	if rate == 0 {
		rate = c.opts.SampleRate
	}
	job, err := NewJob(c.opts.TempDir, encoder.PCM16(buf.Samples()), rate)
	if err != nil {
		log.Errorf("%v", err)
		c.toIdle()
		return
	}
	log.Debugf("recorded %.2fs in %d chunks, job %s", job.Duration.Seconds(), len(buf.Chunks), job.ID)

	c.jobID = job.ID
	c.setState(Transcribing)
	c.mu.Lock()
	c.jobs++
	c.mu.Unlock()

	ctx := c.jobCtx
	if ctx == nil {
		ctx = context.Background()
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		outcome := c.worker.Process(ctx, job)
		if c.opts.OnOutcome != nil {
			c.opts.OnOutcome(job.ID, outcome)
		}
		c.events.Push(event{kind: evJobCompleted, jobID: job.ID})
	}()
}

func (c *Controller) toIdle() {
	c.setState(Idle)
	c.ui.Push(popup.Hide())
}

func (c *Controller) setState(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	if from != to && c.opts.OnTransition != nil {
		c.opts.OnTransition(from, to)
	}
}

func (e event) String() string {
	switch e.kind {
	case evStart:
		return "start"
	case evStop:
		return "stop"
	case evJobCompleted:
		return "job completed " + e.jobID
	}
	return "unknown"
}

// WaitIdle blocks until the controller is Idle or timeout passes. It is
// meant for the headless test driver.
func (c *Controller) WaitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.State() == Idle {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return c.State() == Idle
}
