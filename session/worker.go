package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"voxpaste/encoder"
	"voxpaste/log"
	"voxpaste/popup"
	"voxpaste/store"
	"voxpaste/summarize"
	"voxpaste/transcriber"
)

const (
	TranscribingMessage = "Transcribing..."
	AnimationInterval   = 300 * time.Millisecond
	DefaultSettle       = 50 * time.Millisecond
	DefaultSummaryWait  = 3 * time.Second
)

var animationFrames = []string{"●", "●●", "●●●"}

type Outcome string

const (
	OutcomePasted      Outcome = "pasted"
	OutcomeEmpty       Outcome = "empty"
	OutcomeModelFailed Outcome = "model_failed"
	OutcomePasteFailed Outcome = "paste_failed"
	OutcomePanic       Outcome = "panic"
)

// Worker turns a Job into pasted text. Every step tolerates the failure
// of the ones around it; only a successful, non-empty transcription
// reaches the store and the clipboard.
type Worker struct {
	Transcriber transcriber.Transcriber
	Store       Store
	Clipboard   Clipboard
	Paster      Paster
	UI          Notifier
	Cues        Cues

	// Optional.
	Summarizer summarize.Summarizer
	ArchiveDir string

	Timeout     time.Duration // model call bound, 0 = none
	Settle      time.Duration
	Animation   time.Duration
	SummaryWait time.Duration // 0 = DefaultSummaryWait
}

// Process runs the job to completion and always releases it. It never
// panics.
func (w *Worker) Process(ctx context.Context, job *Job) (outcome Outcome) {
	start := time.Now()
	var chars int

	w.UI.Push(popup.Show(TranscribingMessage))
	anim := w.startAnimation()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("transcription job %s panicked: %v\n%s", job.ID, r, debug.Stack())
			outcome = OutcomePanic
		}
		job.Release()
		anim.stop()
		w.UI.Push(popup.Hide())
		log.JobMetrics(job.ID, job.Duration.Seconds(), float64(time.Since(start).Milliseconds()), chars, string(outcome))
	}()

	text, err := w.transcribe(ctx, job)
	if err != nil {
		log.Errorf("transcription failed: %v", err)
		w.cues().PlayError()
		return OutcomeModelFailed
	}
	if text == "" {
		return OutcomeEmpty
	}
	chars = len(text)
	log.TranscriptionText(text)

	w.persist(ctx, job, text)

	if err := w.paste(text); err != nil {
		log.Errorf("paste failed: %v", err)
		w.cues().PlayError()
		return OutcomePasteFailed
	}
	w.cues().PlayEnd()
	return OutcomePasted
}

func (w *Worker) transcribe(ctx context.Context, job *Job) (string, error) {
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}
	res, err := w.Transcriber.Transcribe(ctx, job.WAVPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

func (w *Worker) persist(ctx context.Context, job *Job, text string) {
	rec := store.Record{
		ID:        job.ID,
		Timestamp: job.StoppedAt.UTC().Format(time.RFC3339),
		Text:      text,
		Duration:  job.Duration.Seconds(),
	}
	if w.ArchiveDir != "" {
		path, err := w.archive(job)
		if err != nil {
			log.Warnf("archive audio: %v", err)
		} else {
			rec.AudioRef = &path
		}
	}
	if w.Summarizer != nil {
		if s := w.summary(ctx, text); s != "" {
			rec.Summary = &s
		}
	}
	if w.Store == nil {
		return
	}
	if err := w.Store.Append(ctx, rec); err != nil {
		log.Errorf("store record %s: %v", job.ID, err)
	}
}

// summary asks the Summarizer but gives up after SummaryWait and uses the
// extractive summary instead, so a slow model never holds back the paste.
func (w *Worker) summary(ctx context.Context, text string) string {
	wait := w.SummaryWait
	if wait <= 0 {
		wait = DefaultSummaryWait
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	type result struct {
		s   string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("summarizer panicked: %v", r)}
			}
		}()
		s, err := w.Summarizer.Summarize(ctx, text)
		ch <- result{s, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.err = fmt.Errorf("no summary after %s", wait)
	}
	if res.err != nil {
		log.Warnf("summarize: %v, using extractive", res.err)
		res.s, _ = summarize.Extractive{}.Summarize(context.Background(), text)
	}
	return res.s
}

func (w *Worker) archive(job *Job) (string, error) {
	data, err := encoder.EncodeFLAC(job.Samples, job.SampleRate)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.ArchiveDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.flac", job.StoppedAt.Format("20060102T150405"), job.ID)
	path := filepath.Join(w.ArchiveDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// paste puts text on the clipboard, sends the paste keystroke and puts
// the previous clipboard content back. The first failing step aborts the
// rest.
func (w *Worker) paste(text string) error {
	prev, snapErr := w.Clipboard.Get()
	if snapErr != nil {
		log.Debugf("clipboard snapshot unavailable: %v", snapErr)
	}
	if err := w.Clipboard.Set(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	time.Sleep(w.settle())
	if err := w.Paster.SendPaste(); err != nil {
		return fmt.Errorf("send paste: %w", err)
	}
	time.Sleep(w.settle())
	if snapErr == nil {
		if err := w.Clipboard.Set(prev); err != nil {
			return fmt.Errorf("restore clipboard: %w", err)
		}
	}
	return nil
}

func (w *Worker) settle() time.Duration {
	if w.Settle > 0 {
		return w.Settle
	}
	return DefaultSettle
}

func (w *Worker) cues() Cues {
	if w.Cues == nil {
		return silentCues{}
	}
	return w.Cues
}

type animation struct {
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func (w *Worker) startAnimation() *animation {
	interval := w.Animation
	if interval <= 0 {
		interval = AnimationInterval
	}
	a := &animation{quit: make(chan struct{})}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for frame := 0; ; frame++ {
			select {
			case <-a.quit:
				return
			case <-t.C:
				w.UI.Push(popup.Update(TranscribingMessage + "\n" + animationFrames[frame%len(animationFrames)]))
			}
		}
	}()
	return a
}

// stop returns once the ticker goroutine has exited.
func (a *animation) stop() {
	a.once.Do(func() { close(a.quit) })
	a.wg.Wait()
}
