package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"voxpaste/audio"
	"voxpaste/hotkey"
	"voxpaste/popup"
	"voxpaste/summarize"
	"voxpaste/transcriber"
)

type transition struct{ from, to State }

type harness struct {
	ctrl        *Controller
	worker      *Worker
	fctx        *audio.FakeContext
	dev         *audio.FakeCapture
	capture     *spyCapture
	ui          *recordingUI
	clip        *fakeClipboard
	paster      *fakePaster
	store       *fakeStore
	tempDir     string
	transitions chan transition
	outcomes    chan Outcome
	shutdown    func()
}

func newHarness(t *testing.T, tr transcriber.Transcriber, setup ...func(*harness)) *harness {
	t.Helper()
	h := &harness{
		fctx:        audio.NewFakeContext(),
		ui:          &recordingUI{},
		clip:        &fakeClipboard{content: "original"},
		paster:      &fakePaster{},
		store:       &fakeStore{},
		tempDir:     t.TempDir(),
		transitions: make(chan transition, 64),
		outcomes:    make(chan Outcome, 16),
	}
	h.worker = &Worker{
		Transcriber: tr,
		Store:       h.store,
		Clipboard:   h.clip,
		Paster:      h.paster,
		UI:          h.ui,
		Timeout:     2 * time.Second,
		Settle:      time.Millisecond,
	}
	for _, f := range setup {
		f(h)
	}

	dev, err := h.fctx.NewCapture(nil, audio.CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	h.dev = dev.(*audio.FakeCapture)
	h.capture = &spyCapture{Pipeline: audio.NewPipeline(dev, 16000)}

	h.ctrl = NewController(Options{
		SampleRate: 16000,
		TempDir:    h.tempDir,
		OnTransition: func(from, to State) {
			h.transitions <- transition{from, to}
		},
		OnOutcome: func(_ string, o Outcome) {
			h.outcomes <- o
		},
	}, h.capture, h.worker, h.ui, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.ctrl.Run(ctx)
		close(done)
	}()
	var once sync.Once
	h.shutdown = func() {
		once.Do(func() {
			cancel()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Error("controller did not shut down")
			}
		})
	}
	t.Cleanup(h.shutdown)
	return h
}

func (h *harness) expect(t *testing.T, from, to State) {
	t.Helper()
	select {
	case tr := <-h.transitions:
		if tr.from != from || tr.to != to {
			t.Fatalf("transition %s->%s, want %s->%s", tr.from, tr.to, from, to)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s->%s", from, to)
	}
}

func (h *harness) expectNoTransition(t *testing.T) {
	t.Helper()
	select {
	case tr := <-h.transitions:
		t.Fatalf("unexpected transition %s->%s", tr.from, tr.to)
	case <-time.After(100 * time.Millisecond):
	}
}

// record holds the combo for 32 chunks of 0.0625s silence.
func (h *harness) record(t *testing.T, chunks int) {
	t.Helper()
	h.ctrl.Request(hotkey.StartRequested)
	h.expect(t, Idle, Recording)
	for i := 0; i < chunks; i++ {
		h.dev.Emit(make([]float32, 1000))
	}
	h.ctrl.Request(hotkey.StopRequested)
}

// outcome returns the next reported job outcome. OnOutcome runs before
// the job completes, so it is available once Transcribing->Idle is seen.
func (h *harness) outcome(t *testing.T) Outcome {
	t.Helper()
	select {
	case o := <-h.outcomes:
		return o
	default:
		t.Fatal("no outcome reported")
	}
	return ""
}

func kinds(cmds []popup.Command) []popup.Kind {
	out := make([]popup.Kind, len(cmds))
	for i, c := range cmds {
		out[i] = c.Kind
	}
	return out
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir not empty: %v", entries)
	}
}

func TestSilenceProducesNothing(t *testing.T) {
	tr := transcriber.NewFake("", nil)
	h := newHarness(t, tr)

	h.record(t, 32)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)

	if o := h.outcome(t); o != OutcomeEmpty {
		t.Errorf("outcome = %s, want %s", o, OutcomeEmpty)
	}

	buf := h.capture.lastBuffer()
	if len(buf.Chunks) != 32 {
		t.Fatalf("buffer has %d chunks, want 32", len(buf.Chunks))
	}
	for i, c := range buf.Chunks {
		if c.Seq != uint64(i+1) {
			t.Fatalf("chunk %d has seq %d", i, c.Seq)
		}
	}
	if d := buf.Duration(); d < 1990*time.Millisecond || d > 2010*time.Millisecond {
		t.Errorf("duration = %v, want ~2s", d)
	}

	if n := len(h.store.all()); n != 0 {
		t.Errorf("store has %d records, want 0", n)
	}
	if _, sets := h.clip.snapshot(); len(sets) != 0 {
		t.Errorf("clipboard touched: %v", sets)
	}
	if h.paster.pastes() != 0 {
		t.Error("paste sent for empty transcription")
	}

	got := kinds(h.ui.commands())
	want := []popup.Kind{popup.KindShow, popup.KindShow, popup.KindHide}
	if len(got) != len(want) {
		t.Fatalf("popup sequence %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("popup sequence %v, want %v", got, want)
		}
	}
	assertTempDirEmpty(t, h.tempDir)
}

func TestHelloWorldIsStoredAndPasted(t *testing.T) {
	tr := transcriber.NewFake("  hello world\n", nil)
	h := newHarness(t, tr)

	h.record(t, 32)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)

	if o := h.outcome(t); o != OutcomePasted {
		t.Errorf("outcome = %s, want %s", o, OutcomePasted)
	}

	recs := h.store.all()
	if len(recs) != 1 {
		t.Fatalf("store has %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.Text != "hello world" {
		t.Errorf("text = %q", r.Text)
	}
	if r.Duration < 1.99 || r.Duration > 2.01 {
		t.Errorf("duration = %v, want ~2.0", r.Duration)
	}
	if r.AudioRef != nil || r.Summary != nil {
		t.Errorf("unexpected optional fields: %+v", r)
	}
	if _, err := time.Parse(time.RFC3339, r.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", r.Timestamp, err)
	}

	content, sets := h.clip.snapshot()
	if len(sets) != 2 || sets[0] != "hello world" || sets[1] != "original" {
		t.Errorf("clipboard sets = %v", sets)
	}
	if content != "original" {
		t.Errorf("clipboard not restored: %q", content)
	}
	if h.paster.pastes() != 1 {
		t.Errorf("pastes = %d, want 1", h.paster.pastes())
	}
	if calls := tr.Calls(); len(calls) != 1 {
		t.Fatalf("transcriber called %d times", len(calls))
	} else if _, err := os.Stat(calls[0]); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp wav %s still present", calls[0])
	}
	if !strings.HasPrefix(filepath.Base(tr.Calls()[0]), "voxpaste_") {
		t.Errorf("unexpected temp name %s", tr.Calls()[0])
	}
	assertTempDirEmpty(t, h.tempDir)
}

func TestBackToBackStartsOpenOneStream(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("x", nil))

	h.ctrl.Request(hotkey.StartRequested)
	h.ctrl.Request(hotkey.StartRequested)
	h.expect(t, Idle, Recording)
	h.expectNoTransition(t)

	if n := h.dev.Starts(); n != 1 {
		t.Fatalf("stream opened %d times, want 1", n)
	}
	if n := len(h.fctx.Captures()); n != 1 {
		t.Fatalf("%d captures created, want 1", n)
	}

	h.ctrl.Request(hotkey.StopRequested)
	h.expect(t, Recording, Idle)
	if h.ctrl.Jobs() != 0 {
		t.Fatal("empty recording dispatched a job")
	}
	cmds := h.ui.commands()
	if last := cmds[len(cmds)-1]; last.Kind != popup.KindHide {
		t.Fatalf("last popup command %v, want hide", last.Kind)
	}
}

func TestStopWhileIdleIgnored(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("x", nil))
	h.ctrl.Request(hotkey.StopRequested)
	h.expectNoTransition(t)
	if h.ctrl.State() != Idle {
		t.Fatal("expected idle")
	}
	if len(h.ui.commands()) != 0 {
		t.Fatal("popup commands emitted for ignored stop")
	}
}

func TestStartDuringTranscribingIgnored(t *testing.T) {
	tr := transcriber.NewFake("slow", nil).WithDelay(300 * time.Millisecond)
	h := newHarness(t, tr)

	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	h.ctrl.Request(hotkey.StartRequested)
	h.ctrl.Request(hotkey.StopRequested)
	h.expect(t, Transcribing, Idle)
	h.expectNoTransition(t)

	if h.dev.Starts() != 1 {
		t.Fatalf("stream opened %d times, want 1", h.dev.Starts())
	}
	if h.ctrl.Jobs() != 1 {
		t.Fatalf("jobs = %d, want 1", h.ctrl.Jobs())
	}
}

func TestCaptureStartFailureStaysIdle(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("x", nil), func(h *harness) {
		h.fctx.FailNextStart(errors.New("no microphone"))
	})

	h.ctrl.Request(hotkey.StartRequested)
	h.expectNoTransition(t)
	if len(h.ui.commands()) != 0 {
		t.Fatal("popup shown for failed start")
	}

	h.ctrl.Request(hotkey.StartRequested)
	h.expect(t, Idle, Recording)
}

func TestModelErrorCompletesJob(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("", errBoom))

	h.record(t, 8)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)

	if o := h.outcome(t); o != OutcomeModelFailed {
		t.Errorf("outcome = %s, want %s", o, OutcomeModelFailed)
	}
	if len(h.store.all()) != 0 || h.paster.pastes() != 0 {
		t.Fatal("failed transcription reached store or paste")
	}
	assertTempDirEmpty(t, h.tempDir)
}

func TestModelTimeout(t *testing.T) {
	tr := transcriber.NewFake("late", nil).WithDelay(10 * time.Second)
	h := newHarness(t, tr, func(h *harness) { h.worker.Timeout = 50 * time.Millisecond })

	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)
	if h.paster.pastes() != 0 {
		t.Fatal("paste after timeout")
	}
}

func TestPanicIsRecovered(t *testing.T) {
	h := newHarness(t, panicTranscriber{})

	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)
	assertTempDirEmpty(t, h.tempDir)
	if o := h.outcome(t); o != OutcomePanic {
		t.Errorf("outcome = %s, want %s", o, OutcomePanic)
	}

	cmds := h.ui.commands()
	if cmds[len(cmds)-1].Kind != popup.KindHide {
		t.Fatal("popup not hidden after panic")
	}

	// The controller keeps working.
	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)
}

func TestStoreFailureStillPastes(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("text", nil), func(h *harness) {
		h.store.err = errBoom
	})

	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)
	if h.paster.pastes() != 1 {
		t.Fatal("store failure blocked paste")
	}
}

func TestClipboardSnapshotFailureSkipsRestore(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("text", nil), func(h *harness) {
		h.clip.getErr = errBoom
	})

	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)

	_, sets := h.clip.snapshot()
	if len(sets) != 1 || sets[0] != "text" {
		t.Errorf("clipboard sets = %v, want [text]", sets)
	}
	if h.paster.pastes() != 1 {
		t.Error("paste not sent")
	}
}

func TestClipboardSetFailureAbortsPaste(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("text", nil), func(h *harness) {
		h.clip.setErr = errBoom
	})

	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)
	if h.paster.pastes() != 0 {
		t.Error("paste sent after clipboard failure")
	}
	if len(h.store.all()) != 1 {
		t.Error("record not stored")
	}
}

func TestPasteFailureSkipsRestore(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("text", nil), func(h *harness) {
		h.paster.err = errBoom
	})

	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)
	if content, _ := h.clip.snapshot(); content != "text" {
		t.Errorf("clipboard = %q, want text left in place", content)
	}
}

func TestArchiveAndSummary(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "audio_files")
	h := newHarness(t, transcriber.NewFake("First. Second. Third. Fourth.", nil), func(h *harness) {
		h.worker.ArchiveDir = archive
		h.worker.Summarizer = summarize.Extractive{}
	})

	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)

	recs := h.store.all()
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	r := recs[0]
	if r.Summary == nil || *r.Summary != "First. Second. Third." {
		t.Errorf("summary = %v", r.Summary)
	}
	if r.AudioRef == nil {
		t.Fatal("missing audio ref")
	}
	if !strings.HasSuffix(*r.AudioRef, "_"+r.ID+".flac") {
		t.Errorf("archive name %s", *r.AudioRef)
	}
	data, err := os.ReadFile(*r.AudioRef)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:4]) != "fLaC" {
		t.Error("archive is not FLAC")
	}
}

func TestAnimationStopsBeforeHide(t *testing.T) {
	tr := transcriber.NewFake("", nil).WithDelay(250 * time.Millisecond)
	h := newHarness(t, tr, func(h *harness) { h.worker.Animation = 20 * time.Millisecond })

	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)
	time.Sleep(60 * time.Millisecond)

	cmds := h.ui.commands()
	updates := 0
	for i, c := range cmds {
		switch c.Kind {
		case popup.KindUpdate:
			updates++
			if !strings.HasPrefix(c.Message, TranscribingMessage+"\n●") {
				t.Errorf("update %d message %q", i, c.Message)
			}
		case popup.KindHide:
			if i != len(cmds)-1 {
				t.Fatalf("commands after hide: %v", kinds(cmds[i:]))
			}
		}
	}
	if updates == 0 {
		t.Fatal("no animation updates")
	}
	if cmds[len(cmds)-1].Kind != popup.KindHide {
		t.Fatal("last command is not hide")
	}
}

func TestShutdownDuringRecording(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("x", nil))
	h.ctrl.Request(hotkey.StartRequested)
	h.expect(t, Idle, Recording)
	h.shutdown()
	if h.dev.Running() {
		t.Error("capture still running after shutdown")
	}
	if h.ctrl.State() != Idle {
		t.Errorf("state after shutdown = %s", h.ctrl.State())
	}
	cmds := h.ui.commands()
	if cmds[len(cmds)-1].Kind != popup.KindHide {
		t.Error("popup not hidden on shutdown")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Recording: "recording", Transcribing: "transcribing", State(9): "unknown"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestHotkeyDrivesSession(t *testing.T) {
	h := newHarness(t, transcriber.NewFake("typed", nil))
	combo, err := hotkey.ParseCombo("ctrl+super")
	if err != nil {
		t.Fatal(err)
	}
	src := hotkey.NewFake()
	src.Start(hotkey.NewDetector(combo, h.ctrl.Request).Handle)

	src.PressCombo(combo)
	src.Press(hotkey.Ctrl) // autorepeat
	h.expect(t, Idle, Recording)
	h.dev.Emit(make([]float32, 1600))
	src.ReleaseCombo(combo)
	h.expect(t, Recording, Transcribing)
	h.expect(t, Transcribing, Idle)

	if h.paster.pastes() != 1 {
		t.Fatalf("pastes = %d, want 1", h.paster.pastes())
	}
}

func TestSlowSummaryDoesNotDelayPaste(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	h := newHarness(t, transcriber.NewFake("One. Two.", nil), func(h *harness) {
		h.worker.Summarizer = stalledSummarizer{release: release}
		h.worker.SummaryWait = 100 * time.Millisecond
	})

	h.record(t, 4)
	h.expect(t, Recording, Transcribing)
	start := time.Now()
	h.expect(t, Transcribing, Idle)
	if d := time.Since(start); d > time.Second {
		t.Errorf("job took %s with a stalled summarizer", d)
	}
	if n := h.paster.pastes(); n != 1 {
		t.Fatalf("pastes = %d, want 1", n)
	}
	recs := h.store.all()
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	want, _ := summarize.Extractive{}.Summarize(context.Background(), "One. Two.")
	if recs[0].Summary == nil || *recs[0].Summary != want {
		t.Errorf("summary = %v, want extractive %q", recs[0].Summary, want)
	}
}
