package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"voxpaste/encoder"
)

const fakeFrameSize = 1024

// FakeContext hands out FakeCaptures. With samples set, each started
// capture plays them back, followed by silence until stopped.
type FakeContext struct {
	samples    []float32
	realtime   bool
	sampleRate int

	mu       sync.Mutex
	captures []*FakeCapture
	failNext error
}

func NewFakeContext() *FakeContext {
	return &FakeContext{sampleRate: encoder.DefaultSampleRate}
}

// NewFakeContextFromWAV plays a WAV file into every capture. realtime
// paces chunks at the file's sample rate.
func NewFakeContextFromWAV(wavPath string, realtime bool) (*FakeContext, error) {
	pcm, rate, err := encoder.ReadWAV(wavPath)
	if err != nil {
		return nil, err
	}
	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		samples[i] = float32(s) / 32768
	}
	return &FakeContext{samples: samples, realtime: realtime, sampleRate: rate}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

// FailNextStart makes the next created capture fail Start with err.
func (f *FakeContext) FailNextStart(err error) {
	f.mu.Lock()
	f.failNext = err
	f.mu.Unlock()
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &FakeCapture{
		samples:    f.samples,
		realtime:   f.realtime,
		sampleRate: f.sampleRate,
		startErr:   f.failNext,
		audioDone:  make(chan struct{}),
	}
	f.failNext = nil
	f.captures = append(f.captures, c)
	return c, nil
}

// Captures returns every capture created so far.
func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

type FakeCapture struct {
	samples    []float32
	realtime   bool
	sampleRate int
	startErr   error

	mu        sync.Mutex
	cb        DataCallback
	running   bool
	stopCh    chan struct{}
	feedDone  chan struct{}
	audioDone chan struct{}

	starts atomic.Int32
}

// AudioDone is closed once the configured samples have been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

// Starts reports how many times the stream was opened.
func (f *FakeCapture) Starts() int { return int(f.starts.Load()) }

func (f *FakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// Emit delivers samples to the callback as the device thread would. It
// is a no-op while stopped.
func (f *FakeCapture) Emit(samples []float32) {
	f.mu.Lock()
	cb := f.cb
	running := f.running
	f.mu.Unlock()
	if running && cb != nil {
		cb(samples)
	}
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		err := f.startErr
		f.startErr = nil
		return err
	}
	f.starts.Add(1)

	f.mu.Lock()
	f.running = true
	f.stopCh = make(chan struct{})
	f.feedDone = nil
	if f.samples != nil {
		f.feedDone = make(chan struct{})
	}
	feedDone := f.feedDone
	f.mu.Unlock()

	if feedDone == nil {
		return nil
	}

	var interval time.Duration
	if f.realtime {
		interval = time.Duration(fakeFrameSize) * time.Second / time.Duration(f.sampleRate)
	}

	go func() {
		defer close(feedDone)
		pos := 0
		silence := make([]float32, fakeFrameSize)
		finished := false
		for {
			select {
			case <-f.stopCh:
				return
			default:
			}

			if pos < len(f.samples) {
				end := min(pos+fakeFrameSize, len(f.samples))
				f.Emit(f.samples[pos:end])
				pos = end
			} else {
				if !finished {
					finished = true
					f.mu.Lock()
					close(f.audioDone)
					f.mu.Unlock()
				}
				f.Emit(silence)
			}

			wait := interval
			if wait == 0 {
				wait = time.Millisecond
				if !finished {
					continue
				}
			}
			select {
			case <-f.stopCh:
				return
			case <-time.After(wait):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopCh)
	feedDone := f.feedDone
	f.mu.Unlock()

	if feedDone != nil {
		<-feedDone
	}

	f.mu.Lock()
	select {
	case <-f.audioDone:
		f.audioDone = make(chan struct{}) // reset for replay
	default:
	}
	f.mu.Unlock()
}

func (f *FakeCapture) Close() { f.Stop() }
