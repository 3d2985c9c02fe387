package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"voxpaste/log"
)

const (
	// QueueCapacity bounds the producer/consumer channel. At 16 kHz with
	// ~10ms callbacks this is several seconds of slack.
	QueueCapacity = 512
	PollInterval  = 500 * time.Millisecond
)

// Chunk is one callback's worth of samples, copied off the device thread.
type Chunk struct {
	Seq     uint64
	Gen     uint64
	Samples []float32
}

// Buffer is the ordered capture of one session.
type Buffer struct {
	Chunks     []Chunk
	SampleRate int
}

func (b *Buffer) Empty() bool { return len(b.Chunks) == 0 }

func (b *Buffer) Len() int {
	n := 0
	for _, c := range b.Chunks {
		n += len(c.Samples)
	}
	return n
}

// Samples concatenates every chunk.
func (b *Buffer) Samples() []float32 {
	out := make([]float32, 0, b.Len())
	for _, c := range b.Chunks {
		out = append(out, c.Samples...)
	}
	return out
}

func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Len()) * time.Second / time.Duration(b.SampleRate)
}

// Pipeline moves samples from a CaptureDevice callback to a per-session
// consumer goroutine. The callback never blocks: when the queue is full
// the chunk is dropped and counted.
type Pipeline struct {
	dev        CaptureDevice
	sampleRate int

	gate     atomic.Bool
	gen      atomic.Uint64
	seq      atomic.Uint64
	overflow atomic.Uint64

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan Buffer
}

func NewPipeline(dev CaptureDevice, sampleRate int) *Pipeline {
	return &Pipeline{dev: dev, sampleRate: sampleRate}
}

func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pipeline) DeviceName() string { return p.dev.DeviceName() }

// Start opens a new session: fresh generation, empty buffer, new consumer.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}

	gen := p.gen.Add(1)
	p.seq.Store(0)
	p.overflow.Store(0)
	queue := make(chan Chunk, QueueCapacity)

	p.dev.SetCallback(func(samples []float32) {
		p.produce(queue, gen, samples)
	})
	p.gate.Store(true)

	if err := p.dev.Start(); err != nil {
		p.gate.Store(false)
		p.dev.ClearCallback()
		return err
	}

	p.stop = make(chan struct{})
	p.done = make(chan Buffer, 1)
	p.running = true
	go p.consume(gen, queue, p.stop, p.done)
	return nil
}

func (p *Pipeline) produce(queue chan<- Chunk, gen uint64, samples []float32) {
	if !p.gate.Load() || len(samples) == 0 {
		return
	}
	c := Chunk{
		Seq:     p.seq.Add(1),
		Gen:     gen,
		Samples: append([]float32(nil), samples...),
	}
	select {
	case queue <- c:
	default:
		p.overflow.Add(1)
	}
}

func (p *Pipeline) consume(gen uint64, queue <-chan Chunk, stop <-chan struct{}, done chan<- Buffer) {
	buf := Buffer{SampleRate: p.sampleRate}
	accept := func(c Chunk) {
		if c.Gen == gen {
			buf.Chunks = append(buf.Chunks, c)
		}
	}

	poll := time.NewTicker(PollInterval)
	defer poll.Stop()

	for {
		select {
		case c := <-queue:
			accept(c)
		case <-poll.C:
		case <-stop:
			for {
				select {
				case c := <-queue:
					accept(c)
				default:
					done <- buf
					return
				}
			}
		}
	}
}

// Stop tears the session down and returns its buffer. The device is
// stopped before the consumer drains, so no tail chunk is lost and none
// arrives afterwards.
func (p *Pipeline) Stop() (Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return Buffer{}, ErrNotRunning
	}

	p.dev.Stop()
	p.gate.Store(false)
	p.dev.ClearCallback()
	close(p.stop)
	buf := <-p.done

	p.running = false
	if n := p.overflow.Load(); n > 0 {
		log.Warnf("audio queue overflow: dropped %d chunks", n)
	}
	return buf, nil
}

// Close stops any running session and releases the device.
func (p *Pipeline) Close() {
	if p.Running() {
		p.Stop()
	}
	p.dev.Close()
}
