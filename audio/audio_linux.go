//go:build linux

package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"

	"voxpaste/log"
)

// recordLatency is the pulse buffer target in seconds. Lower values make
// the callback fire more often with smaller chunks.
const recordLatency = 0.05

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("voxpaste"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(sources))
	for _, s := range sources {
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	if cfg.Channels > 1 {
		return nil, fmt.Errorf("pulse capture: %d channels requested, only mono is supported", cfg.Channels)
	}
	return &pulseCapture{client: p.client, device: device, rate: int(cfg.SampleRate)}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

// pulseCapture owns at most one record stream. Start creates it, Stop
// tears it down; the stream is never reused across sessions.
type pulseCapture struct {
	client   *pulse.Client
	device   *DeviceInfo
	rate     int
	callback atomic.Pointer[DataCallback]

	mu     sync.Mutex
	stream *pulse.RecordStream
}

func (c *pulseCapture) write(buf []float32) (int, error) {
	if len(buf) > 0 {
		if cb := c.callback.Load(); cb != nil {
			(*cb)(buf)
		}
	}
	return len(buf), nil
}

func (c *pulseCapture) recordOptions() []pulse.RecordOption {
	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(c.rate),
		pulse.RecordLatency(recordLatency),
	}
	if c.device == nil {
		return opts
	}
	source, err := c.client.SourceByID(c.device.ID)
	if err != nil || source == nil {
		log.Warnf("pulse source %q unavailable, using default: %v", c.device.Name, err)
		return opts
	}
	return append(opts, pulse.RecordSource(source))
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return ErrAlreadyRunning
	}
	stream, err := c.client.NewRecord(pulse.Float32Writer(c.write), c.recordOptions()...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}
	stream.Start()
	if err := stream.Error(); err != nil {
		stream.Close()
		return fmt.Errorf("pulse record start: %w", err)
	}
	c.stream = stream
	return nil
}

// Stop returns once pulse has acknowledged the stop, after which the
// writer is no longer invoked.
func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}
	c.stream.Stop()
	c.stream.Close()
	c.stream = nil
}

func (c *pulseCapture) Close() {
	c.Stop()
}

func (c *pulseCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *pulseCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *pulseCapture) DeviceName() string {
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}
