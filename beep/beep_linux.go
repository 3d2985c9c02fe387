//go:build linux

package beep

import (
	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"voxpaste/log"
)

func initOutput() {}

// stereo converts a mono tone to interleaved int16 to match the sink.
func stereo(tone []float64) []int16 {
	out := make([]int16, len(tone)*2)
	for i, v := range tone {
		s := int16(v * 32767)
		out[i*2] = s
		out[i*2+1] = s
	}
	return out
}

// playTone opens a fresh client per cue; PulseAudio needs ~200ms of tail to
// fill its buffer, so the samples are padded.
func playTone(tone []float64) {
	if len(tone) == 0 {
		return
	}
	pad := make([]float64, sampleRate/5)
	samples := stereo(append(append([]float64(nil), tone...), pad...))

	c, err := pulse.NewClient(pulse.ClientApplicationName("voxpaste"))
	if err != nil {
		log.Warnf("pulse playback: %v", err)
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		log.Warnf("pulse playback: %v", err)
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}
