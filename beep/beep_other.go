//go:build !linux

package beep

import (
	"sync"
	"time"

	fbeep "github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"voxpaste/log"
)

var (
	speakerOnce sync.Once
	speakerOK   bool
)

func initOutput() {
	speakerOnce.Do(func() {
		sr := fbeep.SampleRate(sampleRate)
		if err := speaker.Init(sr, sr.N(50*time.Millisecond)); err != nil {
			log.Warnf("speaker init: %v", err)
			return
		}
		speakerOK = true
	})
}

// streamer plays tone once on both channels.
func streamer(tone []float64) fbeep.Streamer {
	pos := 0
	return fbeep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(tone) {
			return 0, false
		}
		n := 0
		for n < len(samples) && pos < len(tone) {
			samples[n][0] = tone[pos]
			samples[n][1] = tone[pos]
			n++
			pos++
		}
		return n, true
	})
}

func playTone(tone []float64) {
	initOutput()
	if !speakerOK || len(tone) == 0 {
		return
	}
	speaker.Play(streamer(tone))
}
