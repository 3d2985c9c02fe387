// Package beep plays the short cues that mark recording start, end and
// failure.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

var disabled atomic.Bool

func Disable() { disabled.Store(true) }

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End beep: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	startTone []float64
	endTone   []float64
	errorTone []float64
	toneOnce  sync.Once
)

func initTones() {
	startTone = tick(startFreq, 80*time.Millisecond, startVolume, startDecay)
	endTone = tick(endFreq, 100*time.Millisecond, endVolume, endDecay)
	errorTone = doubleBeep(errorFreq, 80*time.Millisecond, 50*time.Millisecond, errorVolume, errorDecay)
}

// tick is an exponentially decaying sine in [-1, 1].
func tick(freq float64, d time.Duration, volume, decay float64) []float64 {
	n := int(float64(sampleRate) * d.Seconds())
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = math.Sin(2*math.Pi*freq*t) * volume * math.Exp(-t*decay)
	}
	return out
}

func doubleBeep(freq float64, beepDur, gapDur time.Duration, volume, decay float64) []float64 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]float64, int(float64(sampleRate)*gapDur.Seconds()))
	out := make([]float64, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	return append(out, b...)
}

func Init() {
	toneOnce.Do(initTones)
	initOutput()
}

func PlayStart() { play(&startTone) }
func PlayEnd()   { play(&endTone) }
func PlayError() { play(&errorTone) }

func play(tone *[]float64) {
	if disabled.Load() {
		return
	}
	toneOnce.Do(initTones)
	go playTone(*tone)
}

// Cues adapts the package functions to the recording session.
type Cues struct{}

func (Cues) PlayStart() { PlayStart() }
func (Cues) PlayEnd()   { PlayEnd() }
func (Cues) PlayError() { PlayError() }
