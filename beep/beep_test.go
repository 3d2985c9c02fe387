package beep

import (
	"math"
	"testing"
	"time"
)

func TestTickDecays(t *testing.T) {
	tone := tick(1000, 100*time.Millisecond, 0.5, 40)
	if want := sampleRate / 10; len(tone) != want {
		t.Fatalf("len = %d, want %d", len(tone), want)
	}
	peak := func(s []float64) float64 {
		var m float64
		for _, v := range s {
			m = math.Max(m, math.Abs(v))
		}
		return m
	}
	head, tail := peak(tone[:200]), peak(tone[len(tone)-200:])
	if head > 0.5 {
		t.Errorf("peak %f exceeds volume", head)
	}
	if tail >= head {
		t.Errorf("tail peak %f not below head peak %f", tail, head)
	}
}

func TestDoubleBeepHasSilentGap(t *testing.T) {
	one := tick(350, 80*time.Millisecond, 0.6, 30)
	both := doubleBeep(350, 80*time.Millisecond, 50*time.Millisecond, 0.6, 30)
	gap := int(sampleRate * 0.05)
	if len(both) != 2*len(one)+gap {
		t.Fatalf("len = %d, want %d", len(both), 2*len(one)+gap)
	}
	for i := len(one); i < len(one)+gap; i++ {
		if both[i] != 0 {
			t.Fatalf("sample %d = %f, want silence", i, both[i])
		}
	}
}

func TestDisabledIsSilent(t *testing.T) {
	Disable()
	defer disabled.Store(false)
	// Would spawn a playback goroutine if enabled; must return at once.
	PlayStart()
	PlayEnd()
	PlayError()
}
