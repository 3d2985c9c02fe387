package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"voxpaste/encoder"
	"voxpaste/log"
)

const tempPrefix = "voxpaste_"

// Job is one recording on its way to text. It owns the WAV temp file
// until Release.
type Job struct {
	ID         string
	WAVPath    string
	Samples    []int16
	SampleRate int
	Duration   time.Duration
	StoppedAt  time.Time
}

// NewJob writes samples to a uuid-named WAV in dir. On failure nothing is
// left behind.
func NewJob(dir string, samples []int16, sampleRate int) (*Job, error) {
	id := uuid.NewString()
	path := filepath.Join(dir, tempPrefix+id+".wav")
	if err := encoder.WriteWAV(path, samples, sampleRate); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write job audio: %w", err)
	}
	return &Job{
		ID:         id,
		WAVPath:    path,
		Samples:    samples,
		SampleRate: sampleRate,
		Duration:   time.Duration(len(samples)) * time.Second / time.Duration(sampleRate),
		StoppedAt:  time.Now(),
	}, nil
}

// Release removes the temp file. It is safe to call more than once.
func (j *Job) Release() {
	if err := os.Remove(j.WAVPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("remove %s: %v", j.WAVPath, err)
	}
}

// CleanStale removes leftover job files older than maxAge, e.g. after a
// crash. It returns how many were removed.
func CleanStale(dir string, maxAge time.Duration) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, ".wav") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(dir, name)) == nil {
			removed++
		}
	}
	if removed > 0 {
		log.Infof("removed %d stale temp files from %s", removed, dir)
	}
	return removed
}
