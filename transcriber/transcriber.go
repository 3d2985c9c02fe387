package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"voxpaste/config"
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

type Segment struct {
	Text         string
	NoSpeechProb float64
	AvgLogProb   float64
	Start        float64
	End          float64
}

type Result struct {
	Text         string
	Metrics      *NetworkMetrics // nil for non-HTTP backends
	RateLimit    string
	NoSpeechProb float64
	AvgLogProb   float64
	Duration     float64
	Segments     []Segment
}

// Transcriber turns a 16-bit mono WAV file into text. Implementations
// must honor ctx cancellation.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, wavPath string) (*Result, error)
}

// whisper size names; hosted backends map these to their own model.
var whisperSizes = map[string]bool{
	"tiny": true, "base": true, "small": true, "medium": true,
	"large": true, "large-v2": true, "large-v3": true, "large-v3-turbo": true,
}

func hostedModel(model, fallback string) string {
	if model == "" || whisperSizes[strings.TrimSuffix(model, ".en")] {
		return fallback
	}
	return model
}

// New picks a backend from cfg. With backend "auto" the order is OpenAI,
// Groq, then a local whisper.cpp install.
func New(cfg *config.Config) (Transcriber, error) {
	switch cfg.Backend {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("backend openai needs OPENAI_API_KEY")
		}
		return NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Model, cfg.Lang), nil
	case "groq":
		if cfg.Groq.APIKey == "" {
			return nil, fmt.Errorf("backend groq needs GROQ_API_KEY")
		}
		return NewGroq(cfg.Groq.APIKey, cfg.Model, cfg.Lang), nil
	case "local":
		return NewLocal(cfg.Whisper.Bin, cfg.Whisper.ModelDir, cfg.Model, cfg.Lang)
	case "fake":
		return NewFake("", nil), nil
	}

	if cfg.OpenAI.APIKey != "" {
		return NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Model, cfg.Lang), nil
	}
	if cfg.Groq.APIKey != "" {
		return NewGroq(cfg.Groq.APIKey, cfg.Model, cfg.Lang), nil
	}
	if l, err := NewLocal(cfg.Whisper.Bin, cfg.Whisper.ModelDir, cfg.Model, cfg.Lang); err == nil {
		return l, nil
	}
	return nil, fmt.Errorf("no transcription backend: set OPENAI_API_KEY or GROQ_API_KEY, or install whisper.cpp")
}

func lookPath(names ...string) (string, error) {
	var firstErr error
	for _, n := range names {
		p, err := exec.LookPath(n)
		if err == nil {
			return p, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}
