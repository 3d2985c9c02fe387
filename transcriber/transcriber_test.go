package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"voxpaste/config"
	"voxpaste/encoder"
)

func writeTestWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := encoder.WriteWAV(path, make([]int16, 1600), encoder.DefaultSampleRate); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNetworkMetricsSum(t *testing.T) {
	m := &NetworkMetrics{
		ConnWait:   10 * time.Millisecond,
		DNS:        20 * time.Millisecond,
		TCP:        30 * time.Millisecond,
		TLS:        40 * time.Millisecond,
		ReqHeaders: 5 * time.Millisecond,
		ReqBody:    15 * time.Millisecond,
		TTFB:       50 * time.Millisecond,
		Download:   25 * time.Millisecond,
	}
	got := m.Sum()
	want := 195 * time.Millisecond
	if got != want {
		t.Errorf("Sum() = %v, want %v", got, want)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Rate-Limit", "100")

	if got := firstNonEmpty(h, "X-Missing", "X-Rate-Limit"); got != "100" {
		t.Errorf("got %q, want %q", got, "100")
	}
	if got := firstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}

func TestHostedModel(t *testing.T) {
	for _, tt := range []struct{ in, want string }{
		{"", "whisper-1"},
		{"small", "whisper-1"},
		{"base.en", "whisper-1"},
		{"large-v3", "whisper-1"},
		{"gpt-4o-transcribe", "gpt-4o-transcribe"},
	} {
		t.Run(tt.in, func(t *testing.T) {
			if got := hostedModel(tt.in, "whisper-1"); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewSelectsBackend(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		want    string
		wantErr bool
	}{
		{"fake", func(c *config.Config) { c.Backend = "fake" }, "fake", false},
		{"openai explicit", func(c *config.Config) { c.Backend = "openai"; c.OpenAI.APIKey = "k" }, "openai", false},
		{"openai missing key", func(c *config.Config) { c.Backend = "openai" }, "", true},
		{"groq missing key", func(c *config.Config) { c.Backend = "groq" }, "", true},
		{"auto prefers openai", func(c *config.Config) { c.OpenAI.APIKey = "a"; c.Groq.APIKey = "b" }, "openai", false},
		{"auto groq", func(c *config.Config) { c.Groq.APIKey = "b" }, "groq", false},
		{"local missing model", func(c *config.Config) {
			c.Backend = "local"
			c.Whisper.Bin = "/bin/true"
			c.Whisper.ModelDir = "/nonexistent"
		}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			tt.mutate(cfg)
			tr, err := New(cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", tr.Name())
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tr.Name() != tt.want {
				t.Errorf("got %s, want %s", tr.Name(), tt.want)
			}
		})
	}
}

func TestGroqTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.FormValue("model") != "whisper-large-v3-turbo" || r.FormValue("language") != "en" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("x-ratelimit-remaining-requests", "9")
		w.Header().Set("x-ratelimit-limit-requests", "10")
		fmt.Fprint(w, `{"text":" hello world","duration":0.1,"segments":[{"text":"hello world","no_speech_prob":0.2,"avg_logprob":-0.3}]}`)
	}))
	defer srv.Close()

	g := &Groq{client: NewTracedClient(""), apiURL: srv.URL, apiKey: "secret", model: "whisper-large-v3-turbo", lang: "en"}
	res, err := g.Transcribe(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != " hello world" {
		t.Errorf("text = %q", res.Text)
	}
	if res.RateLimit != "9/10" {
		t.Errorf("rate limit = %q", res.RateLimit)
	}
	if res.NoSpeechProb != 0.2 || len(res.Segments) != 1 {
		t.Errorf("unexpected segments %+v", res)
	}
	if res.Metrics == nil {
		t.Error("expected network metrics")
	}
}

func TestGroqAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, "slow down")
	}))
	defer srv.Close()

	g := &Groq{client: NewTracedClient(""), apiURL: srv.URL, apiKey: "k", model: "m"}
	_, err := g.Transcribe(context.Background(), writeTestWAV(t))
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}

func TestOpenAITranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"hello from openai"}`)
	}))
	defer srv.Close()

	o := NewOpenAI("k", srv.URL+"/v1/", "small", "")
	res, err := o.Transcribe(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello from openai" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestLocalTranscribe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a unix shell")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "whisper-cli")
	script := "#!/bin/sh\necho ' hello'\necho ''\necho ' world '\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ggml-small.bin"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := NewLocal(bin, dir, "small", "de")
	if err != nil {
		t.Fatal(err)
	}
	args := strings.Join(l.args("a.wav"), " ")
	if !strings.Contains(args, "-l de") || !strings.Contains(args, "ggml-small.bin") {
		t.Errorf("unexpected args %q", args)
	}
	res, err := l.Transcribe(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello world" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestFakeHonorsContext(t *testing.T) {
	f := NewFake("late", nil).WithDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Transcribe(ctx, writeTestWAV(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
	if len(f.Calls()) != 1 {
		t.Errorf("calls = %d, want 1", len(f.Calls()))
	}
}

func TestFakeMissingFile(t *testing.T) {
	if _, err := NewFake("x", nil).Transcribe(context.Background(), "/nonexistent.wav"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
