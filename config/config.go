package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Model   string `env:"WHISPER_MODEL" yaml:"model"`             // model size (local) or model name (hosted)
	Backend string `env:"VOXPASTE_BACKEND" yaml:"backend"`        // auto|openai|groq|local|fake
	Lang    string `env:"VOXPASTE_LANGUAGE" yaml:"language"`      // ISO-639-1, empty = auto-detect
	Hotkey  string `env:"VOXPASTE_HOTKEY" yaml:"hotkey"`          // e.g. ctrl+super, ctrl+shift+space
	Hook    string `env:"VOXPASTE_HOOK" yaml:"hook"`              // raw|registered
	UI      string `env:"VOXPASTE_UI" yaml:"ui"`                  // tray|tui|gui|none
	Device  string `env:"VOXPASTE_DEVICE" yaml:"device"`          // capture device name, empty = system default
	DataDir string `env:"VOXPASTE_DATA_DIR" yaml:"data_dir"`      // database and archived audio
	TempDir string `env:"VOXPASTE_TEMP_DIR" yaml:"temp_dir"`      // per-session WAV artifacts
	LogPath string `env:"VOXPASTE_LOG_PATH" yaml:"log_path"`

	SampleRate        int           `env:"VOXPASTE_SAMPLE_RATE" yaml:"sample_rate"`
	PasteSettle       time.Duration `env:"VOXPASTE_PASTE_SETTLE" yaml:"paste_settle"`
	TranscribeTimeout time.Duration `env:"VOXPASTE_TRANSCRIBE_TIMEOUT" yaml:"transcribe_timeout"`
	KeepAudio         bool          `env:"VOXPASTE_KEEP_AUDIO" yaml:"keep_audio"`
	Beep              bool          `env:"VOXPASTE_BEEP" yaml:"beep"`
	Verbose           bool          `env:"VOXPASTE_VERBOSE" yaml:"verbose"`

	Summary SummaryConfig `yaml:"summary"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Groq    GroqConfig    `yaml:"groq"`
	Whisper WhisperConfig `yaml:"whisper"`
}

type SummaryConfig struct {
	Enabled bool   `env:"VOXPASTE_SUMMARIZE" yaml:"enabled"`
	Model   string `env:"VOXPASTE_SUMMARY_MODEL" yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY" yaml:"api_key"`
	BaseURL string `env:"OPENAI_BASE_URL" yaml:"base_url"` // any OpenAI-compatible endpoint
}

type GroqConfig struct {
	APIKey string `env:"GROQ_API_KEY" yaml:"api_key"`
}

type WhisperConfig struct {
	Bin      string `env:"WHISPER_BIN" yaml:"bin"`             // whisper.cpp CLI, empty = search PATH
	ModelDir string `env:"WHISPER_MODEL_DIR" yaml:"model_dir"` // holds ggml-<model>.bin
}

// Defaults returns the configuration before any file, .env, environment
// or flag overrides.
func Defaults() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".voxpaste")
	return &Config{
		Model:             "small",
		Backend:           "auto",
		Hotkey:            "ctrl+super",
		Hook:              "raw",
		UI:                "tray",
		DataDir:           dataDir,
		TempDir:           os.TempDir(),
		SampleRate:        16000,
		PasteSettle:       50 * time.Millisecond,
		TranscribeTimeout: 2 * time.Minute,
		Beep:              true,
		Summary: SummaryConfig{
			Model: "gpt-4o-mini",
		},
		Whisper: WhisperConfig{
			ModelDir: filepath.Join(dataDir, "models"),
		},
	}
}

// Load layers Defaults, the YAML file, .env and the environment, in that
// order. An empty path means <data_dir>/config.yaml, which may be absent.
// Flags are applied by the caller afterwards, followed by Validate.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		if d := os.Getenv("VOXPASTE_DATA_DIR"); d != "" {
			cfg.DataDir = d
		}
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case "auto", "openai", "groq", "local", "fake":
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	switch c.Hook {
	case "raw", "registered":
	default:
		return fmt.Errorf("%w: unknown hook %q", ErrInvalid, c.Hook)
	}
	switch c.UI {
	case "tray", "tui", "gui", "none":
	default:
		return fmt.Errorf("%w: unknown ui %q", ErrInvalid, c.UI)
	}
	if c.SampleRate < 8000 || c.SampleRate > 48000 {
		return fmt.Errorf("%w: sample rate %d out of range 8000-48000", ErrInvalid, c.SampleRate)
	}
	if strings.TrimSpace(c.Hotkey) == "" {
		return fmt.Errorf("%w: empty hotkey", ErrInvalid)
	}
	if c.PasteSettle < 0 || c.TranscribeTimeout < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalid)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: empty data dir", ErrInvalid)
	}
	return nil
}

func (c *Config) DBDir() string      { return filepath.Join(c.DataDir, "db") }
func (c *Config) ArchiveDir() string { return filepath.Join(c.DataDir, "audio_files") }
