package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Local shells out to the whisper.cpp CLI.
type Local struct {
	bin       string
	modelPath string
	lang      string
}

// NewLocal resolves the whisper.cpp binary (bin, or whisper-cli /
// whisper-cpp on PATH) and the ggml-<model>.bin file in modelDir.
func NewLocal(bin, modelDir, model, lang string) (*Local, error) {
	var err error
	if bin == "" {
		bin, err = lookPath("whisper-cli", "whisper-cpp")
		if err != nil {
			return nil, fmt.Errorf("whisper.cpp not found: %w", err)
		}
	}
	modelPath := model
	if !strings.HasSuffix(model, ".bin") {
		modelPath = filepath.Join(modelDir, "ggml-"+model+".bin")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model: %w", err)
	}
	return &Local{bin: bin, modelPath: modelPath, lang: lang}, nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) args(wavPath string) []string {
	args := []string{"-m", l.modelPath, "-f", wavPath, "-nt", "-np"}
	if l.lang != "" {
		args = append(args, "-l", l.lang)
	} else {
		args = append(args, "-l", "auto")
	}
	return args
}

func (l *Local) Transcribe(ctx context.Context, wavPath string) (*Result, error) {
	cmd := exec.CommandContext(ctx, l.bin, l.args(wavPath)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("whisper.cpp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return &Result{Text: joinLines(stdout.String())}, nil
}

// joinLines flattens whisper.cpp's one-line-per-segment output.
func joinLines(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
