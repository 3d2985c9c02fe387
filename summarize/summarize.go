// Package summarize produces the short summary stored next to each
// transcription.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voxpaste/log"
)

const (
	maxSentences = 3
	maxChars     = 200
)

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Extractive keeps the leading sentences. It never fails.
type Extractive struct{}

func (Extractive) Summarize(_ context.Context, text string) (string, error) {
	return extract(text), nil
}

func extract(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	end, count := len(text), 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + 1
		if next < len(text) && !unicode.IsSpace(rune(text[next])) {
			continue
		}
		count++
		if count == maxSentences {
			end = next
			break
		}
	}
	out := text[:end]

	runes := []rune(out)
	if len(runes) > maxChars {
		out = strings.TrimSpace(string(runes[:maxChars])) + "..."
	}
	return out
}

// LLM asks a chat model for a summary and falls back to Extractive on
// any failure.
type LLM struct {
	client openai.Client
	model  string
}

func NewLLM(apiKey, baseURL, model string) *LLM {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &LLM{client: openai.NewClient(opts...), model: model}
}

const prompt = "Summarize the user's dictated text in one or two short sentences. Reply with the summary only."

func (l *LLM) Summarize(ctx context.Context, text string) (string, error) {
	s, err := l.complete(ctx, text)
	if err != nil {
		log.Warnf("summary model failed, using extractive: %v", err)
		return extract(text), nil
	}
	return s, nil
}

func (l *LLM) complete(ctx context.Context, text string) (string, error) {
	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: l.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	s := strings.TrimSpace(resp.Choices[0].Message.Content)
	if s == "" {
		return "", fmt.Errorf("empty completion")
	}
	return s, nil
}

// New returns the LLM summarizer when an API key is present, else the
// extractive one.
func New(apiKey, baseURL, model string) Summarizer {
	if apiKey == "" {
		return Extractive{}
	}
	return NewLLM(apiKey, baseURL, model)
}
