// Package openai implements the Transcriber interface using OpenAI's
// Audio Transcription API (Whisper / gpt-4o-transcribe).
package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/stt"
)

// Transcriber uses the OpenAI transcription endpoint.
type Transcriber struct {
	client *goopenai.Client
	model  string
	lang   string
}

// New creates a new OpenAI transcriber from config.
func New(cfg config.OpenAIConfig, language string) *Transcriber {
	return &Transcriber{
		client: NewClient(cfg),
		model:  cfg.TranscriptionModel,
		lang:   language,
	}
}

// NewClient builds a go-openai client honoring a custom base URL.
func NewClient(cfg config.OpenAIConfig) *goopenai.Client {
	c := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return goopenai.NewClientWithConfig(c)
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "openai" }

// Transcribe sends audio to the OpenAI Transcription API.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio")
	}

	model := t.model
	if model == "" {
		model = goopenai.Whisper1
	}

	resp, err := t.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    model,
		FilePath: "audio" + stt.ExtFromContentType(contentType),
		Reader:   bytes.NewReader(audio),
		Language: t.lang,
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	slog.Debug("transcription complete", "text_length", len(text), "model", model)
	return text, nil
}

var _ stt.Transcriber = (*Transcriber)(nil)
