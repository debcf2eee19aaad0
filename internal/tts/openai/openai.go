// Package openai implements the TTS Synthesizer using OpenAI's speech endpoint.
package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/tts"
)

// Synthesizer implements tts.Synthesizer using /v1/audio/speech.
type Synthesizer struct {
	client *goopenai.Client
	model  string
	voice  string
}

// New creates a new OpenAI synthesizer from config.
func New(cfg config.OpenAIConfig) *Synthesizer {
	c := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	model := cfg.TTSModel
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	voice := cfg.TTSVoice
	if voice == "" {
		voice = "marin"
	}
	return &Synthesizer{
		client: goopenai.NewClientWithConfig(c),
		model:  model,
		voice:  voice,
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "openai" }

// Synthesize returns MP3 audio for text.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	voice := opts.Voice
	if voice == "" {
		voice = s.voice
	}

	resp, err := s.client.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(s.model),
		Input:          text,
		Voice:          goopenai.SpeechVoice(voice),
		ResponseFormat: goopenai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading speech audio: %w", err)
	}

	slog.Debug("openai speech complete", "voice", voice, "audio_bytes", len(audio))
	return &tts.SynthesizeResult{Audio: audio, ContentType: "audio/mpeg"}, nil
}

// Close is a no-op for the OpenAI synthesizer.
func (s *Synthesizer) Close() error { return nil }

var _ tts.Synthesizer = (*Synthesizer)(nil)
