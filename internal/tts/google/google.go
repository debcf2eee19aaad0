// Package google implements the TTS Synthesizer using Google Cloud Text-to-Speech.
//
// Credentials come from Application Default Credentials.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/tts"
)

const (
	defaultVoice    = "en-US-Chirp3-HD-Leda"
	defaultLanguage = "en-US"
)

// Synthesizer implements tts.Synthesizer using Google Cloud TTS.
type Synthesizer struct {
	client       *texttospeech.Client
	voice        string
	languageCode string
	speakingRate float64
}

// New creates a Google Cloud TTS client from config.
func New(ctx context.Context, cfg config.GoogleTTSConfig) (*Synthesizer, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create Google TTS client: %w", err)
	}

	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	lang := cfg.LanguageCode
	if lang == "" {
		lang = defaultLanguage
	}
	return &Synthesizer{
		client:       client,
		voice:        voice,
		languageCode: lang,
		speakingRate: cfg.SpeakingRate,
	}, nil
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "google" }

// Synthesize returns MP3 audio for text.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	voice := opts.Voice
	if voice == "" {
		voice = s.voice
	}

	start := time.Now()
	resp, err := s.client.SynthesizeSpeech(ctx, s.request(text, voice))
	if err != nil {
		return nil, fmt.Errorf("Google TTS synthesize: %w", err)
	}

	slog.Debug("google speech complete",
		"voice", voice,
		"chars", len(text),
		"audio_bytes", len(resp.AudioContent),
		"duration", time.Since(start).Round(time.Millisecond))
	return &tts.SynthesizeResult{Audio: resp.AudioContent, ContentType: "audio/mpeg"}, nil
}

func (s *Synthesizer) request(text, voice string) *texttospeechpb.SynthesizeSpeechRequest {
	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	if s.speakingRate != 0 {
		audioCfg.SpeakingRate = s.speakingRate
	}
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: s.languageCode,
			Name:         voice,
		},
		AudioConfig: audioCfg,
	}
}

// Close closes the gRPC connection to Google.
func (s *Synthesizer) Close() error { return s.client.Close() }

var _ tts.Synthesizer = (*Synthesizer)(nil)
