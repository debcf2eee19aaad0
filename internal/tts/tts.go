// Package tts defines the interface for text-to-speech synthesis.
//
// Storefront speaks every customer reply back to the salesperson. The
// synthesizer is optional: when it is disabled or fails, the turn still
// completes with text only.
package tts

import "context"

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the ISO-639-1 code (e.g., "en") used for voice selection.
	Language string

	// Voice overrides the backend's configured voice.
	Voice string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "openai", "google", "piper").
	Name() string

	// Synthesize generates audio for the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the encoded audio (MP3 or WAV depending on the backend).
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/mpeg").
	ContentType string
}
