// Package stt defines the speech-to-text interface.
//
// Storefront ships with two backends: OpenAI (cloud Whisper / gpt-4o
// transcription) and Local (any self-hosted Whisper-compatible endpoint).
package stt

import (
	"context"
	"strings"
)

// Transcriber converts recorded audio to text.
type Transcriber interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// Transcribe converts audio bytes to text.
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

// ExtFromContentType maps an audio MIME type to a file extension the
// transcription APIs accept. Unknown types are sent as WAV.
func ExtFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "m4a"), strings.Contains(ct, "mp4"):
		return ".m4a"
	default:
		return ".wav"
	}
}
