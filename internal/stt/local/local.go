// Package local implements the Transcriber interface using a self-hosted
// Whisper-compatible endpoint (e.g., whisper.cpp server, faster-whisper,
// ahmetoner/whisper-asr-webservice).
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/stt"
)

// Transcriber uses a self-hosted Whisper server.
type Transcriber struct {
	endpoint  string
	flavor    string // "openai" or "asr"
	model     string
	vadFilter bool
	language  string
	client    *http.Client
}

// New creates a new local transcriber from config.
func New(cfg config.LocalWhisperConfig, client *http.Client) *Transcriber {
	flavor := cfg.Type
	if flavor == "" {
		flavor = "openai"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Transcriber{
		endpoint:  cfg.Endpoint,
		flavor:    flavor,
		model:     cfg.Model,
		vadFilter: cfg.VADFilter,
		language:  cfg.Language,
		client:    client,
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "local" }

// Transcribe sends audio to the local endpoint.
// Supports two flavors:
//   - "openai": OpenAI-compatible API (whisper.cpp server, faster-whisper)
//   - "asr":    ahmetoner/whisper-asr-webservice (POST /asr with query params)
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio")
	}
	switch t.flavor {
	case "asr":
		return t.transcribeASR(ctx, audio, contentType)
	default:
		return t.transcribeOpenAI(ctx, audio, contentType)
	}
}

// transcribeASR handles the whisper-asr-webservice format.
// API: POST /asr?task=transcribe&language=en&output=json&vad_filter=true
// Body: multipart/form-data with field "audio_file"
func (t *Transcriber) transcribeASR(ctx context.Context, audio []byte, contentType string) (string, error) {
	body, formType, err := multipartAudio("audio_file", audio, contentType, nil)
	if err != nil {
		return "", err
	}

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if t.language != "" {
		q.Set("language", t.language)
	}
	if t.vadFilter {
		q.Set("vad_filter", "true")
	}

	reqURL := t.endpoint + "?" + q.Encode()
	slog.Debug("whisper-asr request", "url", reqURL)
	return t.post(ctx, reqURL, body, formType)
}

// transcribeOpenAI handles OpenAI-compatible whisper endpoints.
func (t *Transcriber) transcribeOpenAI(ctx context.Context, audio []byte, contentType string) (string, error) {
	fields := map[string]string{"response_format": "json"}
	if t.model != "" {
		fields["model"] = t.model
	}
	if t.language != "" {
		fields["language"] = t.language
	}
	body, formType, err := multipartAudio("file", audio, contentType, fields)
	if err != nil {
		return "", err
	}
	return t.post(ctx, t.endpoint, body, formType)
}

func (t *Transcriber) post(ctx context.Context, endpoint string, body *bytes.Buffer, formType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", formType)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("local transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("local transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	slog.Debug("local transcription complete", "flavor", t.flavor, "text_length", len(text))
	return text, nil
}

func multipartAudio(field string, audio []byte, contentType string, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, "audio"+stt.ExtFromContentType(contentType))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

var _ stt.Transcriber = (*Transcriber)(nil)
