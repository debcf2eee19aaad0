// Package piper implements the TTS Synthesizer using a Piper Wyoming protocol server.
//
// Piper is a fast, local neural text-to-speech system; it lets the
// simulation run offline next to the local Whisper transcriber.
//
// Wyoming protocol format (per event):
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/tts"
)

// defaultVoices maps ISO-639-1 language codes to Piper voice model names.
var defaultVoices = map[string]string{
	"en": "en_US-lessac-medium",
	"fr": "fr_FR-siwis-medium",
	"es": "es_ES-mls_10246-low",
	"de": "de_DE-thorsten-medium",
}

// Synthesizer implements tts.Synthesizer using the Wyoming protocol.
type Synthesizer struct {
	endpoint string
	voices   map[string]string
	timeout  time.Duration
}

// New creates a new Piper synthesizer from config.
func New(cfg config.PiperConfig) *Synthesizer {
	voices := make(map[string]string, len(defaultVoices)+len(cfg.Voices))
	for k, v := range defaultVoices {
		voices[k] = v
	}
	for k, v := range cfg.Voices {
		voices[k] = v
	}

	endpoint := strings.TrimPrefix(cfg.Endpoint, "tcp://")
	return &Synthesizer{
		endpoint: endpoint,
		voices:   voices,
		timeout:  30 * time.Second,
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "piper" }

func (s *Synthesizer) voiceFor(opts tts.SynthesizeOpts) string {
	if opts.Voice != "" {
		return opts.Voice
	}
	if v := s.voices[opts.Language]; v != "" {
		return v
	}
	return s.voices["en"]
}

// Synthesize sends text to the Piper server and returns synthesized audio as WAV.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	if s.endpoint == "" {
		return nil, fmt.Errorf("no piper endpoint configured")
	}
	voice := s.voiceFor(opts)

	slog.Debug("piper synthesize", "text_length", len(text), "voice", voice, "endpoint", s.endpoint)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	err = writeEvent(conn, event{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": voice},
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	pcm, format, err := collectAudio(bufio.NewReader(conn))
	if err != nil {
		return nil, err
	}
	return &tts.SynthesizeResult{
		Audio:       pcmToWAV(pcm, format),
		ContentType: "audio/wav",
	}, nil
}

// Close is a no-op: connections are per-request.
func (s *Synthesizer) Close() error { return nil }

type audioFormat struct {
	rate     int
	channels int
	width    int
}

// collectAudio reads audio-start, audio-chunk* and audio-stop events.
func collectAudio(r io.Reader) ([]byte, audioFormat, error) {
	var pcm bytes.Buffer
	format := audioFormat{rate: 22050, channels: 1, width: 2}

	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return nil, format, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			if v, ok := evt.Data["rate"].(float64); ok {
				format.rate = int(v)
			}
			if v, ok := evt.Data["channels"].(float64); ok {
				format.channels = int(v)
			}
			if v, ok := evt.Data["width"].(float64); ok {
				format.width = int(v)
			}
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			slog.Debug("piper audio-stop", "pcm_bytes", pcm.Len(), "rate", format.rate)
			return pcm.Bytes(), format, nil
		case "error":
			msg := "unknown error"
			if text, ok := evt.Data["text"].(string); ok {
				msg = text
			}
			return nil, format, fmt.Errorf("piper error: %s", msg)
		default:
			slog.Debug("piper unknown event", "type", evt.Type)
		}
	}
}

// --- Wyoming protocol helpers ---

type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// writeEvent sends a Wyoming event.
func writeEvent(w io.Writer, evt event, payload []byte) error {
	jsonBytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(jsonBytes), len(payload))
	buf.Write(jsonBytes)
	buf.WriteByte('\n')
	buf.Write(payload)

	_, err = w.Write(buf.Bytes())
	return err
}

// readEvent reads one Wyoming event and its payload.
func readEvent(r io.Reader) (*event, []byte, error) {
	var header []byte
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, one); err != nil {
			return nil, nil, fmt.Errorf("reading header: %w", err)
		}
		if one[0] == '\n' {
			break
		}
		header = append(header, one[0])
	}

	parts := strings.Fields(string(header))
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid wyoming header: %q", string(header))
	}
	jsonLen, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("parsing json_length: %w", err)
	}
	payloadLen, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("parsing payload_length: %w", err)
	}

	// JSON plus its trailing newline.
	jsonBuf := make([]byte, jsonLen+1)
	if _, err := io.ReadFull(r, jsonBuf); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}

	var evt event
	if err := json.Unmarshal(jsonBuf[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return &evt, payload, nil
}

// pcmToWAV wraps raw PCM data in a 44-byte WAV header.
func pcmToWAV(pcm []byte, f audioFormat) []byte {
	buf := &bytes.Buffer{}
	buf.Grow(44 + len(pcm))

	le := func(v any) { _ = binary.Write(buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	le(uint32(36 + len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	le(uint32(16))
	le(uint16(1)) // PCM
	le(uint16(f.channels))
	le(uint32(f.rate))
	le(uint32(f.rate * f.channels * f.width))
	le(uint16(f.channels * f.width))
	le(uint16(f.width * 8))

	buf.WriteString("data")
	le(uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
