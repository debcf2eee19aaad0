package piper

import (
	"bufio"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/tts"
)

// fakeWyoming accepts one connection, reads the synthesize event and
// answers with the given events.
func fakeWyoming(t *testing.T, reply func(conn net.Conn, req *event)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req, _, err := readEvent(bufio.NewReader(conn))
		if err != nil {
			return
		}
		reply(conn, req)
	}()
	return ln.Addr().String()
}

func TestSynthesize(t *testing.T) {
	voiceCh := make(chan string, 1)
	addr := fakeWyoming(t, func(conn net.Conn, req *event) {
		voice, _ := req.Data["voice"].(map[string]any)
		name, _ := voice["name"].(string)
		voiceCh <- name
		_ = writeEvent(conn, event{Type: "audio-start", Data: map[string]any{"rate": 16000, "channels": 1, "width": 2}}, nil)
		_ = writeEvent(conn, event{Type: "audio-chunk"}, []byte{1, 2, 3, 4})
		_ = writeEvent(conn, event{Type: "audio-chunk"}, []byte{5, 6})
		_ = writeEvent(conn, event{Type: "audio-stop"}, nil)
	})

	s := New(config.PiperConfig{Endpoint: "tcp://" + addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.Synthesize(ctx, "I want my money back.", tts.SynthesizeOpts{Language: "en"})
	require.NoError(t, err)
	require.Equal(t, "audio/wav", res.ContentType)
	require.Equal(t, "en_US-lessac-medium", <-voiceCh)

	require.Len(t, res.Audio, 44+6)
	require.Equal(t, "RIFF", string(res.Audio[0:4]))
	require.Equal(t, "WAVE", string(res.Audio[8:12]))
	require.Equal(t, uint32(16000), binary.LittleEndian.Uint32(res.Audio[24:28]))
	require.Equal(t, uint32(6), binary.LittleEndian.Uint32(res.Audio[40:44]))
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, res.Audio[44:])
}

func TestSynthesizeServerError(t *testing.T) {
	addr := fakeWyoming(t, func(conn net.Conn, _ *event) {
		_ = writeEvent(conn, event{Type: "error", Data: map[string]any{"text": "voice not found"}}, nil)
	})

	s := New(config.PiperConfig{Endpoint: addr})
	_, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Voice: "xx_missing"})
	require.ErrorContains(t, err, "voice not found")
}

func TestSynthesizeValidation(t *testing.T) {
	_, err := New(config.PiperConfig{Endpoint: "127.0.0.1:1"}).Synthesize(context.Background(), "", tts.SynthesizeOpts{})
	require.Error(t, err)

	_, err = New(config.PiperConfig{}).Synthesize(context.Background(), "hi", tts.SynthesizeOpts{})
	require.ErrorContains(t, err, "no piper endpoint")
}

func TestVoiceSelection(t *testing.T) {
	s := New(config.PiperConfig{Voices: map[string]string{"en": "en_GB-alba-medium"}})
	require.Equal(t, "en_GB-alba-medium", s.voiceFor(tts.SynthesizeOpts{Language: "en"}))
	require.Equal(t, "fr_FR-siwis-medium", s.voiceFor(tts.SynthesizeOpts{Language: "fr"}))
	require.Equal(t, "en_GB-alba-medium", s.voiceFor(tts.SynthesizeOpts{Language: "xx"}))
	require.Equal(t, "custom", s.voiceFor(tts.SynthesizeOpts{Voice: "custom"}))
}
