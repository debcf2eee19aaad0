package google

import (
	"testing"

	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/stretchr/testify/require"
)

func TestRequest(t *testing.T) {
	s := &Synthesizer{voice: defaultVoice, languageCode: "en-GB", speakingRate: 1.1}

	req := s.request("I want a refund.", "en-GB-Chirp3-HD-Kore")
	require.Equal(t, "I want a refund.", req.GetInput().GetText())
	require.Equal(t, "en-GB", req.GetVoice().GetLanguageCode())
	require.Equal(t, "en-GB-Chirp3-HD-Kore", req.GetVoice().GetName())
	require.Equal(t, texttospeechpb.AudioEncoding_MP3, req.GetAudioConfig().GetAudioEncoding())
	require.InDelta(t, 1.1, req.GetAudioConfig().GetSpeakingRate(), 1e-9)
}

func TestRequestDefaultRate(t *testing.T) {
	s := &Synthesizer{voice: defaultVoice, languageCode: defaultLanguage}
	req := s.request("hi", defaultVoice)
	require.Zero(t, req.GetAudioConfig().GetSpeakingRate())
}
