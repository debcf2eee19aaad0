package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nadzzz/storefront/internal/config"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "whisper-1", r.FormValue("model"))
		require.Equal(t, "en", r.FormValue("language"))
		require.Equal(t, "json", r.FormValue("response_format"))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "audio.webm", header.Filename)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, []byte("webm-bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  This is your fault, not mine  "}`))
	}))
	defer srv.Close()

	tr := New(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, "en")
	text, err := tr.Transcribe(context.Background(), []byte("webm-bytes"), "audio/webm;codecs=opus")
	require.NoError(t, err)
	require.Equal(t, "This is your fault, not mine", text)
}

func TestTranscribeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid file format.","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	tr := New(config.OpenAIConfig{BaseURL: srv.URL + "/v1"}, "")
	_, err := tr.Transcribe(context.Background(), []byte("x"), "audio/wav")
	require.ErrorContains(t, err, "Invalid file format")

	_, err = tr.Transcribe(context.Background(), nil, "audio/wav")
	require.Error(t, err)
}
