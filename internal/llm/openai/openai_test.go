package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/llm"
)

func TestResponderThreadsPreviousResponseID(t *testing.T) {
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/responses", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = append(got, body)

		id := "resp_a"
		if len(got) == 2 {
			id = "resp_b"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": id,
			"output": []any{
				map[string]any{"type": "reasoning"},
				map[string]any{
					"type": "message",
					"content": []any{
						map[string]any{"type": "output_text", "text": "This broke after two days. "},
						map[string]any{"type": "output_text", "text": "I want it fixed."},
					},
				},
			},
		})
	}))
	defer srv.Close()

	r := NewResponder(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", PersonaModel: "gpt-4.1"}, srv.Client())
	ctx := context.Background()

	first, err := r.Respond(ctx, llm.Request{System: "persona", User: "hi"})
	require.NoError(t, err)
	require.Equal(t, "resp_a", first.ID)
	require.Equal(t, "This broke after two days. I want it fixed.", first.Text)
	require.NotContains(t, got[0], "previous_response_id")
	require.Equal(t, "gpt-4.1", got[0]["model"])

	input := got[0]["input"].([]any)
	require.Len(t, input, 2)
	require.Equal(t, "system", input[0].(map[string]any)["role"])
	require.Equal(t, "persona", input[0].(map[string]any)["content"])
	require.Equal(t, "hi", input[1].(map[string]any)["content"])

	second, err := r.Respond(ctx, llm.Request{System: "persona", User: "again", PreviousResponseID: first.ID})
	require.NoError(t, err)
	require.Equal(t, "resp_b", second.ID)
	require.Equal(t, "resp_a", got[1]["previous_response_id"])
}

func TestResponderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"previous response not found"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	r := NewResponder(config.OpenAIConfig{BaseURL: srv.URL}, srv.Client())
	_, err := r.Respond(context.Background(), llm.Request{User: "hi", PreviousResponseID: "resp_gone"})
	require.ErrorContains(t, err, "status 400")
}

func TestResponderMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[]}`))
	}))
	defer srv.Close()

	r := NewResponder(config.OpenAIConfig{BaseURL: srv.URL}, srv.Client())
	_, err := r.Respond(context.Background(), llm.Request{User: "hi"})
	require.ErrorContains(t, err, "no id")
}

func TestCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "gpt-4.1-mini", body.Model)
		require.Len(t, body.Messages, 2)
		require.Equal(t, "system", body.Messages[0].Role)
		require.Equal(t, "user", body.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"defensive"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewCompleter(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, "gpt-4.1-mini", 0)
	out, err := c.Complete(context.Background(), "classify", "This is your fault, not mine")
	require.NoError(t, err)
	require.Equal(t, "defensive", out)
}

func TestCompleterNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer srv.Close()

	c := NewCompleter(config.OpenAIConfig{BaseURL: srv.URL + "/v1"}, "gpt-4.1-mini", 0)
	_, err := c.Complete(context.Background(), "classify", "hi")
	require.ErrorContains(t, err, "no choices")
}
