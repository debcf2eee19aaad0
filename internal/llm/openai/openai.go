// Package openai implements the llm backends using OpenAI's APIs.
//
// Completions (tone classification, session critique) go through the Chat
// Completions API via go-openai. Persona replies use the Responses API,
// whose previous_response_id lets OpenAI keep the conversation context
// server-side; go-openai does not cover that endpoint, so it is called
// directly over HTTP.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Completer uses the Chat Completions API.
type Completer struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

// NewCompleter creates a Completer for the given model.
func NewCompleter(cfg config.OpenAIConfig, model string, temperature float32) *Completer {
	c := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Completer{
		client:      goopenai.NewClientWithConfig(c),
		model:       model,
		temperature: temperature,
	}
}

// Complete sends one system and one user message and returns the first choice.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from chat API")
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("chat completion", "model", c.model, "content_length", len(content))
	return content, nil
}

// Responder uses the Responses API with previous_response_id threading.
type Responder struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewResponder creates a Responder from config.
func NewResponder(cfg config.OpenAIConfig, client *http.Client) *Responder {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Responder{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   cfg.PersonaModel,
		client:  client,
	}
}

// Respond creates a response, chaining it to req.PreviousResponseID when set.
func (r *Responder) Respond(ctx context.Context, req llm.Request) (*llm.Response, error) {
	reqBody := responsesRequest{
		Model:              r.model,
		PreviousResponseID: req.PreviousResponseID,
		Input: []inputMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling responses request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/responses", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating responses request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("responses request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("responses failed (status %d): %s", resp.StatusCode, respBody)
	}

	var out responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding responses response: %w", err)
	}
	if out.Error != nil && out.Error.Message != "" {
		return nil, fmt.Errorf("responses error: %s", out.Error.Message)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("responses returned no id")
	}

	text := out.outputText()
	slog.Debug("response created",
		"model", r.model,
		"chained", req.PreviousResponseID != "",
		"text_length", len(text))
	return &llm.Response{ID: out.ID, Text: text}, nil
}

// --- Internal types and helpers ---

type responsesRequest struct {
	Model              string         `json:"model"`
	PreviousResponseID string         `json:"previous_response_id,omitempty"`
	Input              []inputMessage `json:"input"`
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesResponse struct {
	ID     string `json:"id"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// outputText concatenates every output_text part of every message item.
func (r *responsesResponse) outputText() string {
	var sb strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}

var (
	_ llm.Completer = (*Completer)(nil)
	_ llm.Responder = (*Responder)(nil)
)
