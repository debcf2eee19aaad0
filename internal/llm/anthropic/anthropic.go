// Package anthropic implements llm.Completer using Anthropic's Messages API.
//
// It can serve tone classification and the session critique. The persona
// itself needs provider-side continuation and stays on OpenAI.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/llm"
)

var models = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

const defaultMaxTokens = 1024

// Completer uses the Messages API.
type Completer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Completer from config. Model may be a short alias
// ("haiku", "sonnet") or a full model ID.
func New(cfg config.AnthropicConfig) *Completer {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if id, ok := models[model]; ok {
		model = id
	}
	if model == "" {
		model = models["haiku"]
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Completer{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete sends the system instruction and user message and joins the text blocks of the reply.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Claude API error: %w", err)
	}

	text := extractText(message)
	slog.Debug("claude completion", "model", c.model, "content_length", len(text))
	return text, nil
}

func extractText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

var _ llm.Completer = (*Completer)(nil)
