// Package enhance derives a polished rendition of a snapshot's rendered
// text using an LLM. It is optional: without an API key the client is
// disabled and enhancement is a no-op.
package enhance

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const systemPrompt = `You refine prompt templates. Rewrite the user's prompt text to be clearer and more effective while preserving its intent and every concrete value it contains. Return only the rewritten prompt.`

// Config configures the enhancement client.
type Config struct {
	APIKey  string
	Model   string
	Enabled bool
}

// Client calls the OpenAI chat completions API to enhance rendered
// snapshot text.
type Client struct {
	api          openai.Client
	defaultModel string
	enabled      bool
}

// New creates an enhancement client. The client is disabled when the
// config says so or no API key is present.
func New(cfg Config) *Client {
	c := &Client{
		defaultModel: cfg.Model,
		enabled:      cfg.Enabled && cfg.APIKey != "",
	}
	if c.enabled {
		c.api = openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithMaxRetries(2),
		)
	}
	return c
}

// Enabled reports whether enhancement calls will be made.
func (c *Client) Enabled() bool { return c.enabled }

// Enhance returns an improved rendition of the rendered text. The model
// argument, when set, overrides the configured default. A disabled client
// or empty input returns empty output with no error.
func (c *Client) Enhance(ctx context.Context, rendered, model string) (string, error) {
	if !c.enabled || strings.TrimSpace(rendered) == "" {
		return "", nil
	}
	if model == "" {
		model = c.defaultModel
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(rendered),
		},
	})
	if err != nil {
		return "", fmt.Errorf("enhance call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("enhance call returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
