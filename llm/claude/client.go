package claude

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plansmith"
)

// generationParameters represents the parameters for text generation.
type generationParameters struct {
	// Temperature controls randomness in the output.
	Temperature float64

	// TopP controls diversity via nucleus sampling.
	TopP float64

	// MaxTokens limits the number of tokens to generate.
	MaxTokens int64
}

// Client is a plansmith.Oracle backed by the Anthropic messages API.
type Client struct {
	// client is the underlying Claude client.
	client anthropic.Client

	// defaultModel is the model to use for chat completions.
	// It can be overridden per call with plansmith.WithModelOverride.
	defaultModel string

	// generation parameters
	params generationParameters
}

const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 4096
)

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the default model used for chat completions.
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithTemperature sets the temperature parameter for text generation.
// Range: 0.0 to 1.0.
func WithTemperature(temp float64) Option {
	return func(c *Client) {
		c.params.Temperature = temp
	}
}

// WithTopP sets the top_p parameter for text generation.
func WithTopP(topP float64) Option {
	return func(c *Client) {
		c.params.TopP = topP
	}
}

// WithMaxTokens limits the number of tokens to generate.
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.params.MaxTokens = maxTokens
	}
}

// New creates a new Claude oracle.
func New(apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("apiKey is required")
	}

	client := &Client{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: DefaultModel,
		params: generationParameters{
			Temperature: 0.7,
			MaxTokens:   DefaultMaxTokens,
		},
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// SendChat sends the message sequence and returns the full response text.
// System messages are folded into the API's system field; the Claude API
// does not accept them in the message list.
func (c *Client) SendChat(ctx context.Context, messages []plansmith.Message, options ...plansmith.ChatOption) (string, error) {
	cfg := plansmith.NewChatConfig(options...)

	model := c.defaultModel
	if cfg.Model() != "" {
		model = cfg.Model()
	}

	system, converted := convertMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   c.params.MaxTokens,
		Temperature: anthropic.Float(c.params.Temperature),
		Messages:    converted,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if cfg.OnChunk() == nil {
		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", goerr.Wrap(err, "failed to create message")
		}
		return responseText(resp), nil
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	var full strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				full.WriteString(delta.Text)
				cfg.OnChunk()(delta.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", goerr.Wrap(err, "failed to stream message")
	}

	return full.String(), nil
}

// convertMessages splits system content out and converts the rest.
// Consecutive system messages (the planner emits one per correction) are
// joined into a single system string.
func convertMessages(messages []plansmith.Message) (string, []anthropic.MessageParam) {
	var system []string
	converted := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case plansmith.RoleSystem:
			system = append(system, msg.Content)
		case plansmith.RoleAssistant:
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return strings.Join(system, "\n\n"), converted
}

func responseText(resp *anthropic.Message) string {
	var texts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n")
}
