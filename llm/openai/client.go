package openai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plansmith"
	"github.com/sashabaranov/go-openai"
)

// generationParameters represents the parameters for text generation.
type generationParameters struct {
	// Temperature controls randomness in the output.
	// Higher values make the output more random, lower values make it more focused.
	Temperature float32

	// TopP controls diversity via nucleus sampling.
	TopP float32

	// MaxTokens limits the number of tokens to generate.
	MaxTokens int
}

// Client is a plansmith.Oracle backed by the OpenAI chat completion API.
type Client struct {
	// client is the underlying OpenAI client.
	client *openai.Client

	// defaultModel is the model to use for chat completions.
	// It can be overridden per call with plansmith.WithModelOverride.
	defaultModel string

	// baseURL is a custom base URL for OpenAI-compatible endpoints.
	// If empty, the default OpenAI API endpoint is used.
	baseURL string

	// generation parameters
	params generationParameters
}

const (
	DefaultModel = "gpt-4o"
)

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the default model used for chat completions.
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithBaseURL sets a custom base URL, for OpenAI-compatible endpoints.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTemperature sets the temperature parameter for text generation.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.params.Temperature = temp
	}
}

// WithTopP sets the top_p parameter for text generation.
func WithTopP(topP float32) Option {
	return func(c *Client) {
		c.params.TopP = topP
	}
}

// WithMaxTokens limits the number of tokens to generate.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.params.MaxTokens = maxTokens
	}
}

// New creates a new OpenAI oracle.
func New(apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("apiKey is required")
	}

	client := &Client{
		defaultModel: DefaultModel,
		params: generationParameters{
			Temperature: 0.7,
		},
	}

	for _, opt := range options {
		opt(client)
	}

	if client.baseURL != "" {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = client.baseURL
		client.client = openai.NewClientWithConfig(cfg)
	} else {
		client.client = openai.NewClient(apiKey)
	}

	return client, nil
}

// SendChat sends the message sequence and returns the full response text.
// When a chunk callback is set, the response is streamed and chunks are
// forwarded, but the complete text is still returned.
func (c *Client) SendChat(ctx context.Context, messages []plansmith.Message, options ...plansmith.ChatOption) (string, error) {
	cfg := plansmith.NewChatConfig(options...)

	model := c.defaultModel
	if cfg.Model() != "" {
		model = cfg.Model()
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(messages),
		Temperature: c.params.Temperature,
		TopP:        c.params.TopP,
		MaxTokens:   c.params.MaxTokens,
	}

	if cfg.OnChunk() == nil {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", goerr.Wrap(err, "failed to create chat completion")
		}
		if len(resp.Choices) == 0 {
			return "", goerr.New("no choices in chat completion response")
		}
		return resp.Choices[0].Message.Content, nil
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create chat completion stream")
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", goerr.Wrap(err, "failed to receive chat completion chunk")
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		cfg.OnChunk()(delta)
	}

	return full.String(), nil
}

func convertMessages(messages []plansmith.Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    convertRole(msg.Role),
			Content: msg.Content,
		})
	}
	return converted
}

func convertRole(role plansmith.MessageRole) string {
	switch role {
	case plansmith.RoleSystem:
		return openai.ChatMessageRoleSystem
	case plansmith.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
