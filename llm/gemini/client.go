package gemini

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plansmith"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash"
)

// Client is a plansmith.Oracle backed by the Gemini API or Vertex AI
// through the google genai SDK.
type Client struct {
	// client is the underlying genai client.
	client *genai.Client

	// defaultModel is the model to use for content generation.
	// It can be overridden per call with plansmith.WithModelOverride.
	defaultModel string

	// API key backend
	apiKey string

	// Vertex AI backend
	projectID string
	location  string

	// generation parameters
	temperature *float32
	topP        *float32
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the default model used for content generation.
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithAPIKey selects the Gemini API backend.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithVertex selects the Vertex AI backend for the given project and
// location.
func WithVertex(projectID, location string) Option {
	return func(c *Client) {
		c.projectID = projectID
		c.location = location
	}
}

// WithTemperature sets the temperature parameter for text generation.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = &temp
	}
}

// WithTopP sets the top_p parameter for text generation.
func WithTopP(topP float32) Option {
	return func(c *Client) {
		c.topP = &topP
	}
}

// New creates a new Gemini oracle. Either WithAPIKey or WithVertex must be
// given.
func New(ctx context.Context, options ...Option) (*Client, error) {
	client := &Client{
		defaultModel: DefaultModel,
	}

	for _, opt := range options {
		opt(client)
	}

	config := &genai.ClientConfig{}
	switch {
	case client.apiKey != "":
		config.APIKey = client.apiKey
		config.Backend = genai.BackendGeminiAPI
	case client.projectID != "" && client.location != "":
		config.Project = client.projectID
		config.Location = client.location
		config.Backend = genai.BackendVertexAI
	default:
		return nil, goerr.New("either API key or project/location is required")
	}

	newClient, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	client.client = newClient

	return client, nil
}

// SendChat sends the message sequence and returns the full response text.
// System messages become the system instruction; the rest map onto the
// user/model turn structure Gemini expects.
func (c *Client) SendChat(ctx context.Context, messages []plansmith.Message, options ...plansmith.ChatOption) (string, error) {
	cfg := plansmith.NewChatConfig(options...)

	model := c.defaultModel
	if cfg.Model() != "" {
		model = cfg.Model()
	}

	system, contents := convertMessages(messages)

	genConfig := &genai.GenerateContentConfig{
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	if system != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	if cfg.OnChunk() == nil {
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, genConfig)
		if err != nil {
			return "", goerr.Wrap(err, "failed to generate content")
		}
		return resp.Text(), nil
	}

	var full strings.Builder
	for chunk, err := range c.client.Models.GenerateContentStream(ctx, model, contents, genConfig) {
		if err != nil {
			return "", goerr.Wrap(err, "failed to stream content")
		}
		text := chunk.Text()
		if text == "" {
			continue
		}
		full.WriteString(text)
		cfg.OnChunk()(text)
	}

	return full.String(), nil
}

// convertMessages splits system content into the system instruction and
// converts the remaining turns. Assistant turns use Gemini's "model" role.
func convertMessages(messages []plansmith.Message) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case plansmith.RoleSystem:
			system = append(system, msg.Content)
		case plansmith.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	return strings.Join(system, "\n\n"), contents
}
