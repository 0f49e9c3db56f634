package plansmith

import "context"

// MessageRole is the role tag of a chat message sent to the oracle.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single role-tagged chat message. The planner exchanges plain
// text with the oracle; tool calls, images and other provider content types
// are out of scope for plan generation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Oracle is a client for a text-generation service that authors plans.
// SendChat sends the full message sequence and returns the complete response
// text. Implementations must honor ctx cancellation. The oracle is treated
// as unreliable; its output is never trusted without validation.
type Oracle interface {
	SendChat(ctx context.Context, messages []Message, options ...ChatOption) (string, error)
}

// ChatConfig holds per-call settings interpreted by Oracle implementations.
type ChatConfig struct {
	model   string
	onChunk func(chunk string)
}

// NewChatConfig applies chat options and returns the resulting config.
// It is intended for Oracle implementations.
func NewChatConfig(options ...ChatOption) *ChatConfig {
	cfg := &ChatConfig{}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// Model returns the per-call model override, or empty for the default.
func (c *ChatConfig) Model() string {
	return c.model
}

// OnChunk returns the streaming chunk callback, or nil when the caller
// wants a blocking call.
func (c *ChatConfig) OnChunk() func(chunk string) {
	return c.onChunk
}

// ChatOption configures a single oracle call.
type ChatOption func(*ChatConfig)

// WithModelOverride overrides the oracle's default model for one call.
func WithModelOverride(model string) ChatOption {
	return func(c *ChatConfig) {
		c.model = model
	}
}

// WithChunkCallback sets a callback invoked with each streamed response
// chunk. The full response text is still returned by SendChat; the planner
// itself never consumes partial responses.
func WithChunkCallback(fn func(chunk string)) ChatOption {
	return func(c *ChatConfig) {
		c.onChunk = fn
	}
}
