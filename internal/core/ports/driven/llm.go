package driven

import "context"

// LLMService provides chat completion for question answering.
// This is an optional service - when nil, only retrieval is available.
//
// Implementations may include:
//   - OpenAI-compatible APIs (OpenAI, OpenRouter, vLLM)
//   - Ollama (local models)
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the full reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream conducts a conversation, calling onToken for each content
	// fragment as it arrives. It returns when the stream ends, the context is
	// cancelled, or onToken returns an error.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, onToken func(string) error) error

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
