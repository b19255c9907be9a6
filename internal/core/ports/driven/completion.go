package driven

import (
	"context"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

// CompletionService is the pluggable language-model backend. Given a
// conversation and an optional tool schema it returns either text or exactly
// one tool call. All invocations are timeout-bounded; a deadline surfaces as
// domain.ErrCompletionTimeout, never a hang.
//
// Implementations may include:
//   - Anthropic (native tool_use content blocks)
//   - Ollama-served local models (fenced-JSON tool protocol)
type CompletionService interface {
	// Complete runs one completion over the conversation. When tools is
	// non-empty the backend may answer with a tool call instead of text.
	Complete(ctx context.Context, messages []ChatMessage, tools []ToolDef, opts CompleteOptions) (*domain.Completion, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ToolDef describes one tool to the completion backend.
type ToolDef struct {
	// Name is the tool name; must be one of the closed domain.ToolName set.
	Name domain.ToolName

	// Description is the natural-language selection hint.
	Description string

	// Schema is the JSON schema of the tool's parameters.
	Schema map[string]any
}

// CompleteOptions configures a completion call.
type CompleteOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
