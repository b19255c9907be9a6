// Package ollama provides a completion service adapter for locally served
// models. Local models lack native tool use, so tools are described in the
// prompt and tool calls come back as fenced JSON blocks.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
)

// Ensure CompletionService implements the interface.
var _ driven.CompletionService = (*CompletionService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "http://localhost:11434"
	DefaultModel     = "llama3.1"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024
)

// Config holds configuration for the Ollama completion service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to use (default: llama3.1).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// CompletionService completes conversations via a local Ollama server.
type CompletionService struct {
	client  *http.Client
	baseURL string
	model   string
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewCompletionService creates a new Ollama completion service.
func NewCompletionService(cfg Config) *CompletionService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &CompletionService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// toolUsePattern matches a fenced JSON tool call in the model's reply.
var toolUsePattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\"tool_use\".*?\\})\\s*```")

// Complete runs one completion. Tool definitions are appended to the system
// prompt; a fenced {"tool_use": ...} block in the reply becomes a tool call.
func (s *CompletionService) Complete(ctx context.Context, messages []driven.ChatMessage, tools []driven.ToolDef, opts driven.CompleteOptions) (*domain.Completion, error) {
	apiMessages := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		content := msg.Content
		if msg.Role == "system" && len(tools) > 0 {
			content = content + "\n\n" + toolInstructions(tools)
		}
		apiMessages = append(apiMessages, chatMessage{
			Role:    msg.Role,
			Content: content,
		})
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	reqBody := chatRequest{
		Model:    s.model,
		Messages: apiMessages,
		Stream:   false,
		Options: chatOptions{
			Temperature: opts.Temperature,
			NumPredict:  maxTokens,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/chat",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrCompletionTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrCompletionUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrCompletionUnavailable, chatResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrCompletionUnavailable, resp.StatusCode, string(body))
	}

	return parseReply(chatResp.Message.Content), nil
}

// parseReply splits a model reply into text and an optional tool call.
func parseReply(reply string) *domain.Completion {
	completion := &domain.Completion{Text: strings.TrimSpace(reply)}

	matches := toolUsePattern.FindStringSubmatch(reply)
	if len(matches) < 2 {
		return completion
	}

	var wrapper struct {
		ToolUse struct {
			Name string         `json:"name"`
			Args map[string]any `json:"args"`
		} `json:"tool_use"`
	}
	if err := json.Unmarshal([]byte(matches[1]), &wrapper); err != nil {
		// Malformed tool JSON degrades to plain text.
		return completion
	}

	completion.ToolCall = &domain.ToolCall{
		ID:   uuid.New().String(),
		Name: domain.ToolName(wrapper.ToolUse.Name),
		Args: wrapper.ToolUse.Args,
	}
	// Text before the fenced block is the model's reasoning.
	if loc := toolUsePattern.FindStringIndex(reply); loc != nil {
		completion.Text = strings.TrimSpace(reply[:loc[0]])
	}

	return completion
}

// toolInstructions renders tool definitions for the system prompt.
func toolInstructions(tools []driven.ToolDef) string {
	var b strings.Builder
	b.WriteString("You can call the following tools. To call one, reply with a fenced JSON block:\n")
	b.WriteString("```json\n{\"tool_use\": {\"name\": \"<tool>\", \"args\": {...}}}\n```\n")
	b.WriteString("Call at most one tool per reply. Available tools:\n")
	for _, tool := range tools {
		schemaJSON, err := json.Marshal(tool.Schema)
		if err != nil {
			schemaJSON = []byte("{}")
		}
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", tool.Name, tool.Description, schemaJSON)
	}
	return b.String()
}

// ModelName returns the name of the model being used.
func (s *CompletionService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
func (s *CompletionService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ping failed: %w", domain.ErrCompletionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: API returned status %d", domain.ErrCompletionUnavailable, resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *CompletionService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// isClientTimeout reports whether an http.Client error was a timeout.
func isClientTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
