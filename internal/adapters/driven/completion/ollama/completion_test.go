package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
)

func TestParseReplyPlainText(t *testing.T) {
	got := parseReply("The thread is about the Q3 budget review.")

	assert.Equal(t, "The thread is about the Q3 budget review.", got.Text)
	assert.Nil(t, got.ToolCall)
}

func TestParseReplyToolUse(t *testing.T) {
	reply := "I need to search first.\n```json\n{\"tool_use\": {\"name\": \"search_emails\", \"args\": {\"query\": \"budget\", \"k\": 5}}}\n```"

	got := parseReply(reply)

	require.NotNil(t, got.ToolCall)
	assert.Equal(t, domain.ToolSearchEmails, got.ToolCall.Name)
	assert.Equal(t, "budget", got.ToolCall.Args["query"])
	assert.Equal(t, "I need to search first.", got.Text)
	assert.NotEmpty(t, got.ToolCall.ID)
}

func TestParseReplyMalformedJSONDegradesToText(t *testing.T) {
	reply := "```json\n{\"tool_use\": {\"name\": broken}\n```"

	got := parseReply(reply)

	assert.Nil(t, got.ToolCall)
	assert.NotEmpty(t, got.Text)
}

func TestCompleteInjectsToolInstructions(t *testing.T) {
	var capturedSystem string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, m := range req.Messages {
			if m.Role == "system" {
				capturedSystem = m.Content
			}
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	t.Cleanup(server.Close)

	svc := NewCompletionService(Config{BaseURL: server.URL})
	_, err := svc.Complete(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "You are an assistant."},
		{Role: "user", Content: "hi"},
	}, []driven.ToolDef{
		{Name: domain.ToolGetThread, Description: "fetch a thread", Schema: map[string]any{"type": "object"}},
	}, driven.CompleteOptions{})

	require.NoError(t, err)
	assert.True(t, strings.Contains(capturedSystem, "get_thread"))
	assert.True(t, strings.Contains(capturedSystem, "tool_use"))
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	t.Cleanup(server.Close)

	svc := NewCompletionService(Config{BaseURL: server.URL})
	_, err := svc.Complete(context.Background(), []driven.ChatMessage{
		{Role: "user", Content: "hi"},
	}, nil, driven.CompleteOptions{})

	assert.ErrorIs(t, err, domain.ErrCompletionUnavailable)
}
