package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool argument defaults and bounds.
const (
	defaultSearchK    = 5
	maxSearchK        = 25
	defaultTriageDays = 7
	maxTriageDays     = 90
	excerptRunes      = 200
)

// SearchInput is the input schema for search_emails.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"what to search for, in natural language"`
	K      int    `json:"k,omitempty" jsonschema:"how many messages to return (default 5, max 25)"`
	Sender string `json:"sender,omitempty" jsonschema:"restrict results to a sender address or domain"`
}

// SearchOutput is the output schema for search_emails.
type SearchOutput struct {
	Results []MessageHit `json:"results"`
	Count   int          `json:"count"`
}

// MessageHit is one scored message in a search result.
type MessageHit struct {
	MessageID string    `json:"message_id"`
	ThreadID  string    `json:"thread_id"`
	Score     float64   `json:"score"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Timestamp time.Time `json:"timestamp"`
	Excerpt   string    `json:"excerpt,omitempty"`
}

// ThreadInput is the input schema for get_thread.
type ThreadInput struct {
	ThreadID string `json:"thread_id" jsonschema:"the thread id, as returned by search_emails or triage_recent"`
}

// ThreadOutput is the output schema for get_thread.
type ThreadOutput struct {
	ThreadID string          `json:"thread_id"`
	Messages []ThreadMessage `json:"messages"`
	Count    int             `json:"count"`
}

// ThreadMessage is one message of a thread, in chronological order.
type ThreadMessage struct {
	MessageID string    `json:"message_id"`
	From      string    `json:"from"`
	To        []string  `json:"to,omitempty"`
	Subject   string    `json:"subject"`
	Timestamp time.Time `json:"timestamp"`
	Body      string    `json:"body"`
}

// TriageInput is the input schema for triage_recent.
type TriageInput struct {
	Days   int    `json:"days,omitempty" jsonschema:"lookback window in days (default 7, max 90)"`
	Sender string `json:"sender,omitempty" jsonschema:"restrict to a sender address or domain"`
}

// TriageOutput is the output schema for triage_recent.
type TriageOutput struct {
	Candidates []TriageHit `json:"candidates"`
	Count      int         `json:"count"`
}

// TriageHit is one urgency-ranked message.
type TriageHit struct {
	MessageID       string    `json:"message_id"`
	ThreadID        string    `json:"thread_id"`
	UrgencyScore    int       `json:"urgency_score"`
	MatchedKeywords []string  `json:"matched_keywords"`
	From            string    `json:"from"`
	Subject         string    `json:"subject"`
	Timestamp       time.Time `json:"timestamp"`
}

// DraftInput is the input schema for draft_reply.
type DraftInput struct {
	ThreadID string `json:"thread_id" jsonschema:"the thread to reply to"`
	Tone     string `json:"tone,omitempty" jsonschema:"writing style: concise, friendly, formal or professional (default professional)"`
}

// DraftOutput is the output schema for draft_reply. The draft is returned
// for review only; it is never transmitted.
type DraftOutput struct {
	ThreadID  string `json:"thread_id"`
	InReplyTo string `json:"in_reply_to"`
	Subject   string `json:"subject"`
	Tone      string `json:"tone"`
	Text      string `json:"text"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_emails",
		Description: "Semantic search over indexed emails. Returns the best-matching messages with ids, senders, subjects and matching excerpts.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_thread",
		Description: "Fetch every message of an email thread in chronological order.",
	}, s.handleThread)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "triage_recent",
		Description: "Rank recent emails by how urgently they need a reply.",
	}, s.handleTriage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "draft_reply",
		Description: "Generate an unsent reply draft for a thread. The draft is returned for review; nothing is transmitted.",
	}, s.handleDraft)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultSearchK
	}
	if k > maxSearchK {
		k = maxSearchK
	}

	results, err := s.ports.Retriever.SemanticSearch(ctx, input.Query, k, input.Sender)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]MessageHit, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = MessageHit{
			MessageID: results[i].Message.ID,
			ThreadID:  results[i].Message.ThreadID,
			Score:     results[i].Score,
			From:      results[i].Message.From,
			Subject:   results[i].Message.Subject,
			Timestamp: results[i].Message.Timestamp,
			Excerpt:   excerpt(results[i].Chunk.Text),
		}
	}

	return nil, output, nil
}

func (s *Server) handleThread(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ThreadInput,
) (*mcp.CallToolResult, ThreadOutput, error) {
	messages, err := s.ports.Retriever.GetThread(ctx, input.ThreadID)
	if err != nil {
		return nil, ThreadOutput{}, err
	}

	output := ThreadOutput{
		ThreadID: input.ThreadID,
		Messages: make([]ThreadMessage, len(messages)),
		Count:    len(messages),
	}
	for i, m := range messages {
		output.Messages[i] = ThreadMessage{
			MessageID: m.ID,
			From:      m.From,
			To:        m.To,
			Subject:   m.Subject,
			Timestamp: m.Timestamp,
			Body:      m.Body,
		}
	}

	return nil, output, nil
}

func (s *Server) handleTriage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TriageInput,
) (*mcp.CallToolResult, TriageOutput, error) {
	days := input.Days
	if days <= 0 {
		days = defaultTriageDays
	}
	if days > maxTriageDays {
		days = maxTriageDays
	}

	candidates, err := s.ports.Triager.Triage(ctx, days, input.Sender)
	if err != nil {
		return nil, TriageOutput{}, err
	}

	output := TriageOutput{
		Candidates: make([]TriageHit, len(candidates)),
		Count:      len(candidates),
	}
	for i, c := range candidates {
		output.Candidates[i] = TriageHit{
			MessageID:       c.Message.ID,
			ThreadID:        c.Message.ThreadID,
			UrgencyScore:    c.UrgencyScore,
			MatchedKeywords: c.MatchedKeywords,
			From:            c.Message.From,
			Subject:         c.Message.Subject,
			Timestamp:       c.Message.Timestamp,
		}
	}

	return nil, output, nil
}

func (s *Server) handleDraft(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DraftInput,
) (*mcp.CallToolResult, DraftOutput, error) {
	draft, err := s.ports.Drafter.DraftReply(ctx, input.ThreadID, input.Tone)
	if err != nil {
		return nil, DraftOutput{}, err
	}

	output := DraftOutput{
		ThreadID:  draft.ThreadID,
		InReplyTo: draft.InReplyTo,
		Subject:   draft.Subject,
		Tone:      string(draft.Tone),
		Text:      draft.Text,
	}

	return nil, output, nil
}

// excerpt collapses whitespace and truncates to excerptRunes runes.
func excerpt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= excerptRunes {
		return text
	}
	return string(runes[:excerptRunes]) + "..."
}
