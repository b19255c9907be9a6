package services

import (
	"fmt"
	"math"

	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
)

// Tool argument defaults and bounds.
const (
	defaultSearchK    = 5
	maxSearchK        = 25
	defaultTriageDays = 7
	maxTriageDays     = 90
)

// AgentToolDefs declares the closed tool set presented to the completion
// backend. The router validates arguments against these shapes before
// dispatching; the backend's output is never trusted as-is.
func AgentToolDefs() []driven.ToolDef {
	return []driven.ToolDef{
		{
			Name:        domain.ToolSearchEmails,
			Description: "Semantic search over indexed emails. Returns the best-matching messages with ids, senders, subjects and matching excerpts.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "What to search for, in natural language.",
					},
					"k": map[string]any{
						"type":        "integer",
						"description": "How many messages to return (default 5).",
					},
					"sender": map[string]any{
						"type":        "string",
						"description": "Restrict results to a sender address or domain.",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        domain.ToolGetThread,
			Description: "Fetch every message of an email thread in chronological order.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"thread_id": map[string]any{
						"type":        "string",
						"description": "The thread id, as returned by search_emails or triage_recent.",
					},
				},
				"required": []string{"thread_id"},
			},
		},
		{
			Name:        domain.ToolTriageRecent,
			Description: "Rank recent emails by how urgently they need a reply.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"days": map[string]any{
						"type":        "integer",
						"description": "Lookback window in days (default 7).",
					},
					"sender": map[string]any{
						"type":        "string",
						"description": "Restrict to a sender address or domain.",
					},
				},
			},
		},
		{
			Name:        domain.ToolDraftReply,
			Description: "Generate an unsent reply draft for a thread. The draft is returned for review; nothing is transmitted.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"thread_id": map[string]any{
						"type":        "string",
						"description": "The thread to reply to.",
					},
					"tone": map[string]any{
						"type":        "string",
						"enum":        []string{"concise", "friendly", "formal", "professional"},
						"description": "Writing style (default professional).",
					},
				},
				"required": []string{"thread_id"},
			},
		},
	}
}

// searchArgs are the validated arguments of search_emails.
type searchArgs struct {
	Query  string
	K      int
	Sender string
}

// threadArgs are the validated arguments of get_thread and draft_reply.
type threadArgs struct {
	ThreadID string
	Tone     string
}

// triageArgs are the validated arguments of triage_recent.
type triageArgs struct {
	Days   int
	Sender string
}

func parseSearchArgs(args map[string]any) (searchArgs, error) {
	out := searchArgs{K: defaultSearchK}

	query, err := stringArg(args, "query", true)
	if err != nil {
		return out, err
	}
	out.Query = query

	if out.Sender, err = stringArg(args, "sender", false); err != nil {
		return out, err
	}

	k, ok, err := intArg(args, "k")
	if err != nil {
		return out, err
	}
	if ok {
		if k <= 0 || k > maxSearchK {
			return out, fmt.Errorf("%w: k must be between 1 and %d", domain.ErrInvalidInput, maxSearchK)
		}
		out.K = k
	}
	return out, nil
}

func parseThreadArgs(args map[string]any, wantTone bool) (threadArgs, error) {
	var out threadArgs

	threadID, err := stringArg(args, "thread_id", true)
	if err != nil {
		return out, err
	}
	out.ThreadID = threadID

	if wantTone {
		if out.Tone, err = stringArg(args, "tone", false); err != nil {
			return out, err
		}
	}
	return out, nil
}

func parseTriageArgs(args map[string]any) (triageArgs, error) {
	out := triageArgs{Days: defaultTriageDays}

	var err error
	if out.Sender, err = stringArg(args, "sender", false); err != nil {
		return out, err
	}

	days, ok, err := intArg(args, "days")
	if err != nil {
		return out, err
	}
	if ok {
		if days <= 0 || days > maxTriageDays {
			return out, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrInvalidInput, maxTriageDays)
		}
		out.Days = days
	}
	return out, nil
}

// stringArg extracts a string argument, enforcing presence when required.
func stringArg(args map[string]any, key string, required bool) (string, error) {
	val, present := args[key]
	if !present || val == nil {
		if required {
			return "", fmt.Errorf("%w: missing argument %q", domain.ErrInvalidInput, key)
		}
		return "", nil
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", domain.ErrInvalidInput, key)
	}
	if required && s == "" {
		return "", fmt.Errorf("%w: argument %q is empty", domain.ErrInvalidInput, key)
	}
	return s, nil
}

// intArg extracts an integer argument. JSON numbers arrive as float64;
// non-integral values are rejected rather than truncated.
func intArg(args map[string]any, key string) (int, bool, error) {
	val, present := args[key]
	if !present || val == nil {
		return 0, false, nil
	}
	switch n := val.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false, fmt.Errorf("%w: argument %q must be an integer", domain.ErrInvalidInput, key)
		}
		return int(n), true, nil
	case int:
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("%w: argument %q must be an integer", domain.ErrInvalidInput, key)
	}
}
