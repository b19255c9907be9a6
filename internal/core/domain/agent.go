package domain

// ToolName identifies one of the agent's retrieval/generation tools.
// The set is closed: the router pattern-matches on these variants rather
// than dispatching arbitrary names returned by the completion backend.
type ToolName string

const (
	// ToolSearchEmails performs semantic search over indexed messages.
	ToolSearchEmails ToolName = "search_emails"

	// ToolGetThread reconstructs a full thread in chronological order.
	ToolGetThread ToolName = "get_thread"

	// ToolTriageRecent ranks recent messages by urgency.
	ToolTriageRecent ToolName = "triage_recent"

	// ToolDraftReply generates an unsent reply draft for a thread.
	ToolDraftReply ToolName = "draft_reply"
)

// KnownTool reports whether name is one of the closed tool set.
func KnownTool(name string) bool {
	switch ToolName(name) {
	case ToolSearchEmails, ToolGetThread, ToolTriageRecent, ToolDraftReply:
		return true
	}
	return false
}

// ToolCall is a tool invocation requested by the completion backend.
type ToolCall struct {
	// ID correlates the call with its result observation.
	ID string

	// Name is the requested tool.
	Name ToolName

	// Args are the raw arguments; the router validates them against the
	// tool's declared parameter types before dispatching.
	Args map[string]any
}

// Completion is the result of one completion-backend invocation: either a
// final text answer or exactly one tool call, never both.
type Completion struct {
	Text     string
	ToolCall *ToolCall
}

// AgentStep records one tool invocation within a turn. Steps exist only for
// the duration of the turn; the final answer's citations must trace back to
// ids present in step observations.
type AgentStep struct {
	// Call is the tool invocation.
	Call ToolCall

	// Observation is the structured result (or failure reason) serialised
	// for the reasoning loop.
	Observation string

	// Failed reports whether the tool returned an error.
	Failed bool

	// CitedIDs are the message and thread ids surfaced by this step.
	CitedIDs []string
}
