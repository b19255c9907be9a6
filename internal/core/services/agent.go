package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
	"github.com/custodia-labs/mailsage/internal/core/ports/driving"
	"github.com/custodia-labs/mailsage/internal/logger"
)

// Ensure AgentService implements the interface.
var _ driving.Assistant = (*AgentService)(nil)

// Agent loop bounds.
const (
	// DefaultMaxSteps caps tool invocations per turn.
	DefaultMaxSteps = 6

	// DefaultHistoryWindow is how many prior messages feed the prompt.
	DefaultHistoryWindow = 10

	// excerptLimit bounds per-result text in observations.
	excerptLimit = 400
)

// agentSystemPrompt binds answers to retrieved evidence.
const agentSystemPrompt = `You are an email assistant. You answer questions about the user's mailbox using the available tools.

Rules:
- Ground every claim in tool results from this conversation. If the tools returned nothing relevant, say so instead of guessing.
- Cite the message or thread ids your answer relies on, in the form [id].
- Drafts are never sent. When you produce a draft, present it as a draft for review.
- Call at most one tool at a time and stop calling tools once you can answer.`

// AgentService runs the bounded tool-routing reasoning loop.
type AgentService struct {
	completion driven.CompletionService
	retriever  driving.Retriever
	triager    driving.Triager
	drafter    driving.Drafter

	maxSteps      int
	historyWindow int
}

// NewAgentService creates an assistant wired to the retrieval engine.
func NewAgentService(
	completion driven.CompletionService,
	retriever driving.Retriever,
	triager driving.Triager,
	drafter driving.Drafter,
) *AgentService {
	return &AgentService{
		completion:    completion,
		retriever:     retriever,
		triager:       triager,
		drafter:       drafter,
		maxSteps:      DefaultMaxSteps,
		historyWindow: DefaultHistoryWindow,
	}
}

// SetMaxSteps overrides the per-turn tool budget.
func (s *AgentService) SetMaxSteps(n int) {
	if n > 0 {
		s.maxSteps = n
	}
}

// SetHistoryWindow overrides how much prior conversation feeds the prompt.
func (s *AgentService) SetHistoryWindow(n int) {
	if n > 0 {
		s.historyWindow = n
	}
}

// Ask answers one utterance, chaining tools as needed. Tool failures become
// observations the model can react to; a completion backend failure ends the
// turn with a plain inability answer rather than an error.
func (s *AgentService) Ask(ctx context.Context, utterance string, history []driven.ChatMessage) (*driving.TurnResult, error) {
	logger.Section("Assistant Turn")
	logger.Debug("Utterance: %q, history=%d", utterance, len(history))

	if strings.TrimSpace(utterance) == "" {
		return nil, fmt.Errorf("%w: utterance is empty", domain.ErrInvalidInput)
	}

	messages := s.seedConversation(utterance, history)
	tools := AgentToolDefs()
	result := &driving.TurnResult{}
	cited := make(map[string]bool)

	for step := 0; step < s.maxSteps; step++ {
		completion, err := s.completion.Complete(ctx, messages, tools, driven.CompleteOptions{})
		if err != nil {
			logger.Warn("Completion failed on step %d: %v", step, err)
			result.Answer = inabilityAnswer(err)
			return result, nil
		}

		if completion.ToolCall == nil {
			answer, retried := s.enforceCitations(ctx, messages, completion.Text, cited)
			if retried {
				logger.Debug("Citation retry issued")
			}
			result.Answer = answer
			result.CitedIDs = sortedKeys(cited)
			return result, nil
		}

		call := *completion.ToolCall
		logger.Info("Step %d: tool %s", step, call.Name)

		observation, ids, failed := s.executeTool(ctx, call)
		result.Steps = append(result.Steps, domain.AgentStep{
			Call:        call,
			Observation: observation,
			Failed:      failed,
			CitedIDs:    ids,
		})
		for _, id := range ids {
			cited[id] = true
		}

		if completion.Text != "" {
			messages = append(messages, driven.ChatMessage{Role: "assistant", Content: completion.Text})
		}
		messages = append(messages, driven.ChatMessage{
			Role:    "user",
			Content: fmt.Sprintf("Tool result for %s:\n%s", call.Name, observation),
		})
	}

	// Tool budget exhausted: force a final answer from what was gathered.
	logger.Warn("Tool budget exhausted after %d steps", s.maxSteps)
	messages = append(messages, driven.ChatMessage{
		Role:    "user",
		Content: "You have used all available tool calls. Answer now from the information gathered above. If it is insufficient, say what is missing.",
	})
	completion, err := s.completion.Complete(ctx, messages, nil, driven.CompleteOptions{})
	if err != nil {
		result.Answer = inabilityAnswer(err)
		return result, nil
	}
	result.Answer = completion.Text
	result.CitedIDs = sortedKeys(cited)
	return result, nil
}

// seedConversation builds the prompt: system, history tail, then the utterance.
func (s *AgentService) seedConversation(utterance string, history []driven.ChatMessage) []driven.ChatMessage {
	messages := []driven.ChatMessage{{Role: "system", Content: agentSystemPrompt}}

	if len(history) > s.historyWindow {
		history = history[len(history)-s.historyWindow:]
	}
	messages = append(messages, history...)

	return append(messages, driven.ChatMessage{Role: "user", Content: utterance})
}

// executeTool validates and routes one tool call. Failures are reported in
// the observation so the model can recover; they never abort the turn.
func (s *AgentService) executeTool(ctx context.Context, call domain.ToolCall) (observation string, ids []string, failed bool) {
	obs, ids, err := s.routeTool(ctx, call)
	if err != nil {
		logger.Warn("Tool %s failed: %v", call.Name, err)
		return fmt.Sprintf("error: %v", err), nil, true
	}
	return obs, ids, false
}

// routeTool dispatches on the closed tool set.
func (s *AgentService) routeTool(ctx context.Context, call domain.ToolCall) (string, []string, error) {
	switch call.Name {
	case domain.ToolSearchEmails:
		args, err := parseSearchArgs(call.Args)
		if err != nil {
			return "", nil, err
		}
		results, err := s.retriever.SemanticSearch(ctx, args.Query, args.K, args.Sender)
		if err != nil {
			return "", nil, err
		}
		return renderSearchObservation(results)

	case domain.ToolGetThread:
		args, err := parseThreadArgs(call.Args, false)
		if err != nil {
			return "", nil, err
		}
		msgs, err := s.retriever.GetThread(ctx, args.ThreadID)
		if err != nil {
			return "", nil, err
		}
		return renderThreadObservation(args.ThreadID, msgs)

	case domain.ToolTriageRecent:
		args, err := parseTriageArgs(call.Args)
		if err != nil {
			return "", nil, err
		}
		candidates, err := s.triager.Triage(ctx, args.Days, args.Sender)
		if err != nil {
			return "", nil, err
		}
		return renderTriageObservation(candidates)

	case domain.ToolDraftReply:
		args, err := parseThreadArgs(call.Args, true)
		if err != nil {
			return "", nil, err
		}
		draft, err := s.drafter.DraftReply(ctx, args.ThreadID, args.Tone)
		if err != nil {
			return "", nil, err
		}
		return renderDraftObservation(draft)

	default:
		return "", nil, fmt.Errorf("%w: unknown tool %q", domain.ErrInvalidInput, call.Name)
	}
}

// enforceCitations retries once when a final answer carries no citation
// despite tool results having surfaced ids.
func (s *AgentService) enforceCitations(ctx context.Context, messages []driven.ChatMessage, answer string, cited map[string]bool) (string, bool) {
	if len(cited) == 0 || answerCitesAny(answer, cited) {
		return answer, false
	}

	retryMessages := append(append([]driven.ChatMessage{}, messages...),
		driven.ChatMessage{Role: "assistant", Content: answer},
		driven.ChatMessage{Role: "user", Content: "Your answer cites no message or thread ids. Restate it citing the ids from the tool results, in the form [id]."},
	)
	retry, err := s.completion.Complete(ctx, retryMessages, nil, driven.CompleteOptions{})
	if err != nil || strings.TrimSpace(retry.Text) == "" {
		return answer, true // Keep the uncited answer over nothing.
	}
	return retry.Text, true
}

// answerCitesAny reports whether the answer mentions any surfaced id.
func answerCitesAny(answer string, cited map[string]bool) bool {
	for id := range cited {
		if id != "" && strings.Contains(answer, id) {
			return true
		}
	}
	return false
}

// inabilityAnswer is the user-facing text for a dead completion backend.
func inabilityAnswer(err error) string {
	if errors.Is(err, domain.ErrCompletionTimeout) {
		return "I couldn't finish that: the language model timed out. Please try again."
	}
	return "I couldn't reach the language model, so I can't answer right now. Please check the completion backend and try again."
}

// Observation rendering. Observations are compact JSON so the model reads
// structure, not prose.

type searchObservationItem struct {
	MessageID string  `json:"message_id"`
	ThreadID  string  `json:"thread_id"`
	From      string  `json:"from"`
	Date      string  `json:"date"`
	Subject   string  `json:"subject"`
	Excerpt   string  `json:"excerpt"`
	Score     float64 `json:"score"`
}

func renderSearchObservation(results []domain.SearchResult) (string, []string, error) {
	items := make([]searchObservationItem, len(results))
	var ids []string
	for i, r := range results {
		items[i] = searchObservationItem{
			MessageID: r.Message.ID,
			ThreadID:  r.Message.ThreadID,
			From:      r.Message.From,
			Date:      r.Message.Timestamp.Format("2006-01-02"),
			Subject:   r.Message.Subject,
			Excerpt:   truncate(r.Chunk.Text, excerptLimit),
			Score:     r.Score,
		}
		ids = append(ids, r.Message.ID)
		if r.Message.ThreadID != "" {
			ids = append(ids, r.Message.ThreadID)
		}
	}
	return marshalObservation(map[string]any{"results": items}, ids)
}

type threadObservationItem struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	Date      string `json:"date"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func renderThreadObservation(threadID string, msgs []domain.Message) (string, []string, error) {
	items := make([]threadObservationItem, len(msgs))
	ids := []string{threadID}
	for i, m := range msgs {
		items[i] = threadObservationItem{
			MessageID: m.ID,
			From:      m.From,
			Date:      m.Timestamp.Format("2006-01-02 15:04"),
			Subject:   m.Subject,
			Body:      truncate(m.Body, excerptLimit),
		}
		ids = append(ids, m.ID)
	}
	if len(msgs) == 0 {
		// An unknown thread is an empty observation, not an invented one.
		return marshalObservation(map[string]any{
			"thread_id": threadID,
			"messages":  []threadObservationItem{},
			"note":      "thread not found or empty",
		}, nil)
	}
	return marshalObservation(map[string]any{"thread_id": threadID, "messages": items}, ids)
}

type triageObservationItem struct {
	MessageID string   `json:"message_id"`
	ThreadID  string   `json:"thread_id"`
	From      string   `json:"from"`
	Date      string   `json:"date"`
	Subject   string   `json:"subject"`
	Score     int      `json:"urgency_score"`
	Matched   []string `json:"matched_keywords"`
}

func renderTriageObservation(candidates []domain.TriageCandidate) (string, []string, error) {
	items := make([]triageObservationItem, len(candidates))
	var ids []string
	for i, c := range candidates {
		items[i] = triageObservationItem{
			MessageID: c.Message.ID,
			ThreadID:  c.Message.ThreadID,
			From:      c.Message.From,
			Date:      c.Message.Timestamp.Format("2006-01-02"),
			Subject:   c.Message.Subject,
			Score:     c.UrgencyScore,
			Matched:   c.MatchedKeywords,
		}
		ids = append(ids, c.Message.ID)
		if c.Message.ThreadID != "" {
			ids = append(ids, c.Message.ThreadID)
		}
	}
	return marshalObservation(map[string]any{"candidates": items}, ids)
}

func renderDraftObservation(draft *domain.Draft) (string, []string, error) {
	return marshalObservation(map[string]any{
		"thread_id":   draft.ThreadID,
		"in_reply_to": draft.InReplyTo,
		"subject":     draft.Subject,
		"tone":        string(draft.Tone),
		"draft":       draft.Text,
	}, []string{draft.ThreadID, draft.InReplyTo})
}

func marshalObservation(payload map[string]any, ids []string) (string, []string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshalling observation: %w", err)
	}
	return string(data), ids, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
