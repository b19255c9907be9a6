package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailsage/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
)

// scriptedCompletion replays canned completions in order.
type scriptedCompletion struct {
	replies []*domain.Completion
	errs    []error
	calls   [][]driven.ChatMessage
	tools   [][]driven.ToolDef
}

func (s *scriptedCompletion) Complete(_ context.Context, messages []driven.ChatMessage, tools []driven.ToolDef, _ driven.CompleteOptions) (*domain.Completion, error) {
	s.calls = append(s.calls, messages)
	s.tools = append(s.tools, tools)
	i := len(s.calls) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return &domain.Completion{Text: "out of script"}, nil
}

func (s *scriptedCompletion) ModelName() string          { return "scripted" }
func (s *scriptedCompletion) Ping(context.Context) error { return nil }
func (s *scriptedCompletion) Close() error               { return nil }

func draftFixture(t *testing.T, completion driven.CompletionService, msgs ...domain.Message) *DraftService {
	t.Helper()
	idx := memory.New()
	for _, m := range msgs {
		require.NoError(t, idx.UpsertMessage(context.Background(), m, nil))
	}
	return NewDraftService(idx, completion)
}

func draftThread() []domain.Message {
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	return []domain.Message{
		{ID: "m1", ThreadID: "t1", Timestamp: base, From: "alice@example.com", Subject: "Offsite", Body: "Can we move the offsite?"},
		{ID: "m2", ThreadID: "t1", Timestamp: base.Add(time.Hour), From: "bob@example.com", Subject: "Re: Offsite", Body: "Which dates work for you?"},
	}
}

func TestDraftReplyTargetsLastMessage(t *testing.T) {
	completion := &scriptedCompletion{replies: []*domain.Completion{{Text: "Tuesday or Wednesday works for me."}}}
	svc := draftFixture(t, completion, draftThread()...)

	draft, err := svc.DraftReply(context.Background(), "t1", "")
	require.NoError(t, err)

	assert.Equal(t, "t1", draft.ThreadID)
	assert.Equal(t, "m2", draft.InReplyTo, "reply targets the chronologically last message")
	assert.Equal(t, "bob@example.com", draft.Sender)
	assert.Equal(t, "Re: Offsite", draft.Subject)
	assert.Equal(t, domain.ToneProfessional, draft.Tone, "empty tone resolves to the default")
}

func TestDraftReplyWrapsWarning(t *testing.T) {
	completion := &scriptedCompletion{replies: []*domain.Completion{{Text: "Sounds good."}}}
	svc := draftFixture(t, completion, draftThread()...)

	draft, err := svc.DraftReply(context.Background(), "t1", "concise")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(draft.Text, domain.DraftWarning))
	assert.True(t, strings.HasSuffix(draft.Text, domain.DraftWarning))
	assert.Contains(t, draft.Text, "Sounds good.")
}

func TestDraftReplyUnknownToneRejected(t *testing.T) {
	svc := draftFixture(t, &scriptedCompletion{}, draftThread()...)

	_, err := svc.DraftReply(context.Background(), "t1", "sarcastic")

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestDraftReplyEmptyThreadNotFound(t *testing.T) {
	svc := draftFixture(t, &scriptedCompletion{})

	_, err := svc.DraftReply(context.Background(), "no-such-thread", "")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDraftReplyCompletionFailurePropagates(t *testing.T) {
	completion := &scriptedCompletion{errs: []error{errors.New("backend down")}}
	svc := draftFixture(t, completion, draftThread()...)

	_, err := svc.DraftReply(context.Background(), "t1", "")

	assert.Error(t, err)
}

func TestDraftReplyPromptCarriesToneAndThread(t *testing.T) {
	completion := &scriptedCompletion{replies: []*domain.Completion{{Text: "ok"}}}
	svc := draftFixture(t, completion, draftThread()...)

	_, err := svc.DraftReply(context.Background(), "t1", "formal")
	require.NoError(t, err)

	require.Len(t, completion.calls, 1)
	var userPrompt string
	for _, m := range completion.calls[0] {
		if m.Role == "user" {
			userPrompt = m.Content
		}
	}
	assert.Contains(t, userPrompt, "Which dates work for you?")
	assert.Contains(t, userPrompt, toneInstructions[domain.ToneFormal])
}
