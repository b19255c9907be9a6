package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
	"github.com/custodia-labs/mailsage/internal/core/ports/driving"
	"github.com/custodia-labs/mailsage/internal/logger"
)

// Ensure DraftService implements the interface.
var _ driving.Drafter = (*DraftService)(nil)

// toneInstructions maps each tone to its style directive.
var toneInstructions = map[domain.Tone]string{
	domain.ToneConcise:      "Keep the reply short and to the point. No filler, no pleasantries beyond a greeting.",
	domain.ToneFriendly:     "Write warmly and informally, as to a colleague you know well.",
	domain.ToneFormal:       "Write formally. Full sentences, no contractions, a respectful closing.",
	domain.ToneProfessional: "Write in a polished business register: courteous, clear and direct.",
}

// draftContextMessages bounds how much thread history goes into the prompt.
const draftContextMessages = 6

// DraftService generates unsent reply drafts. Nothing here can transmit a
// message; the draft is returned to the caller and goes no further.
type DraftService struct {
	index      driven.MessageIndex
	completion driven.CompletionService
}

// NewDraftService creates a draft service.
func NewDraftService(index driven.MessageIndex, completion driven.CompletionService) *DraftService {
	return &DraftService{
		index:      index,
		completion: completion,
	}
}

// DraftReply drafts a reply to the chronologically last message of a thread.
func (s *DraftService) DraftReply(ctx context.Context, threadID, tone string) (*domain.Draft, error) {
	logger.Section("Draft Reply")
	logger.Debug("Thread: %s, tone=%q", threadID, tone)

	parsedTone, err := domain.ParseTone(tone)
	if err != nil {
		return nil, err
	}

	msgs, err := s.index.ThreadMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("loading thread %s: %w", threadID, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: thread %s has no messages", domain.ErrNotFound, threadID)
	}

	domain.SortMessagesByTime(msgs)
	last := msgs[len(msgs)-1]

	prompt := buildDraftPrompt(msgs, parsedTone)
	completion, err := s.completion.Complete(ctx, []driven.ChatMessage{
		{Role: "system", Content: draftSystemPrompt},
		{Role: "user", Content: prompt},
	}, nil, driven.CompleteOptions{MaxTokens: 600, Temperature: 0.7})
	if err != nil {
		return nil, fmt.Errorf("generating draft: %w", err)
	}

	body := strings.TrimSpace(completion.Text)
	if body == "" {
		return nil, fmt.Errorf("%w: empty draft returned", domain.ErrCompletionUnavailable)
	}

	return &domain.Draft{
		ThreadID:  threadID,
		InReplyTo: last.ID,
		Subject:   last.Subject,
		Sender:    last.From,
		Tone:      parsedTone,
		Text:      wrapDraft(body),
	}, nil
}

const draftSystemPrompt = "You draft email replies for the user to review. " +
	"Write only the reply body. Do not invent facts not present in the thread. " +
	"Never claim the message has been or will be sent."

// buildDraftPrompt renders the thread tail and the tone directive.
func buildDraftPrompt(msgs []domain.Message, tone domain.Tone) string {
	if len(msgs) > draftContextMessages {
		msgs = msgs[len(msgs)-draftContextMessages:]
	}

	var b strings.Builder
	b.WriteString("Thread so far, oldest first:\n\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "From: %s\nDate: %s\nSubject: %s\n\n%s\n\n---\n\n",
			m.From, m.Timestamp.Format("2006-01-02 15:04"), m.Subject, m.Body)
	}
	last := msgs[len(msgs)-1]
	fmt.Fprintf(&b, "Draft a reply to the last message (from %s). %s\n",
		last.From, toneInstructions[tone])
	return b.String()
}

// wrapDraft brackets the body with the review warning on both sides.
func wrapDraft(body string) string {
	return domain.DraftWarning + "\n\n" + body + "\n\n" + domain.DraftWarning
}
