package driving

import (
	"context"

	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
)

// TurnResult is the outcome of one assistant turn.
type TurnResult struct {
	// Answer is the final natural-language answer.
	Answer string

	// Steps records the tool invocations of this turn, in order.
	Steps []domain.AgentStep

	// CitedIDs are the message/thread ids surfaced by tool observations
	// during the turn; citations in Answer must come from this set.
	CitedIDs []string
}

// Assistant runs the bounded tool-routing reasoning loop.
// Independent turns may run concurrently, each with private history; within
// one turn, tool calls execute strictly one at a time.
type Assistant interface {
	// Ask answers a user utterance, chaining retrieval tools as needed.
	// History is the prior conversation, threaded through explicitly -
	// the assistant holds no shared mutable conversation state.
	Ask(ctx context.Context, utterance string, history []driven.ChatMessage) (*TurnResult, error)
}
