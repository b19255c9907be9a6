package driving

import (
	"context"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

// Drafter generates unsent reply drafts. The port deliberately offers no
// transmission capability - that guarantee is architectural, not a UI
// convention, and holds even for fully automated callers.
type Drafter interface {
	// DraftReply drafts a reply to the chronologically last message of a
	// thread in the given tone ("" applies the documented default).
	// Returns domain.ErrNotFound when the thread has no messages and
	// domain.ErrConfiguration for an unrecognised tone.
	DraftReply(ctx context.Context, threadID, tone string) (*domain.Draft, error)
}
