package driving

import (
	"context"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

// Triager ranks recent messages by inferred urgency.
type Triager interface {
	// Triage scans messages from the last `days` days and returns
	// candidates sorted descending by urgency score, ties broken by more
	// recent timestamp. Messages matching zero lexicon phrases are
	// excluded entirely.
	Triage(ctx context.Context, days int, senderFilter string) ([]domain.TriageCandidate, error)
}
