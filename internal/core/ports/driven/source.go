// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

// MessageSource yields raw message records for indexing.
// Pagination, auth and rate limiting are entirely the adapter's concern.
//
// Implementations may include:
//   - Gmail API (oauth2, history-based paging)
//   - JSONL file corpus for local/offline indexing
type MessageSource interface {
	// Messages streams messages until the source is exhausted or ctx is
	// cancelled. Per-message fetch failures are sent on the error channel
	// and do not stop the stream; both channels are closed when done.
	Messages(ctx context.Context) (<-chan domain.Message, <-chan error)

	// Name identifies the source for logging and reports.
	Name() string

	// Close releases resources.
	Close() error
}
