package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

// MessageIndex persists chunk vectors plus message metadata and supports
// nearest-neighbour query with metadata predicate filtering.
// Backed by SQLite for durable storage; an in-memory adapter backs tests.
//
// Concurrency: one writer (the indexing pipeline) may run alongside many
// readers. A query racing an in-flight upsert for the same message observes
// either the old or the new chunk set, never a mix - UpsertMessage is
// atomic per message.
type MessageIndex interface {
	// UpsertMessage replaces the message row and its complete chunk set in
	// one transaction. After it returns, the records for that message id
	// exactly equal the given set - no orphaned chunks from a prior,
	// longer version of the body survive.
	UpsertMessage(ctx context.Context, msg domain.Message, records []domain.IndexRecord) error

	// HasMessage reports whether records exist for a message id.
	// The pipeline uses it for idempotent skip-if-present indexing.
	HasMessage(ctx context.Context, messageID string) (bool, error)

	// GetMessage retrieves a message by id. Returns domain.ErrNotFound
	// when absent.
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)

	// DeleteMessage removes a message and all its chunks.
	// Used only by forced re-indexing.
	DeleteMessage(ctx context.Context, messageID string) error

	// Clear removes every message and chunk. Forced rebuilds use it when
	// the embedding dimensionality changes, so no stale-dimension records
	// survive for messages the source no longer yields.
	Clear(ctx context.Context) error

	// Query returns the k records nearest to the embedding by cosine
	// similarity, restricted to records satisfying the filter. Similarity
	// ties break by more-recent timestamp first. k <= 0 is an error.
	Query(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]domain.IndexHit, error)

	// ThreadMessages returns all messages sharing a thread id, unordered.
	// Ordering is the retrieval engine's responsibility.
	ThreadMessages(ctx context.Context, threadID string) ([]domain.Message, error)

	// MessagesSince returns all messages with a timestamp at or after the
	// given instant, unordered.
	MessagesSince(ctx context.Context, since time.Time) ([]domain.Message, error)

	// Dimensions returns the vector dimensionality of the persisted
	// records, or 0 when the index is empty.
	Dimensions(ctx context.Context) (int, error)

	// Count returns the number of indexed messages.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
