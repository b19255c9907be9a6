package driving

import (
	"context"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

// Retriever provides semantic search and thread assembly over the index.
type Retriever interface {
	// SemanticSearch embeds the query and returns the top-k distinct
	// messages, deduplicating multiple chunks of one message and keeping
	// the highest-scoring chunk. senderFilter optionally restricts hits
	// to a sender address or domain; empty means no restriction.
	SemanticSearch(ctx context.Context, query string, k int, senderFilter string) ([]domain.SearchResult, error)

	// GetThread returns all messages of a thread sorted ascending by
	// timestamp. An unknown thread id yields an empty list, not an error;
	// callers must treat empty as "not found" rather than fabricate.
	GetThread(ctx context.Context, threadID string) ([]domain.Message, error)
}
