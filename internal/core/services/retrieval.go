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

// Ensure RetrievalService implements the interface.
var _ driving.Retriever = (*RetrievalService)(nil)

// overqueryFactor widens the chunk query so deduplicating to one result
// per message can still fill k.
const overqueryFactor = 4

// RetrievalService provides semantic search and thread assembly.
type RetrievalService struct {
	index    driven.MessageIndex
	embedder driven.EmbeddingService
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(index driven.MessageIndex, embedder driven.EmbeddingService) *RetrievalService {
	return &RetrievalService{
		index:    index,
		embedder: embedder,
	}
}

// SemanticSearch embeds the query and returns the top-k distinct messages.
// Multiple chunks of one message collapse to the highest-scoring chunk.
func (s *RetrievalService) SemanticSearch(ctx context.Context, query string, k int, senderFilter string) ([]domain.SearchResult, error) {
	logger.Section("Semantic Search")
	logger.Debug("Query: %q, k=%d, sender=%q", query, k, senderFilter)

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.index.Query(ctx, embedding, k*overqueryFactor, domain.Filter{Sender: senderFilter})
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	logger.Debug("Index returned %d chunk hits", len(hits))

	// Hits arrive sorted by score, so the first chunk seen per message is
	// its best one.
	seen := make(map[string]bool)
	var results []domain.SearchResult
	for _, hit := range hits {
		id := hit.Record.Chunk.MessageID
		if seen[id] {
			continue
		}
		seen[id] = true

		msg, err := s.index.GetMessage(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("hydrating message %s: %w", id, err)
		}
		results = append(results, domain.SearchResult{
			Message: *msg,
			Chunk:   hit.Record.Chunk,
			Score:   hit.Score,
		})
		if len(results) == k {
			break
		}
	}

	logger.Info("Search returned %d messages", len(results))
	return results, nil
}

// GetThread returns all messages of a thread sorted ascending by timestamp.
// An unknown thread id yields an empty list, not an error.
func (s *RetrievalService) GetThread(ctx context.Context, threadID string) ([]domain.Message, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("%w: thread id is empty", domain.ErrInvalidInput)
	}

	msgs, err := s.index.ThreadMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("loading thread %s: %w", threadID, err)
	}

	domain.SortMessagesByTime(msgs)
	return msgs, nil
}
