// Package memory provides an in-memory MessageIndex. It backs tests and
// ephemeral runs; durable storage uses the sqlite adapter.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.MessageIndex = (*Index)(nil)

// Index holds messages and their chunk records in process memory.
// Safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	messages map[string]domain.Message
	records  map[string][]domain.IndexRecord
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{
		messages: make(map[string]domain.Message),
		records:  make(map[string][]domain.IndexRecord),
	}
}

// UpsertMessage replaces the message and its complete chunk set atomically.
func (idx *Index) UpsertMessage(_ context.Context, msg domain.Message, records []domain.IndexRecord) error {
	if msg.ID == "" {
		return fmt.Errorf("%w: message id is empty", domain.ErrInvalidInput)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.messages[msg.ID] = msg
	idx.records[msg.ID] = append([]domain.IndexRecord(nil), records...)
	return nil
}

// HasMessage reports whether a message id is present.
func (idx *Index) HasMessage(_ context.Context, messageID string) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	_, ok := idx.messages[messageID]
	return ok, nil
}

// GetMessage retrieves a message by id.
func (idx *Index) GetMessage(_ context.Context, messageID string) (*domain.Message, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	msg, ok := idx.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", domain.ErrNotFound, messageID)
	}
	return &msg, nil
}

// DeleteMessage removes a message and its chunks.
func (idx *Index) DeleteMessage(_ context.Context, messageID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.messages, messageID)
	delete(idx.records, messageID)
	return nil
}

// Clear removes every message and chunk.
func (idx *Index) Clear(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.messages = make(map[string]domain.Message)
	idx.records = make(map[string][]domain.IndexRecord)
	return nil
}

// Query scans all records, scoring by cosine similarity.
func (idx *Index) Query(_ context.Context, embedding []float32, k int, filter domain.Filter) ([]domain.IndexHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", domain.ErrInvalidInput)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []domain.IndexHit
	for _, recs := range idx.records {
		for _, rec := range recs {
			if filter.ThreadID != "" && rec.Chunk.Meta.ThreadID != filter.ThreadID {
				continue
			}
			if !filter.MatchesSender(rec.Chunk.Meta.Sender) {
				continue
			}
			if len(rec.Embedding) != len(embedding) {
				return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
					domain.ErrModelMismatch, len(embedding), len(rec.Embedding))
			}
			hits = append(hits, domain.IndexHit{
				Record: rec,
				Score:  cosineSimilarity(embedding, rec.Embedding),
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.Chunk.Meta.Timestamp.After(hits[j].Record.Chunk.Meta.Timestamp)
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// ThreadMessages returns all messages of a thread, unordered.
func (idx *Index) ThreadMessages(_ context.Context, threadID string) ([]domain.Message, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var msgs []domain.Message
	for _, msg := range idx.messages {
		if msg.ThreadID == threadID {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

// MessagesSince returns all messages at or after the given instant, unordered.
func (idx *Index) MessagesSince(_ context.Context, since time.Time) ([]domain.Message, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var msgs []domain.Message
	for _, msg := range idx.messages {
		if !msg.Timestamp.Before(since) {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

// Dimensions returns the dimensionality of stored records, 0 when empty.
func (idx *Index) Dimensions(_ context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, recs := range idx.records {
		for _, rec := range recs {
			return len(rec.Embedding), nil
		}
	}
	return 0, nil
}

// Count returns the number of indexed messages.
func (idx *Index) Count(_ context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.messages), nil
}

// Close is a no-op for the in-memory index.
func (idx *Index) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
