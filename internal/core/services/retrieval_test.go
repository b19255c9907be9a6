package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailsage/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/mailsage/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/mailsage/internal/core/domain"
)

func seedRetrieval(t *testing.T, idx *memory.Index, embedder *local.EmbeddingService, msg domain.Message, chunks ...string) {
	t.Helper()
	ctx := context.Background()
	records := make([]domain.IndexRecord, len(chunks))
	for i, text := range chunks {
		vec, err := embedder.Embed(ctx, text)
		require.NoError(t, err)
		records[i] = domain.IndexRecord{
			Chunk: domain.Chunk{
				MessageID: msg.ID,
				Seq:       i,
				Text:      text,
				Meta:      domain.MetaFor(msg),
			},
			Embedding: vec,
		}
	}
	require.NoError(t, idx.UpsertMessage(ctx, msg, records))
}

func retrievalMessage(id, threadID string, ts time.Time) domain.Message {
	return domain.Message{
		ID:        id,
		ThreadID:  threadID,
		Timestamp: ts,
		From:      "sender@example.com",
		Subject:   "subject " + id,
		Body:      "body " + id,
	}
}

func TestSemanticSearchDeduplicatesPerMessage(t *testing.T) {
	idx := memory.New()
	embedder := local.NewEmbeddingService(128)
	svc := NewRetrievalService(idx, embedder)

	m1 := retrievalMessage("m1", "t1", time.Now().UTC())
	seedRetrieval(t, idx, embedder, m1,
		"budget review for the third quarter",
		"budget numbers and spreadsheet for the budget review",
	)
	m2 := retrievalMessage("m2", "t2", time.Now().UTC())
	seedRetrieval(t, idx, embedder, m2, "lunch plans for friday")

	results, err := svc.SemanticSearch(context.Background(), "budget review", 5, "")
	require.NoError(t, err)

	ids := make(map[string]int)
	for _, r := range results {
		ids[r.Message.ID]++
	}
	assert.Equal(t, 1, ids["m1"], "one result per message, best chunk kept")
	assert.LessOrEqual(t, len(results), 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "m1", results[0].Message.ID)
}

func TestSemanticSearchRejectsBadInput(t *testing.T) {
	svc := NewRetrievalService(memory.New(), local.NewEmbeddingService(64))

	_, err := svc.SemanticSearch(context.Background(), "query", 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.SemanticSearch(context.Background(), "   ", 5, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSemanticSearchSenderFilter(t *testing.T) {
	idx := memory.New()
	embedder := local.NewEmbeddingService(128)
	svc := NewRetrievalService(idx, embedder)

	m1 := retrievalMessage("m1", "t1", time.Now().UTC())
	m1.From = "alice@corp.example.com"
	seedRetrieval(t, idx, embedder, m1, "project status update")

	m2 := retrievalMessage("m2", "t2", time.Now().UTC())
	m2.From = "bob@other.org"
	seedRetrieval(t, idx, embedder, m2, "project status update")

	results, err := svc.SemanticSearch(context.Background(), "project status", 5, "corp.example.com")
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].Message.ID)
}

func TestGetThreadSortsAscending(t *testing.T) {
	idx := memory.New()
	svc := NewRetrievalService(idx, local.NewEmbeddingService(64))
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	later := retrievalMessage("m2", "t1", base.Add(2*time.Hour))
	earlier := retrievalMessage("m1", "t1", base)
	require.NoError(t, idx.UpsertMessage(ctx, later, nil))
	require.NoError(t, idx.UpsertMessage(ctx, earlier, nil))

	msgs, err := svc.GetThread(ctx, "t1")
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
}

func TestGetThreadUnknownIDReturnsEmpty(t *testing.T) {
	svc := NewRetrievalService(memory.New(), local.NewEmbeddingService(64))

	msgs, err := svc.GetThread(context.Background(), "no-such-thread")

	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestGetThreadEmptyIDRejected(t *testing.T) {
	svc := NewRetrievalService(memory.New(), local.NewEmbeddingService(64))

	_, err := svc.GetThread(context.Background(), "  ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
