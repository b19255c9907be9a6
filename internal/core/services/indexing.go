// Package services implements the core use cases behind the driving ports.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/mailsage/internal/chunker"
	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
	"github.com/custodia-labs/mailsage/internal/core/ports/driving"
	"github.com/custodia-labs/mailsage/internal/logger"
)

// Ensure IndexingService implements the interface.
var _ driving.Indexer = (*IndexingService)(nil)

// DefaultIndexWorkers bounds concurrent message processing.
const DefaultIndexWorkers = 4

// maxFailedIDSample caps how many failed ids a report carries.
const maxFailedIDSample = 10

// IndexingService drains a message source and indexes each message:
// clean, chunk, embed, upsert.
type IndexingService struct {
	source   driven.MessageSource
	index    driven.MessageIndex
	embedder driven.EmbeddingService
	cleaner  driven.TextCleaner
	chunker  *chunker.Chunker
	workers  int
}

// NewIndexingService creates an indexing service.
func NewIndexingService(
	source driven.MessageSource,
	index driven.MessageIndex,
	embedder driven.EmbeddingService,
	cleaner driven.TextCleaner,
	ch *chunker.Chunker,
) *IndexingService {
	return &IndexingService{
		source:   source,
		index:    index,
		embedder: embedder,
		cleaner:  cleaner,
		chunker:  ch,
		workers:  DefaultIndexWorkers,
	}
}

// SetWorkers overrides the worker pool size.
func (s *IndexingService) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// Run drains the source and indexes every message. A message is processed
// entirely by one worker, so its upsert stays atomic. Isolated failures are
// aggregated; only storage, source or model mismatch failures abort the run.
func (s *IndexingService) Run(ctx context.Context, opts driving.IndexOptions) (*driving.IndexReport, error) {
	logger.Section("Indexing Run")
	logger.Debug("Source: %s, force=%t, max=%d", s.source.Name(), opts.Force, opts.MaxMessages)

	rebuild, err := s.checkDimensions(ctx, opts.Force)
	if err != nil {
		return nil, err
	}
	if rebuild {
		logger.Info("Embedding dimensions changed; discarding all index records")
		if err := s.index.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clearing index for rebuild: %w", err)
		}
	}

	msgsCh, errsCh := s.source.Messages(ctx)

	var (
		mu     sync.Mutex
		report driving.IndexReport
		wg     sync.WaitGroup
	)
	sem := make(chan struct{}, s.workers)

	recordFailure := func(id string) {
		mu.Lock()
		defer mu.Unlock()
		report.Failed++
		if len(report.FailedIDs) < maxFailedIDSample {
			report.FailedIDs = append(report.FailedIDs, id)
		}
	}

	var sourceErr error
	collectSourceErr := func(err error) {
		if errors.Is(err, domain.ErrSourceUnavailable) || errors.Is(err, context.Canceled) {
			sourceErr = err
			return
		}
		// A per-message fetch failure; the id is unknown here.
		logger.Warn("Source error: %v", err)
		recordFailure("")
	}

	taken := 0

drain:
	for {
		select {
		case msg, ok := <-msgsCh:
			if !ok {
				break drain
			}
			if opts.MaxMessages > 0 && taken >= opts.MaxMessages {
				continue // Keep draining so the source goroutine can finish.
			}
			taken++

			wg.Add(1)
			sem <- struct{}{}
			go func(m domain.Message) {
				defer wg.Done()
				defer func() { <-sem }()

				outcome, err := s.indexOne(ctx, m, opts.Force)
				if err != nil {
					logger.Warn("Indexing %s failed: %v", m.ID, err)
					recordFailure(m.ID)
					return
				}
				mu.Lock()
				if outcome == outcomeSkipped {
					report.Skipped++
				} else {
					report.Indexed++
				}
				mu.Unlock()
			}(msg)

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			collectSourceErr(err)

		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}
	}

	// The source may emit a trailing error between its last message and
	// closing both channels; a busy drain loop can exit before seeing it.
	// Collect whatever is left so a fatal error is never dropped.
	if errsCh != nil {
		for err := range errsCh {
			collectSourceErr(err)
		}
	}

	wg.Wait()

	if sourceErr != nil {
		return nil, fmt.Errorf("draining source: %w", sourceErr)
	}

	logger.Info("Indexed %d, skipped %d, failed %d", report.Indexed, report.Skipped, report.Failed)
	return &report, nil
}

type indexOutcome int

const (
	outcomeIndexed indexOutcome = iota
	outcomeSkipped
)

// indexOne processes a single message end to end.
func (s *IndexingService) indexOne(ctx context.Context, msg domain.Message, force bool) (indexOutcome, error) {
	if msg.ID == "" {
		return 0, fmt.Errorf("%w: message without id", domain.ErrInvalidInput)
	}

	present, err := s.index.HasMessage(ctx, msg.ID)
	if err != nil {
		return 0, fmt.Errorf("checking presence: %w", err)
	}
	if present && !force {
		return outcomeSkipped, nil
	}
	if present && force {
		if err := s.index.DeleteMessage(ctx, msg.ID); err != nil {
			return 0, fmt.Errorf("discarding prior records: %w", err)
		}
	}

	cleaned := s.cleaner.Clean(msg.Body)
	chunks := s.chunker.Chunk(msg, cleaned)

	var records []domain.IndexRecord
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		embeddings, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embedding: %w", err)
		}
		if len(embeddings) != len(chunks) {
			return 0, fmt.Errorf("%w: got %d embeddings for %d chunks",
				domain.ErrEmbeddingUnavailable, len(embeddings), len(chunks))
		}

		records = make([]domain.IndexRecord, len(chunks))
		for i := range chunks {
			records[i] = domain.IndexRecord{Chunk: chunks[i], Embedding: embeddings[i]}
		}
	}

	// A message with an empty cleaned body still gets its metadata row so
	// thread reconstruction and triage can see it.
	if err := s.index.UpsertMessage(ctx, msg, records); err != nil {
		return 0, fmt.Errorf("upserting: %w", err)
	}
	return outcomeIndexed, nil
}

// checkDimensions rejects an embedding model whose dimensionality differs
// from what the index already holds. A forced run reports the mismatch as a
// full rebuild instead, so stale-dimension records are discarded wholesale
// rather than only for messages the source still yields.
func (s *IndexingService) checkDimensions(ctx context.Context, force bool) (bool, error) {
	existing, err := s.index.Dimensions(ctx)
	if err != nil {
		return false, fmt.Errorf("reading index dimensions: %w", err)
	}
	if existing == 0 || existing == s.embedder.Dimensions() {
		return false, nil
	}
	if force {
		return true, nil
	}
	return false, fmt.Errorf("%w: index has %d dimensions, model %q produces %d",
		domain.ErrModelMismatch, existing, s.embedder.ModelName(), s.embedder.Dimensions())
}
