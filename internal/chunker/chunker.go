// Package chunker provides deterministic fixed-size text chunking.
package chunker

import (
	"fmt"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

// DefaultSize is the default number of characters per chunk.
const DefaultSize = 1000

// DefaultOverlap is the default number of overlapping characters between chunks.
const DefaultOverlap = 200

// Chunker splits cleaned message text into overlapping fixed-size windows.
// Windows are measured in runes so multi-byte characters are never split;
// identical input and parameters always produce identical boundaries, which
// idempotent re-indexing depends on.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Overlap must be non-negative and strictly less than
// size; violations are configuration errors reported here, at startup, never
// at call time.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be non-negative, got %d", domain.ErrConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be less than size %d", domain.ErrConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits a message's cleaned body into chunks carrying the message's
// routing metadata. Empty input produces no chunks, not an error.
func (c *Chunker) Chunk(m domain.Message, cleaned string) []domain.Chunk {
	if cleaned == "" {
		return nil
	}

	meta := domain.MetaFor(m)
	step := c.size - c.overlap

	// Byte offset of each rune start, with the total length as sentinel, so
	// windows count runes while Start/End stay byte offsets into the body.
	starts := make([]int, 0, len(cleaned)+1)
	for off := range cleaned {
		starts = append(starts, off)
	}
	starts = append(starts, len(cleaned))
	total := len(starts) - 1 // rune count

	chunks := make([]domain.Chunk, 0, total/step+1)
	seq := 0

	for start := 0; start < total; start += step {
		end := start + c.size
		if end > total {
			end = total
		}

		chunks = append(chunks, domain.Chunk{
			MessageID: m.ID,
			Seq:       seq,
			Text:      cleaned[starts[start]:starts[end]],
			Start:     starts[start],
			End:       starts[end],
			Meta:      meta,
		})
		seq++

		if end == total {
			break
		}
	}

	return chunks
}
