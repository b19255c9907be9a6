package domain

// SearchResult represents a single semantic search hit, already deduplicated
// to one result per message. Callers reason about messages, not raw chunks.
type SearchResult struct {
	// Message is the matched message.
	Message Message

	// Chunk is the highest-scoring chunk of that message.
	Chunk Chunk

	// Score is the similarity score of the best chunk.
	Score float64
}
