package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Same text under the same model version must yield reproducible output;
// the vector dimensionality is constant for the lifetime of one index.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Local deterministic feature hashing for offline use and tests
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving input
	// order. More efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 256, 768, 1536).
	// This is determined by the model and must match the persisted index.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at startup before committing to an index run.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
