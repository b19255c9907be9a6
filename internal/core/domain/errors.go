package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Callers recover by reporting an empty result, never by fabricating content.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates bad startup parameters (unknown tone,
	// chunk overlap >= size, unknown provider). Fatal, never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrIndexUnavailable indicates the index storage is unreachable or corrupt.
	// Fatal for the whole operation - an empty-result fallback would be
	// indistinguishable from "no matches".
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrSourceUnavailable indicates the message source could not be reached.
	ErrSourceUnavailable = errors.New("message source unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or not reachable. Indexing and semantic search are impossible without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCompletionUnavailable indicates the completion backend is not configured.
	ErrCompletionUnavailable = errors.New("completion service unavailable")

	// ErrCompletionTimeout indicates a completion call exceeded its deadline.
	// Surfaces as a tool/turn-level failure, never a hang.
	ErrCompletionTimeout = errors.New("completion timed out")

	// ErrModelMismatch indicates the configured embedding model produces vectors
	// of a different dimensionality than the ones already persisted. Mixing
	// models without a full rebuild is rejected.
	ErrModelMismatch = errors.New("embedding model mismatch, full reindex required")
)
