// Package driving provides interfaces for use-case entry points (primary/inbound ports).
package driving

import "context"

// IndexOptions configures an indexing run.
type IndexOptions struct {
	// Force re-indexes every message, discarding prior records first.
	Force bool

	// MaxMessages caps how many messages are processed; 0 means no cap.
	MaxMessages int
}

// IndexReport summarises an indexing run. Per-message failures never abort
// the run; they are aggregated here instead of being silently dropped.
type IndexReport struct {
	// Indexed is the number of messages chunked, embedded and upserted.
	Indexed int

	// Skipped is the number of already-present messages left untouched.
	Skipped int

	// Failed is the number of messages that could not be processed.
	Failed int

	// FailedIDs samples the ids of failed messages (capped).
	FailedIDs []string
}

// Indexer orchestrates fetch, clean, chunk, embed and upsert.
type Indexer interface {
	// Run drains the message source and indexes each message.
	// Isolated per-message failures are recorded in the report; storage or
	// configuration failures abort the run with an error.
	Run(ctx context.Context, opts IndexOptions) (*IndexReport, error)
}
