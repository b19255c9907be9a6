package driven

// TextCleaner strips markup and boilerplate from a raw message body before
// chunking. Cleaning is deterministic: identical input yields identical
// output, which re-indexing relies on.
type TextCleaner interface {
	// Clean returns the plain-text rendition of a raw body.
	Clean(raw string) string
}
