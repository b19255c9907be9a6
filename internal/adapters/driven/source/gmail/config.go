package gmail

// Config holds Gmail source configuration.
type Config struct {
	// LabelIDs limits fetching to specific label IDs.
	// If empty, fetches INBOX by default.
	LabelIDs []string

	// Query is a Gmail search query (optional).
	Query string

	// PageSize is the page size for list requests.
	PageSize int64

	// IncludeSpamTrash includes spam and trash if true.
	IncludeSpamTrash bool

	// RequestsPerSecond is the sustained API rate limit.
	RequestsPerSecond float64

	// BurstSize is the rate limiter burst size.
	BurstSize int
}

// DefaultConfig returns the default configuration. The rate limits are
// conservative for Gmail quota units.
func DefaultConfig() Config {
	return Config{
		LabelIDs:          []string{"INBOX"},
		PageSize:          100,
		RequestsPerSecond: 2.0,
		BurstSize:         5,
	}
}

// withDefaults fills zero-valued fields.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.LabelIDs) == 0 {
		c.LabelIDs = d.LabelIDs
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = d.RequestsPerSecond
	}
	if c.BurstSize <= 0 {
		c.BurstSize = d.BurstSize
	}
	return c
}
