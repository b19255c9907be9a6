package domain

// DefaultTriageKeywords is the urgency lexicon used when none is configured.
// Scores count distinct matched phrases, not raw occurrences, so this is a
// policy list rather than a fixed law - product can tune it via config.
var DefaultTriageKeywords = []string{
	"please confirm", "let me know", "waiting for", "can you",
	"could you", "would you", "action required", "need your",
	"awaiting", "please reply", "please respond", "get back to me",
	"follow up", "asap", "urgent", "time-sensitive",
}

// TriageCandidate is a message within the lookback window with a computed
// urgency score. Transient - recomputed per request, never persisted.
type TriageCandidate struct {
	// Message is the candidate message.
	Message Message

	// UrgencyScore is the number of distinct lexicon phrases matched in
	// subject and body. Repeated occurrences of one phrase count once.
	UrgencyScore int

	// MatchedKeywords lists the phrases that matched.
	MatchedKeywords []string
}
