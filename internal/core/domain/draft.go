package domain

import "fmt"

// Tone selects the writing style for a reply draft.
type Tone string

// Recognised tones. An unrecognised tone is a configuration error,
// never a silent fallback.
const (
	ToneConcise      Tone = "concise"
	ToneFriendly     Tone = "friendly"
	ToneFormal       Tone = "formal"
	ToneProfessional Tone = "professional"
)

// DefaultTone applies when the caller omits a tone.
const DefaultTone = ToneProfessional

// ParseTone validates a tone string. Empty input resolves to DefaultTone.
func ParseTone(s string) (Tone, error) {
	switch Tone(s) {
	case "":
		return DefaultTone, nil
	case ToneConcise, ToneFriendly, ToneFormal, ToneProfessional:
		return Tone(s), nil
	default:
		return "", fmt.Errorf("%w: unknown tone %q", ErrConfiguration, s)
	}
}

// DraftWarning marks generated drafts as requiring human review. Every draft
// carries it; nothing in this system can transmit a draft.
const DraftWarning = "DRAFT ONLY - review before sending. This assistant cannot send email."

// Draft is a generated, unsent reply.
type Draft struct {
	// ThreadID is the thread the draft replies to.
	ThreadID string

	// InReplyTo is the id of the message being replied to
	// (the chronologically last message of the thread).
	InReplyTo string

	// Subject is the original subject of the message being replied to.
	Subject string

	// Sender is the author of the message being replied to.
	Sender string

	// Tone is the style the draft was generated with.
	Tone Tone

	// Text is the draft body, always wrapped in DraftWarning markers.
	Text string
}
