package domain

import (
	"sort"
	"strings"
	"time"
)

// Message represents one email as fetched from a MessageSource.
// It is immutable once fetched; the source owns it.
type Message struct {
	// ID is the unique message identifier assigned by the source.
	ID string

	// ThreadID groups messages belonging to the same conversation.
	ThreadID string

	// Timestamp is when the message was sent.
	Timestamp time.Time

	// From is the sender address.
	From string

	// To is the list of recipient addresses.
	To []string

	// Subject is the message subject line.
	Subject string

	// Body is the full message body text as supplied by the source.
	// It may still contain markup; the text cleaner strips it before chunking.
	Body string

	// Labels is the label set assigned by the source (e.g. INBOX, IMPORTANT).
	Labels []string

	// Unread reports whether the message is unread.
	Unread bool

	// Starred reports whether the message is starred.
	Starred bool

	// HasAttachment reports whether the message carries attachments.
	HasAttachment bool
}

// Chunk is a bounded window of one message's cleaned body, the unit of
// embedding and indexing. Its identity is (MessageID, Seq).
type Chunk struct {
	// MessageID links to the parent Message.
	MessageID string

	// Seq is the ordinal position within the message.
	Seq int

	// Text is the chunk content.
	Text string

	// Start and End are byte offsets into the cleaned body.
	Start int
	End   int

	// Meta is a copy of the parent's routing metadata so a query hit can be
	// attributed without a second lookup.
	Meta ChunkMeta
}

// ChunkMeta carries the routing metadata copied from the parent message.
type ChunkMeta struct {
	ThreadID  string
	Sender    string
	Timestamp time.Time
	Subject   string
	Labels    []string
}

// MetaFor builds chunk routing metadata from a message.
func MetaFor(m Message) ChunkMeta {
	return ChunkMeta{
		ThreadID:  m.ThreadID,
		Sender:    m.From,
		Timestamp: m.Timestamp,
		Subject:   m.Subject,
		Labels:    append([]string(nil), m.Labels...),
	}
}

// IndexRecord is the persisted tuple of a chunk and its embedding.
type IndexRecord struct {
	Chunk     Chunk
	Embedding []float32
}

// IndexHit is a nearest-neighbour query result.
type IndexHit struct {
	Record IndexRecord

	// Score is the cosine similarity to the query vector.
	Score float64
}

// Filter restricts an index query to records matching metadata fields.
// Zero-value fields are ignored.
type Filter struct {
	// ThreadID matches records of one thread exactly.
	ThreadID string

	// Sender matches when the record's sender address contains the value,
	// case-insensitively. This covers both full addresses and bare domains.
	Sender string
}

// MatchesSender reports whether an address satisfies the sender filter.
func (f Filter) MatchesSender(address string) bool {
	if f.Sender == "" {
		return true
	}
	return strings.Contains(strings.ToLower(address), strings.ToLower(f.Sender))
}

// SortMessagesByTime orders messages ascending by timestamp, in place.
// Thread reconstruction relies on this ordering.
func SortMessagesByTime(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
