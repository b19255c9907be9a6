package chunker

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

func TestNewRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{name: "zero size", size: 0, overlap: 0},
		{name: "negative overlap", size: 100, overlap: -1},
		{name: "overlap equals size", size: 100, overlap: 100},
		{name: "overlap exceeds size", size: 100, overlap: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration))
		})
	}
}

func TestChunkEmptyInput(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)

	chunks := c.Chunk(domain.Message{ID: "m1"}, "")
	assert.Empty(t, chunks)
}

func TestChunkWindowing(t *testing.T) {
	c, err := New(10, 4)
	require.NoError(t, err)

	text := "abcdefghijklmnopqrstuvwxyz" // 26 bytes
	chunks := c.Chunk(domain.Message{ID: "m1"}, text)

	// Windows start every size-overlap = 6 runes: 0, 6, 12, 18, 24.
	require.Len(t, chunks, 5)
	assert.Equal(t, "abcdefghij", chunks[0].Text)
	assert.Equal(t, "ghijklmnop", chunks[1].Text)
	assert.Equal(t, "mnopqrstuv", chunks[2].Text)
	assert.Equal(t, "stuvwxyz", chunks[3].Text)
	assert.Equal(t, "yz", chunks[4].Text)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Seq)
		assert.Equal(t, "m1", ch.MessageID)
		assert.Equal(t, text[ch.Start:ch.End], ch.Text)
	}
}

func TestChunkMultiByteRunes(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	text := strings.Repeat("€", 20) // 3 bytes per rune
	chunks := c.Chunk(domain.Message{ID: "m1"}, text)

	// Windows start every size-overlap = 8 runes: 0, 8, 16.
	require.Len(t, chunks, 3)
	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Text), "chunk %d is not valid UTF-8", ch.Seq)
		assert.Equal(t, text[ch.Start:ch.End], ch.Text)
	}
	assert.Equal(t, strings.Repeat("€", 10), chunks[0].Text)
	assert.Equal(t, strings.Repeat("€", 4), chunks[2].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 24, chunks[1].Start)
}

func TestChunkShorterThanWindow(t *testing.T) {
	c, err := New(1000, 200)
	require.NoError(t, err)

	chunks := c.Chunk(domain.Message{ID: "m1"}, "short body")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short body", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 10, chunks[0].End)
}

func TestChunkDeterminism(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)
	msg := domain.Message{ID: "m1", ThreadID: "t1"}

	first := c.Chunk(msg, text)
	second := c.Chunk(msg, text)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].Start, second[i].Start)
		assert.Equal(t, first[i].End, second[i].End)
	}
}

func TestChunkCopiesRoutingMetadata(t *testing.T) {
	c, err := New(100, 0)
	require.NoError(t, err)

	ts := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	msg := domain.Message{
		ID:        "m1",
		ThreadID:  "t1",
		From:      "sarah@x.com",
		Subject:   "budget",
		Timestamp: ts,
		Labels:    []string{"INBOX"},
	}

	chunks := c.Chunk(msg, "please confirm the budget numbers")
	require.Len(t, chunks, 1)
	assert.Equal(t, "t1", chunks[0].Meta.ThreadID)
	assert.Equal(t, "sarah@x.com", chunks[0].Meta.Sender)
	assert.Equal(t, "budget", chunks[0].Meta.Subject)
	assert.Equal(t, ts, chunks[0].Meta.Timestamp)
	assert.Equal(t, []string{"INBOX"}, chunks[0].Meta.Labels)
}
