package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Tone
		wantErr bool
	}{
		{name: "empty defaults to professional", input: "", want: ToneProfessional},
		{name: "concise", input: "concise", want: ToneConcise},
		{name: "friendly", input: "friendly", want: ToneFriendly},
		{name: "formal", input: "formal", want: ToneFormal},
		{name: "professional", input: "professional", want: ToneProfessional},
		{name: "unknown is a configuration error", input: "sarcastic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTone(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterMatchesSender(t *testing.T) {
	f := Filter{Sender: "sarah@x.com"}
	assert.True(t, f.MatchesSender("sarah@x.com"))
	assert.True(t, f.MatchesSender("Sarah@X.com"))
	assert.False(t, f.MatchesSender("bob@y.com"))

	domainOnly := Filter{Sender: "x.com"}
	assert.True(t, domainOnly.MatchesSender("sarah@x.com"))

	empty := Filter{}
	assert.True(t, empty.MatchesSender("anyone@anywhere"))
}

func TestSortMessagesByTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{
		{ID: "c", Timestamp: base.Add(48 * time.Hour)},
		{ID: "a", Timestamp: base},
		{ID: "b", Timestamp: base.Add(24 * time.Hour)},
	}

	SortMessagesByTime(msgs)

	assert.Equal(t, "a", msgs[0].ID)
	assert.Equal(t, "b", msgs[1].ID)
	assert.Equal(t, "c", msgs[2].ID)
}

func TestKnownTool(t *testing.T) {
	assert.True(t, KnownTool("search_emails"))
	assert.True(t, KnownTool("draft_reply"))
	assert.False(t, KnownTool("send_email"))
}
