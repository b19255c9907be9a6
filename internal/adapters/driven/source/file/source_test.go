package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

func writeCorpus(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0600))
	return path
}

func drain(t *testing.T, src *Source) ([]domain.Message, []error) {
	t.Helper()
	msgsCh, errsCh := src.Messages(context.Background())

	var msgs []domain.Message
	var errs []error
	for msgsCh != nil || errsCh != nil {
		select {
		case m, ok := <-msgsCh:
			if !ok {
				msgsCh = nil
				continue
			}
			msgs = append(msgs, m)
		case e, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			errs = append(errs, e)
		}
	}
	return msgs, errs
}

func TestMessagesStreamsInFileOrder(t *testing.T) {
	path := writeCorpus(t, `{"id":"m1","thread_id":"t1","from":"a@example.com","subject":"first","body":"one"}
{"id":"m2","thread_id":"t1","from":"b@example.com","subject":"second","body":"two"}
`)
	src, err := NewSource(path)
	require.NoError(t, err)

	msgs, errs := drain(t, src)

	require.Empty(t, errs)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "t1", msgs[1].ThreadID)
}

func TestMessagesSkipsMalformedLines(t *testing.T) {
	path := writeCorpus(t, `{"id":"m1","body":"fine"}
not json at all
{"body":"missing id"}
{"id":"m2","body":"also fine"}
`)
	src, err := NewSource(path)
	require.NoError(t, err)

	msgs, errs := drain(t, src)

	assert.Len(t, msgs, 2, "good lines survive bad neighbours")
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.ErrorIs(t, e, domain.ErrInvalidInput)
	}
}

func TestNewSourceMissingFile(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "absent.jsonl"))

	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestNewSourceEmptyPath(t *testing.T) {
	_, err := NewSource("")

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestMessagesContextCancel(t *testing.T) {
	path := writeCorpus(t, `{"id":"m1","body":"one"}
{"id":"m2","body":"two"}
`)
	src, err := NewSource(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	msgsCh, errsCh := src.Messages(ctx)

	<-msgsCh
	cancel()

	// Channels close without the remaining message being forced through.
	for range msgsCh {
	}
	for range errsCh {
	}
}
