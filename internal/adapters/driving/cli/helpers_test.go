package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// runCommand executes the root command with the given args and returns the
// combined output. Flag state is reset afterwards so tests stay independent.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetCommandFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetCommandFlags() {
	// A command that fails in RunE skips PersistentPostRun, which would
	// leave the store open on a temp dir the previous test has deleted.
	if store != nil {
		store.Close()
		store = nil
	}
	flagConfig = ""
	flagVerbose = false
	indexForce = false
	indexMax = 0
	indexCorpus = ""
	searchLimit = 5
	searchSender = ""
	searchJSON = false
	triageDays = 7
	triageSender = ""
	triageJSON = false
	draftTone = ""
	askShowSteps = false
}

// writeTestConfig writes a config pointing at a temp data dir with the
// offline embedding backend, and returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`[index]
data_dir = %q

[embedding]
provider = "local"
dimensions = 64
`, filepath.Join(dir, "data"))

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type corpusMessage struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	To        []string  `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
}

// writeCorpus writes messages as a JSONL file and returns its path.
func writeCorpus(t *testing.T, messages []corpusMessage) string {
	t.Helper()

	var buf bytes.Buffer
	for _, m := range messages {
		line, err := json.Marshal(m)
		require.NoError(t, err)
		buf.Write(line)
		buf.WriteByte('\n')
	}

	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func sampleCorpus() []corpusMessage {
	now := time.Now()
	return []corpusMessage{
		{
			ID:        "m1",
			ThreadID:  "t1",
			Timestamp: now.Add(-48 * time.Hour),
			From:      "dana@example.com",
			To:        []string{"me@example.com"},
			Subject:   "Offsite budget proposal",
			Body:      "The offsite budget needs approval before Friday. Numbers attached.",
		},
		{
			ID:        "m2",
			ThreadID:  "t1",
			Timestamp: now.Add(-24 * time.Hour),
			From:      "me@example.com",
			To:        []string{"dana@example.com"},
			Subject:   "Re: Offsite budget proposal",
			Body:      "Looks reasonable, I will review the numbers tomorrow.",
		},
		{
			ID:        "m3",
			ThreadID:  "t2",
			Timestamp: now.Add(-12 * time.Hour),
			From:      "ops@example.com",
			To:        []string{"me@example.com"},
			Subject:   "Urgent: database failover deadline",
			Body:      "This is urgent, we need a reply by end of day. Action required.",
		},
	}
}
