package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := runCommand(t, "search")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestSearchCmd_FindsIndexedMessages(t *testing.T) {
	cfgPath := writeTestConfig(t)
	corpus := writeCorpus(t, sampleCorpus())

	_, err := runCommand(t, "--config", cfgPath, "index", "--corpus", corpus)
	require.NoError(t, err)

	out, err := runCommand(t, "--config", cfgPath, "search", "offsite budget approval")

	require.NoError(t, err)
	assert.Contains(t, out, "result(s)")
	assert.Contains(t, out, "Offsite budget proposal")
}

func TestSearchCmd_SenderFilter(t *testing.T) {
	cfgPath := writeTestConfig(t)
	corpus := writeCorpus(t, sampleCorpus())

	_, err := runCommand(t, "--config", cfgPath, "index", "--corpus", corpus)
	require.NoError(t, err)

	out, err := runCommand(t, "--config", cfgPath, "search", "budget", "--sender", "ops@example.com")

	require.NoError(t, err)
	assert.NotContains(t, out, "dana@example.com")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cfgPath := writeTestConfig(t)
	corpus := writeCorpus(t, sampleCorpus())

	_, err := runCommand(t, "--config", cfgPath, "index", "--corpus", corpus)
	require.NoError(t, err)

	out, err := runCommand(t, "--config", cfgPath, "search", "budget", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"message_id"`)
	assert.Contains(t, out, `"score"`)
}

func TestSearchCmd_EmptyIndex(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", cfgPath, "search", "anything")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestExcerpt_Truncates(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 10))
	assert.Equal(t, "a b c", excerpt("a \n  b\tc", 10))

	long := excerpt("0123456789abcdef", 10)
	assert.Equal(t, "0123456789...", long)
}
