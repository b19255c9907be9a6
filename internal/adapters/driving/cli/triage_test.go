package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriageCmd_Use(t *testing.T) {
	assert.Equal(t, "triage", triageCmd.Use)
}

func TestTriageCmd_DaysFlagDefault(t *testing.T) {
	flag := triageCmd.Flags().Lookup("days")
	require.NotNil(t, flag)
	assert.Equal(t, "7", flag.DefValue)
}

func TestTriageCmd_RanksUrgentMessages(t *testing.T) {
	cfgPath := writeTestConfig(t)
	corpus := writeCorpus(t, sampleCorpus())

	_, err := runCommand(t, "--config", cfgPath, "index", "--corpus", corpus)
	require.NoError(t, err)

	out, err := runCommand(t, "--config", cfgPath, "triage")

	require.NoError(t, err)
	assert.Contains(t, out, "Urgent: database failover deadline")
	assert.Contains(t, out, "urgent")
	// The plain budget exchange matches no urgency phrase.
	assert.NotContains(t, out, "Re: Offsite budget proposal")
}

func TestTriageCmd_SenderFilterExcludes(t *testing.T) {
	cfgPath := writeTestConfig(t)
	corpus := writeCorpus(t, sampleCorpus())

	_, err := runCommand(t, "--config", cfgPath, "index", "--corpus", corpus)
	require.NoError(t, err)

	out, err := runCommand(t, "--config", cfgPath, "triage", "--sender", "dana@example.com")

	require.NoError(t, err)
	assert.Contains(t, out, "Nothing urgent")
}

func TestTriageCmd_JSONOutput(t *testing.T) {
	cfgPath := writeTestConfig(t)
	corpus := writeCorpus(t, sampleCorpus())

	_, err := runCommand(t, "--config", cfgPath, "index", "--corpus", corpus)
	require.NoError(t, err)

	out, err := runCommand(t, "--config", cfgPath, "triage", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"urgency_score"`)
	assert.Contains(t, out, `"matched_keywords"`)
}

func TestTriageCmd_RejectsNonPositiveDays(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCommand(t, "--config", cfgPath, "triage", "--days", "0")

	require.Error(t, err)
}
