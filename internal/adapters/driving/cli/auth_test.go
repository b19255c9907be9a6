package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

func TestAuthCmd_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range authCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["login"])
	assert.True(t, names["status"])
	assert.True(t, names["logout"])
}

func TestAuthLogin_RequiresClientID(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCommand(t, "--config", cfgPath, "auth", "login")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
