package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_RequiresAllPorts(t *testing.T) {
	t.Run("nil retriever", func(t *testing.T) {
		ports, _, _, _ := testPorts()
		ports.Retriever = nil

		_, err := NewServer(ports)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingRetriever)
	})

	t.Run("nil triager", func(t *testing.T) {
		ports, _, _, _ := testPorts()
		ports.Triager = nil

		_, err := NewServer(ports)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingTriager)
	})

	t.Run("nil drafter", func(t *testing.T) {
		ports, _, _, _ := testPorts()
		ports.Drafter = nil

		_, err := NewServer(ports)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingDrafter)
	})

	t.Run("complete ports", func(t *testing.T) {
		ports, _, _, _ := testPorts()

		server, err := NewServer(ports)

		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}
