package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetTrace(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestVerboseToggle(t *testing.T) {
	resetTrace(t)

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestLevelsTagLines(t *testing.T) {
	buf := resetTrace(t)
	SetVerbose(true)

	Debug("chunks: %d", 3)
	Info("indexed %d", 2)
	Warn("message %s failed", "m1")

	assert.Equal(t,
		"[DEBUG] chunks: 3\n[INFO] indexed 2\n[WARN] message m1 failed\n",
		buf.String())
}

func TestSilentWhenNotVerbose(t *testing.T) {
	buf := resetTrace(t)
	SetVerbose(false)

	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Section("hidden")

	assert.Zero(t, buf.Len())
}

func TestSectionHeader(t *testing.T) {
	buf := resetTrace(t)
	SetVerbose(true)

	Section("Indexing Run")

	assert.Equal(t, "\n=== Indexing Run ===\n", buf.String())
}

func TestConcurrentTracing(t *testing.T) {
	resetTrace(t)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(n int) {
			SetVerbose(true)
			Debug("worker %d", n)
			IsVerbose()
			SetVerbose(false)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
