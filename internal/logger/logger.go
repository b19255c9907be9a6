// Package logger traces the mailsage pipeline on stderr. Every command
// stays silent by default; --verbose turns on stage headers and leveled
// lines so users can watch indexing, retrieval, and agent turns unfold.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
)

func (l level) tag() string {
	switch l {
	case levelInfo:
		return "[INFO]"
	case levelWarn:
		return "[WARN]"
	default:
		return "[DEBUG]"
	}
}

// sink holds the shared trace state. A single process-wide sink keeps
// the call sites free of plumbing; commands flip it once at startup.
type sink struct {
	mu      sync.RWMutex
	enabled bool
	w       io.Writer
}

var trace = sink{w: os.Stderr}

func (s *sink) emit(l level, format string, args ...any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.enabled {
		return
	}
	fmt.Fprintf(s.w, l.tag()+" "+format+"\n", args...)
}

// SetVerbose enables or disables pipeline tracing.
func SetVerbose(v bool) {
	trace.mu.Lock()
	defer trace.mu.Unlock()
	trace.enabled = v
}

// IsVerbose reports whether tracing is enabled.
func IsVerbose() bool {
	trace.mu.RLock()
	defer trace.mu.RUnlock()
	return trace.enabled
}

// SetOutput redirects trace output away from os.Stderr. Tests use it to
// capture lines without touching the process streams.
func SetOutput(w io.Writer) {
	trace.mu.Lock()
	defer trace.mu.Unlock()
	trace.w = w
}

// Section marks the start of a pipeline stage, such as an indexing run
// or a single assistant turn.
func Section(name string) {
	trace.mu.RLock()
	defer trace.mu.RUnlock()
	if !trace.enabled {
		return
	}
	fmt.Fprintf(trace.w, "\n=== %s ===\n", name)
}

// Debug traces fine-grained detail inside a stage.
func Debug(format string, args ...any) {
	trace.emit(levelDebug, format, args...)
}

// Info traces stage-level progress and summaries.
func Info(format string, args ...any) {
	trace.emit(levelInfo, format, args...)
}

// Warn traces recoverable problems, such as a message that failed to
// index while the run continued.
func Warn(format string, args ...any) {
	trace.emit(levelWarn, format, args...)
}
