// Package mcp exposes mailsage retrieval over the Model Context Protocol.
// It lets MCP-capable AI assistants search, triage and draft against the
// local email index. Drafting stays read-only: nothing here can send mail.
package mcp

import (
	"errors"

	"github.com/custodia-labs/mailsage/internal/core/ports/driving"
)

// Missing-port errors returned by Ports.Validate.
var (
	ErrMissingRetriever = errors.New("mcp: retriever is required")
	ErrMissingTriager   = errors.New("mcp: triager is required")
	ErrMissingDrafter   = errors.New("mcp: drafter is required")
)

// Ports aggregates the driving ports the MCP server exposes as tools.
type Ports struct {
	Retriever driving.Retriever
	Triager   driving.Triager
	Drafter   driving.Drafter
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	if p.Triager == nil {
		return ErrMissingTriager
	}
	if p.Drafter == nil {
		return ErrMissingDrafter
	}
	return nil
}
