package mcp

import (
	"context"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	results  []domain.SearchResult
	messages []domain.Message

	lastQuery  string
	lastK      int
	lastSender string
	lastThread string

	err error
}

func (m *mockRetriever) SemanticSearch(_ context.Context, query string, k int, sender string) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastK = k
	m.lastSender = sender
	return m.results, m.err
}

func (m *mockRetriever) GetThread(_ context.Context, threadID string) ([]domain.Message, error) {
	m.lastThread = threadID
	return m.messages, m.err
}

// mockTriager is a mock implementation of driving.Triager.
type mockTriager struct {
	candidates []domain.TriageCandidate

	lastDays   int
	lastSender string

	err error
}

func (m *mockTriager) Triage(_ context.Context, days int, sender string) ([]domain.TriageCandidate, error) {
	m.lastDays = days
	m.lastSender = sender
	return m.candidates, m.err
}

// mockDrafter is a mock implementation of driving.Drafter.
type mockDrafter struct {
	draft *domain.Draft

	lastThread string
	lastTone   string

	err error
}

func (m *mockDrafter) DraftReply(_ context.Context, threadID, tone string) (*domain.Draft, error) {
	m.lastThread = threadID
	m.lastTone = tone
	return m.draft, m.err
}

func testPorts() (*Ports, *mockRetriever, *mockTriager, *mockDrafter) {
	retriever := &mockRetriever{}
	triager := &mockTriager{}
	drafter := &mockDrafter{}
	return &Ports{
		Retriever: retriever,
		Triager:   triager,
		Drafter:   drafter,
	}, retriever, triager, drafter
}
