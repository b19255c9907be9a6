package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
	"github.com/custodia-labs/mailsage/internal/core/ports/driving"
	"github.com/custodia-labs/mailsage/internal/logger"
)

// Ensure TriageService implements the interface.
var _ driving.Triager = (*TriageService)(nil)

// TriageService ranks recent messages by inferred urgency using a keyword
// lexicon. Scoring counts distinct matched phrases, case-insensitively,
// across subject and body.
type TriageService struct {
	index    driven.MessageIndex
	keywords []string
	now      func() time.Time
}

// NewTriageService creates a triage service. An empty keyword list falls
// back to the default lexicon.
func NewTriageService(index driven.MessageIndex, keywords []string) *TriageService {
	if len(keywords) == 0 {
		keywords = domain.DefaultTriageKeywords
	}
	return &TriageService{
		index:    index,
		keywords: keywords,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Tests use it to pin the lookback window.
func (s *TriageService) SetClock(now func() time.Time) {
	s.now = now
}

// Triage scans the last `days` days and returns candidates sorted by
// descending urgency, ties broken by recency. Zero-score messages are
// excluded entirely.
func (s *TriageService) Triage(ctx context.Context, days int, senderFilter string) ([]domain.TriageCandidate, error) {
	logger.Section("Triage")
	logger.Debug("Window: %d days, sender=%q", days, senderFilter)

	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", domain.ErrInvalidInput, days)
	}

	since := s.now().AddDate(0, 0, -days)
	msgs, err := s.index.MessagesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("loading recent messages: %w", err)
	}
	logger.Debug("Window holds %d messages", len(msgs))

	filter := domain.Filter{Sender: senderFilter}
	var candidates []domain.TriageCandidate
	for _, msg := range msgs {
		if !filter.MatchesSender(msg.From) {
			continue
		}
		matched := s.matchKeywords(msg)
		if len(matched) == 0 {
			continue
		}
		candidates = append(candidates, domain.TriageCandidate{
			Message:         msg,
			UrgencyScore:    len(matched),
			MatchedKeywords: matched,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].UrgencyScore != candidates[j].UrgencyScore {
			return candidates[i].UrgencyScore > candidates[j].UrgencyScore
		}
		return candidates[i].Message.Timestamp.After(candidates[j].Message.Timestamp)
	})

	logger.Info("Triage found %d candidates", len(candidates))
	return candidates, nil
}

// matchKeywords returns the distinct lexicon phrases present in the
// message's subject or body.
func (s *TriageService) matchKeywords(msg domain.Message) []string {
	haystack := strings.ToLower(msg.Subject + "\n" + msg.Body)

	var matched []string
	for _, kw := range s.keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}
