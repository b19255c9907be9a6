// Package gmail provides a message source backed by the Gmail API.
package gmail

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.MessageSource = (*Source)(nil)

// gmailUser addresses the authenticated account in API calls.
const gmailUser = "me"

// Source streams messages from a Gmail account.
type Source struct {
	service *gmailapi.Service
	cfg     Config
	limiter *rateLimiter
}

// NewSource creates a Gmail source for the authenticated account.
func NewSource(ctx context.Context, ts oauth2.TokenSource, cfg Config) (*Source, error) {
	cfg = cfg.withDefaults()

	service, err := gmailapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("%w: creating gmail service: %w", domain.ErrSourceUnavailable, err)
	}

	return &Source{
		service: service,
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RequestsPerSecond, cfg.BurstSize),
	}, nil
}

// Name identifies the source.
func (s *Source) Name() string {
	return "gmail"
}

// Messages streams all matching messages. Per-message fetch failures go to
// the error channel; the list stopping entirely is also reported there.
// Both channels close when the stream ends.
func (s *Source) Messages(ctx context.Context) (<-chan domain.Message, <-chan error) {
	msgsCh := make(chan domain.Message)
	errsCh := make(chan error, 1)

	go func() {
		defer close(msgsCh)
		defer close(errsCh)

		pageToken := ""
		for {
			if err := s.limiter.Wait(ctx); err != nil {
				errsCh <- err
				return
			}

			call := s.service.Users.Messages.List(gmailUser).
				MaxResults(s.cfg.PageSize).
				IncludeSpamTrash(s.cfg.IncludeSpamTrash).
				Context(ctx)
			if len(s.cfg.LabelIDs) > 0 {
				call = call.LabelIds(s.cfg.LabelIDs...)
			}
			if s.cfg.Query != "" {
				call = call.Q(s.cfg.Query)
			}
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			page, err := call.Do()
			if err != nil {
				s.recordAPIError(err)
				errsCh <- fmt.Errorf("%w: listing messages: %w", domain.ErrSourceUnavailable, err)
				return
			}

			for _, ref := range page.Messages {
				msg, err := s.fetch(ctx, ref.Id)
				if err != nil {
					select {
					case errsCh <- err:
					case <-ctx.Done():
						return
					}
					continue
				}
				select {
				case msgsCh <- msg:
				case <-ctx.Done():
					return
				}
			}

			pageToken = page.NextPageToken
			if pageToken == "" {
				return
			}
		}
	}()

	return msgsCh, errsCh
}

// fetch retrieves one message in raw format and parses it.
func (s *Source) fetch(ctx context.Context, id string) (domain.Message, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return domain.Message{}, err
	}

	msg, err := s.service.Users.Messages.Get(gmailUser, id).
		Format("raw").
		Context(ctx).
		Do()
	if err != nil {
		s.recordAPIError(err)
		return domain.Message{}, fmt.Errorf("fetching message %s: %w", id, err)
	}

	return parseMessage(msg)
}

// recordAPIError feeds 429 responses into the limiter's backoff.
func (s *Source) recordAPIError(err error) {
	if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == http.StatusTooManyRequests {
		s.limiter.RecordRateLimitError(0)
	}
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}
