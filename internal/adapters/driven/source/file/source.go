// Package file provides a message source reading a JSONL corpus from disk.
// Each line is one message object. It supports offline indexing and tests.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.MessageSource = (*Source)(nil)

// maxLineBytes bounds a single JSONL record; bodies larger than this are
// rejected as malformed rather than growing the scanner without limit.
const maxLineBytes = 4 << 20

// Source reads messages from a JSONL file.
type Source struct {
	path string
}

// record is the JSONL line format.
type record struct {
	ID            string    `json:"id"`
	ThreadID      string    `json:"thread_id"`
	Timestamp     time.Time `json:"timestamp"`
	From          string    `json:"from"`
	To            []string  `json:"to"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Labels        []string  `json:"labels"`
	Unread        bool      `json:"unread"`
	Starred       bool      `json:"starred"`
	HasAttachment bool      `json:"has_attachment"`
}

// NewSource creates a file source for the given JSONL path.
func NewSource(path string) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: corpus path is empty", domain.ErrConfiguration)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	return &Source{path: path}, nil
}

// Name identifies the source.
func (s *Source) Name() string {
	return "file:" + s.path
}

// Messages streams all records in file order. Malformed lines go to the
// error channel and do not stop the stream.
func (s *Source) Messages(ctx context.Context) (<-chan domain.Message, <-chan error) {
	msgsCh := make(chan domain.Message)
	errsCh := make(chan error, 1)

	go func() {
		defer close(msgsCh)
		defer close(errsCh)

		f, err := os.Open(s.path)
		if err != nil {
			errsCh <- fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var rec record
			if err := json.Unmarshal(line, &rec); err != nil {
				select {
				case errsCh <- fmt.Errorf("%w: line %d: %w", domain.ErrInvalidInput, lineNo, err):
				case <-ctx.Done():
					return
				}
				continue
			}
			if rec.ID == "" {
				select {
				case errsCh <- fmt.Errorf("%w: line %d: missing id", domain.ErrInvalidInput, lineNo):
				case <-ctx.Done():
					return
				}
				continue
			}

			select {
			case msgsCh <- domain.Message(rec):
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errsCh <- fmt.Errorf("reading corpus: %w", err)
		}
	}()

	return msgsCh, errsCh
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}
