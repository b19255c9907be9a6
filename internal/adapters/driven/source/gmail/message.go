package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

// parseMessage converts a Gmail API message in raw format to a domain
// message. msg.Raw carries the base64url-encoded RFC 2822 source.
func parseMessage(msg *gmailapi.Message) (domain.Message, error) {
	rawBytes, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: decoding raw message %s: %w", domain.ErrInvalidInput, msg.Id, err)
	}

	parsed, err := mail.ReadMessage(bytes.NewReader(rawBytes))
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: parsing message %s: %w", domain.ErrInvalidInput, msg.Id, err)
	}

	body, err := extractBody(parsed)
	if err != nil {
		return domain.Message{}, fmt.Errorf("extracting body of %s: %w", msg.Id, err)
	}

	out := domain.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     decodeHeader(parsed.Header.Get("From")),
		Subject:  decodeHeader(parsed.Header.Get("Subject")),
		Body:     body,
		Labels:   append([]string(nil), msg.LabelIds...),
	}

	if to := decodeHeader(parsed.Header.Get("To")); to != "" {
		out.To = splitAddressList(to)
	}

	out.Timestamp = messageTime(msg, parsed)
	out.Unread = hasLabel(msg.LabelIds, "UNREAD")
	out.Starred = hasLabel(msg.LabelIds, "STARRED")
	out.HasAttachment = strings.Contains(parsed.Header.Get("Content-Type"), "multipart/mixed")

	return out, nil
}

// messageTime prefers the Gmail internal date, falling back to the Date header.
func messageTime(msg *gmailapi.Message, parsed *mail.Message) time.Time {
	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate).UTC()
	}
	if t, err := mail.ParseDate(parsed.Header.Get("Date")); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// splitAddressList parses a To header into individual addresses, falling
// back to a comma split when the header is not strictly RFC 5322.
func splitAddressList(header string) []string {
	if addrs, err := mail.ParseAddressList(header); err == nil {
		out := make([]string, len(addrs))
		for i, a := range addrs {
			out[i] = a.Address
		}
		return out
	}

	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header // Return original if decoding fails
	}
	return decoded
}

// extractBody extracts the text content from an email message.
func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Unparseable content type reads as plain text.
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", domain.ErrInvalidInput
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(msg.Body, params["boundary"])
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", domain.ErrInvalidInput
	}
	return string(body), nil
}

// extractMultipartBody extracts text from multipart messages, preferring
// plain text parts over HTML.
func extractMultipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts []string
	var htmlParts []string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		partContentType := part.Header.Get("Content-Type")
		mediaType, params, parseErr := mime.ParseMediaType(partContentType)
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		content, readErr := io.ReadAll(part)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, string(content))
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, nestedErr := extractMultipartBody(bytes.NewReader(content), params["boundary"])
			if nestedErr == nil && nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	if len(htmlParts) > 0 {
		return strings.Join(htmlParts, "\n"), nil
	}

	return "", nil
}
