// Package cleaner strips markup and email boilerplate from message bodies.
package cleaner

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
)

// Ensure Cleaner implements the interface.
var _ driven.TextCleaner = (*Cleaner)(nil)

// Cleaner produces the plain-text rendition of a raw message body. It is
// stateless and deterministic.
type Cleaner struct {
	stripQuoted    bool
	stripSignature bool
}

// Option configures the cleaner.
type Option func(*Cleaner)

// WithQuotedReplies keeps quoted reply blocks instead of trimming them.
func WithQuotedReplies() Option {
	return func(c *Cleaner) {
		c.stripQuoted = false
	}
}

// WithSignatures keeps signature blocks instead of trimming them.
func WithSignatures() Option {
	return func(c *Cleaner) {
		c.stripSignature = false
	}
}

// New creates a cleaner. By default quoted replies and signatures are
// trimmed along with markup.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{
		stripQuoted:    true,
		stripSignature: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	// styleScriptRe removes style/script elements wholesale; their text
	// content is never message prose.
	styleScriptRe = regexp.MustCompile(`(?is)<(style|script)[^>]*>.*?</(style|script)>`)

	// quotedIntroRe matches the "On <date>, <someone> wrote:" line that
	// introduces a quoted reply.
	quotedIntroRe = regexp.MustCompile(`(?m)^On .{1,120} wrote:\s*$`)
)

// Clean strips markup and boilerplate, returning plain text.
func (c *Cleaner) Clean(raw string) string {
	if raw == "" {
		return ""
	}

	text := styleScriptRe.ReplaceAllString(raw, " ")
	text = stripTags(text)
	text = decodeEntities(text)

	lines := strings.Split(text, "\n")
	var kept []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if c.stripSignature && (trimmed == "--" || trimmed == "-- ") {
			break // Everything after a signature delimiter is signature.
		}
		if c.stripQuoted && quotedIntroRe.MatchString(trimmed) {
			break // Quoted history follows the intro line.
		}
		if c.stripQuoted && strings.HasPrefix(trimmed, ">") {
			continue
		}
		if trimmed == "" {
			continue
		}
		kept = append(kept, trimmed)
	}

	return strings.Join(kept, "\n")
}

// stripTags removes HTML tags for basic text extraction, inserting a newline
// for block-level boundaries so paragraphs survive.
func stripTags(html string) string {
	var result strings.Builder
	result.Grow(len(html))
	inTag := false
	var tag strings.Builder

	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>':
			inTag = false
			if isBlockTag(tag.String()) {
				result.WriteByte('\n')
			} else {
				result.WriteByte(' ')
			}
		case inTag:
			tag.WriteRune(r)
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// isBlockTag reports whether a raw tag body names a block-level element.
func isBlockTag(tag string) bool {
	tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "/"))
	if i := strings.IndexAny(tag, " \t\n"); i >= 0 {
		tag = tag[:i]
	}
	switch tag {
	case "p", "div", "br", "br/", "tr", "li", "h1", "h2", "h3", "h4", "table", "blockquote":
		return true
	}
	return false
}

// entityReplacer covers the entities that actually occur in email bodies.
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}
