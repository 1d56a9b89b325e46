// Package text prepares raw element content for the engine: de-indentation,
// entity decoding, and line-break canonicalization.
package text

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var brTag = regexp.MustCompile(`(?i)<br\s*/?>`)

// Clean normalizes raw diagram source extracted from a document element:
// common leading indentation is stripped, HTML entities are decoded, and any
// spelling of a line-break tag is canonicalized to "<br/>".
func Clean(raw string) string {
	s := Dedent(raw)
	s = html.UnescapeString(s)
	s = brTag.ReplaceAllString(s, "<br/>")
	return strings.TrimSpace(s)
}

// Dedent removes the longest common leading whitespace prefix shared by all
// non-blank lines.
func Dedent(s string) string {
	lines := strings.Split(s, "\n")

	margin := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin <= 0 {
		return s
	}

	for i, line := range lines {
		if len(line) >= margin && strings.TrimLeft(line[:margin], " \t") == "" {
			lines[i] = line[margin:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// Sanitizer strips markup from diagram text under the strict security level.
// Only the canonical line-break tag survives.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the strict policy.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("br")
	return &Sanitizer{policy: p}
}

// Sanitize returns text with everything the policy disallows removed.
// The policy entity-escapes surviving text, so the result is unescaped
// again: diagram source like "A --> B" must keep its literal characters.
func (s *Sanitizer) Sanitize(text string) string {
	return html.UnescapeString(s.policy.Sanitize(text))
}
