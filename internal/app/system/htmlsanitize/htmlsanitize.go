// Package htmlsanitize strips markup from profile fields supplied by the
// identity provider.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every element and attribute. Script and style bodies are
// dropped along with their tags.
var strict = bluemonday.StrictPolicy()

// maxPasses bounds how many layers of entity encoding are peeled off.
const maxPasses = 4

// PlainText returns s with all HTML removed and surrounding whitespace
// trimmed. Entities are decoded only while decoding exposes no further
// markup: each pass sanitizes then decodes, and the result is accepted once a
// pass leaves it unchanged. Input that is still changing after maxPasses is
// returned in its sanitized, escaped form.
func PlainText(s string) string {
	out := strings.TrimSpace(s)
	for i := 0; i < maxPasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(strict.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}
	return strings.TrimSpace(strict.Sanitize(out))
}
