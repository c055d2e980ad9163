package sanitize

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// htmlPolicy strips any HTML markup an agent might embed in a display name
// or topic title. Those strings end up rendered by operator dashboards and
// room listings, so they leave this package with no tags left to
// interpret. Chat message bodies are deliberately not run through it: the
// canonical payload must reach receivers byte-for-byte.
var htmlPolicy = bluemonday.StrictPolicy()

// Title sanitizes a display name or topic title by removing control
// characters and HTML markup, and limiting the length.
func Title(s string, maxLen int) string {
	s = htmlPolicy.Sanitize(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if b.Len() >= maxLen {
			break
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Content sanitizes chat message text: control characters are stripped and
// the length is clamped, but newlines survive and the text is otherwise
// carried verbatim — receivers must see exactly the content the sender
// wrote, including "&", "<" and ">", so no HTML stripping or escaping
// happens here. Escaping is the job of whatever eventually renders the
// text as HTML, not of ingest.
func Content(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			continue
		}
		if b.Len() >= maxLen {
			break
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
