// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize strips markup from free-text fields (names,
// descriptions, comments) before they are stored. Clients render these
// fields as text, so nothing of the markup is kept.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict     *bluemonday.Policy
	strictOnce sync.Once
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// Text removes all tags from s and returns the remaining text with entities
// decoded and surrounding whitespace trimmed.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(policy().Sanitize(s)))
}
