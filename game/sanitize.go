package game

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// SanitizeContent strips any markup from a player message and trims
// whitespace. Entities escaped by the policy are decoded again so "&" stays
// one character.
func SanitizeContent(input string) string {
	cleaned := html.UnescapeString(policy.Sanitize(input))
	return strings.TrimSpace(cleaned)
}
