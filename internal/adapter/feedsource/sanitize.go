package feedsource

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// StripTags removes every tag from a short fragment such as an alert snippet
// and collapses whitespace.
func StripTags(fragment string) string {
	return strings.Join(strings.Fields(html.UnescapeString(strictPolicy.Sanitize(fragment))), " ")
}
