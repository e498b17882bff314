package bot

import (
	"net/url"
	"strings"
)

// amazonSearchURL is the search endpoint shopping links point at.
const amazonSearchURL = "https://www.amazon.com/s"

// ProductName extracts the product name from a model reply: the first
// non-empty line, trimmed. Models sometimes append detail lines below the
// name; those never belong in the link.
func ProductName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return ""
}

// isUnknown reports whether the model declined to identify the product.
func isUnknown(name string) bool {
	return strings.EqualFold(name, "unknown")
}

// SearchLink builds an Amazon search URL for the product with the
// affiliate tag attached. Returns "" when the product is unknown or no
// tag is configured, in which case the reply carries no link.
func SearchLink(name, tag string) string {
	if tag == "" || name == "" || isUnknown(name) {
		return ""
	}
	q := url.Values{}
	q.Set("k", name)
	q.Set("tag", tag)
	return amazonSearchURL + "?" + q.Encode()
}
