// Package urlkey canonicalizes user-supplied page paths into lookup keys.
package urlkey

import (
	"regexp"
	"strings"
)

var multiSpaceRe = regexp.MustCompile(`[ ]{2,}`)

// Clean turns an arbitrary string into a canonical page url, usable both as
// a lookup key and as a relative file-path stem. Runs of spaces collapse to
// one, leading/trailing whitespace is trimmed, the result is lowercased with
// spaces replaced by underscores, and Windows-style backslash separators
// (including escaped double backslashes) become forward slashes. Every input
// is valid; the empty string cleans to the empty string.
func Clean(url string) string {
	url = strings.TrimSpace(multiSpaceRe.ReplaceAllString(url, " "))
	url = strings.ReplaceAll(strings.ToLower(url), " ", "_")
	url = strings.ReplaceAll(url, `\\`, "/")
	url = strings.ReplaceAll(url, `\`, "/")
	return url
}
