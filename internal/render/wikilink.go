package render

import (
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/urlkey"
)

var (
	wikiLinkRe = regexp.MustCompile(`\[\[\s*([^<|\]][^|\]]*?)\s*(?:\|\s*([^\]]+?)\s*)?\]\]`)
	codeSpanRe = regexp.MustCompile(`(?s)<code[^>]*>.*?</code>`)
)

// WikiLinks returns a post-processing transform that rewrites [[Target]] and
// [[Target|Display]] references in rendered HTML into anchors. Occurrences
// inside <code> spans are left alone. Replacement is applied once per match,
// left to right, non-overlapping; the href comes from format for the
// "display" route of the cleaned target.
func WikiLinks(format URLFormatter) Transform {
	return func(html string) string {
		if format == nil {
			return html
		}
		matches := wikiLinkRe.FindAllStringSubmatchIndex(html, -1)
		if len(matches) == 0 {
			return html
		}
		code := codeSpanRe.FindAllStringIndex(html, -1)

		var b strings.Builder
		last := 0
		for _, m := range matches {
			if insideAny(code, m[0]) {
				continue
			}
			target := html[m[2]:m[3]]
			display := target
			if m[4] >= 0 {
				display = html[m[4]:m[5]]
			}
			b.WriteString(html[last:m[0]])
			b.WriteString("<a href='")
			b.WriteString(format("display", urlkey.Clean(target)))
			b.WriteString("'>")
			b.WriteString(display)
			b.WriteString("</a>")
			last = m[1]
		}
		b.WriteString(html[last:])
		return b.String()
	}
}

func insideAny(ranges [][]int, pos int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}
