package render

import "strings"

const (
	h1Open  = "<h1>"
	h1Close = "</h1>"
)

// ContentsTable prepends a table of contents when the rendered HTML contains
// level-1 headings, and returns the HTML unchanged otherwise. Each heading
// gets a list entry linking to an anchor named after the heading text with
// spaces replaced by underscores (case preserved); the matching anchors are
// inserted immediately before each heading, walking the headings in reverse
// document order so earlier insertions do not shift offsets still to be
// processed.
func ContentsTable(html string) string {
	opens := findAll(html, h1Open)
	if len(opens) == 0 {
		return html
	}
	closes := findAll(html, h1Close)
	if len(closes) < len(opens) {
		// Unbalanced markup from a raw-HTML body; leave it alone.
		return html
	}

	type heading struct {
		start int
		text  string
	}
	headings := make([]heading, len(opens))

	var table strings.Builder
	table.WriteString(`<div class="row"><div class="span2"><h3>Contents</h3><ul class='nav nav-tabs nav-stacked'>`)
	for i, open := range opens {
		text := html[open+len(h1Open) : closes[i]]
		headings[i] = heading{start: open, text: text}
		table.WriteString(`<li><a href="#`)
		table.WriteString(anchorName(text))
		table.WriteString(`">`)
		table.WriteString(text)
		table.WriteString(`</a></li>`)
	}
	table.WriteString("</ul><br></div></div>")

	for i := len(headings) - 1; i >= 0; i-- {
		h := headings[i]
		html = html[:h.start] + `<a name="` + anchorName(h.text) + `"></a>` + html[h.start:]
	}
	return table.String() + html
}

func anchorName(text string) string {
	return strings.ReplaceAll(text, " ", "_")
}

func findAll(s, substr string) []int {
	var out []int
	for i := 0; ; {
		j := strings.Index(s[i:], substr)
		if j < 0 {
			return out
		}
		out = append(out, i+j)
		i += j + len(substr)
	}
}
