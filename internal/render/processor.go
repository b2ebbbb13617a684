// Package render implements the page content pipeline: pre-processing,
// markup rendering, metadata parsing, wiki-link resolution, and the
// generated table of contents.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v2"

	"github.com/starford/ansuz/internal/apperr"
)

// Meta is the ordered page metadata mapping. Insertion order follows the
// order of first appearance in the file.
type Meta = *orderedmap.OrderedMap[string, string]

// NewMeta returns an empty metadata mapping.
func NewMeta() Meta {
	return orderedmap.New[string, string]()
}

// Transform is a text-to-text stage applied before rendering (on markup
// source) or after rendering (on HTML).
type Transform func(string) string

// URLFormatter builds a routable path for a named route and a page url.
// The surrounding web layer supplies it; the pipeline never hard-codes routes.
type URLFormatter func(route, url string) string

// Config holds the explicit pipeline configuration. Transform lists are
// per-Processor state, never package-level defaults.
type Config struct {
	Pre  []Transform
	Post []Transform
	// HighlightStyle is the chroma style for code highlighting ("github"
	// when empty).
	HighlightStyle string
}

// Processor drives the fixed content pipeline:
// pre-process → render → split → parse-meta → post-process → build-toc.
type Processor struct {
	md   goldmark.Markdown
	pre  []Transform
	post []Transform
}

// New creates a Processor with the given configuration. The goldmark engine
// is built per Processor and carries the tables, metadata-header, and code
// highlighting extensions; render state lives in a per-call parser context,
// so a single Processor is safe for concurrent renders.
func New(cfg Config) *Processor {
	style := cfg.HighlightStyle
	if style == "" {
		style = "github"
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			meta.Meta,
			extension.Table,
			highlighting.NewHighlighting(highlighting.WithStyle(style)),
		),
	)
	return &Processor{md: md, pre: cfg.Pre, post: cfg.Post}
}

// Default creates a Processor whose only post-processing transform is the
// wiki-link resolver bound to format.
func Default(format URLFormatter) *Processor {
	return New(Config{Post: []Transform{WikiLinks(format)}})
}

// Process runs the full pipeline over input and returns the final HTML
// (table of contents included), the markdown body without the metadata
// header, and the ordered metadata mapping.
func (p *Processor) Process(input string) (string, string, Meta, error) {
	// Windows-authored files carry CRLF endings; the header split and the
	// meta parser assume LF.
	pre := strings.ReplaceAll(input, "\r\n", "\n")
	for _, t := range p.pre {
		pre = t(pre)
	}

	ctx := parser.NewContext()
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(fenceHeader(pre)), &buf, parser.WithContext(ctx)); err != nil {
		return "", "", nil, fmt.Errorf("%w: %v", apperr.ErrRenderFailure, err)
	}
	rendered := buf.String()

	// The split runs on the pre-processed source, not the rendered HTML.
	metaRaw, body, ok := strings.Cut(pre, "\n\n")
	if !ok {
		return "", "", nil, fmt.Errorf("%w: no blank line between metadata header and body", apperr.ErrMalformedContent)
	}

	m, err := parseMeta(metaRaw, meta.GetItems(ctx))
	if err != nil {
		return "", "", nil, err
	}

	final := rendered
	for _, t := range p.post {
		final = t(final)
	}

	final = ContentsTable(final)
	return final, body, m, nil
}

// fenceHeader wraps the leading metadata block in the delimiters the
// renderer's header extension expects. Content files store bare
// "key: value" lines, so the fence is added only for the conversion.
func fenceHeader(src string) string {
	head, rest, ok := strings.Cut(src, "\n\n")
	if !ok || strings.TrimSpace(head) == "" {
		return src
	}
	return "---\n" + head + "\n---\n\n" + rest
}

// parseMeta parses the raw header block into an ordered mapping with
// lowercased keys, folds the rolling-average rating into the reserved
// total/timesrated/rating keys, and merges any extra fields the renderer's
// header syntax recognized, in document order.
//
// The rating fold mutates only the in-memory mapping; nothing is persisted
// until the page is saved.
func parseMeta(metaRaw string, rendered yaml.MapSlice) (Meta, error) {
	lines := strings.Split(metaRaw, "\n")

	// First pass: collect the rolling-average inputs.
	var total, rating float64
	timesRated := 1.0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: metadata line %q", apperr.ErrMalformedContent, line)
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "total":
			total = parseNumber(value)
		case "timesrated":
			timesRated = parseNumber(value) + 1
		case "rating":
			rating = parseNumber(value)
		}
	}
	newTotal := rating + total
	newRating := newTotal / timesRated

	// Second pass: build the ordered mapping, substituting the fresh
	// rating statistics for the reserved keys that appear in the header.
	m := NewMeta()
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "total":
			value = formatNumber(newTotal)
		case "timesrated":
			value = formatNumber(timesRated)
		case "rating":
			value = formatNumber(newRating)
		}
		m.Set(key, value)
	}

	for _, item := range rendered {
		key, ok := item.Key.(string)
		if !ok {
			continue
		}
		key = strings.ToLower(key)
		if _, exists := m.Get(key); exists {
			continue
		}
		m.Set(key, fmt.Sprintf("%v", item.Value))
	}
	return m, nil
}

func parseNumber(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
