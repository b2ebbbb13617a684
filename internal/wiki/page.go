// Package wiki implements the page representation and the collection-level
// repository over a content root.
package wiki

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/storage"
)

// Page is the in-memory representation of one content file: raw text,
// parsed metadata, rendered markup, and the attached edit history.
type Page struct {
	url     string
	path    string // page file path relative to the content root
	content string
	body    string
	html    string
	meta    render.Meta
	hist    *history.Store
	store   storage.Provider
	proc    *render.Processor
}

// newPage constructs a Page for the given relative path and url. Unless
// bare, the file is loaded and rendered eagerly. The history store is
// created on first touch either way.
func newPage(store storage.Provider, proc *render.Processor, filePath, url string, bare bool) (*Page, error) {
	hist, err := history.LoadOrCreate(store, historyPath(filePath), url)
	if err != nil {
		return nil, err
	}
	p := &Page{
		url:   url,
		path:  filePath,
		meta:  render.NewMeta(),
		hist:  hist,
		store: store,
		proc:  proc,
	}
	if bare {
		return p, nil
	}
	if err := p.Load(); err != nil {
		return nil, err
	}
	if err := p.Render(); err != nil {
		return nil, err
	}
	return p, nil
}

// historyPath maps a page file path to its history file: the filename
// segment moves into a history/ sibling directory with a .json extension.
func historyPath(pagePath string) string {
	dir := path.Dir(pagePath)
	name := strings.TrimSuffix(path.Base(pagePath), storage.PageExt)
	if dir == "." {
		return "history/" + name + ".json"
	}
	return dir + "/history/" + name + ".json"
}

// Load reads the raw file content from disk.
func (p *Page) Load() error {
	data, err := p.store.Read(p.path)
	if err != nil {
		return err
	}
	p.content = string(data)
	return nil
}

// Render runs the content pipeline and refreshes html, body, and metadata.
func (p *Page) Render() error {
	html, body, meta, err := p.proc.Process(p.content)
	if err != nil {
		return fmt.Errorf("page %s: %w", p.url, err)
	}
	p.html = html
	p.body = body
	p.meta = meta
	return nil
}

// Save writes the metadata header and body back to disk, appends a history
// entry attributed to user, then reloads and re-renders so derived state
// reflects what was persisted.
func (p *Page) Save(user string) error {
	return p.save(user, true)
}

// SaveKeepState is Save without the reload+re-render refresh.
func (p *Page) SaveKeepState(user string) error {
	return p.save(user, false)
}

func (p *Page) save(user string, reload bool) error {
	body := strings.ReplaceAll(p.body, "\r\n", "\n")

	var b strings.Builder
	for pair := p.meta.Oldest(); pair != nil; pair = pair.Next() {
		b.WriteString(pair.Key)
		b.WriteString(": ")
		b.WriteString(pair.Value)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(body)

	if err := p.store.Write(p.path, []byte(b.String())); err != nil {
		return err
	}
	if err := p.hist.Append(user, body); err != nil {
		return err
	}
	if !reload {
		return nil
	}
	if err := p.Load(); err != nil {
		return err
	}
	return p.Render()
}

// SubmitRating records a single new rating and saves the page; the next
// render folds it into the rolling average kept in the reserved metadata
// keys. This is the supported way to rate a page.
func (p *Page) SubmitRating(user string, rating float64) error {
	p.Set("rating", strconv.FormatFloat(rating, 'g', -1, 64))
	return p.Save(user)
}

// URL returns the canonical page url.
func (p *Page) URL() string { return p.url }

// Path returns the page file path relative to the content root.
func (p *Page) Path() string { return p.path }

// Content returns the raw file content as last loaded.
func (p *Page) Content() string { return p.content }

// HTML returns the fully rendered markup, link-resolved, with the table of
// contents prepended.
func (p *Page) HTML() string { return p.html }

// Body returns the markdown source with the metadata header stripped.
func (p *Page) Body() string { return p.body }

// SetBody replaces the markdown body for the next Save.
func (p *Page) SetBody(body string) { p.body = body }

// Meta returns the ordered metadata mapping.
func (p *Page) Meta() render.Meta { return p.meta }

// Get returns the metadata value stored under key.
func (p *Page) Get(key string) (string, bool) {
	return p.meta.Get(key)
}

// Set stores a metadata value, keeping first-appearance order for new keys.
func (p *Page) Set(key, value string) {
	p.meta.Set(strings.ToLower(key), value)
}

// Title returns the title metadata, falling back to the url.
func (p *Page) Title() string {
	if t, ok := p.meta.Get("title"); ok && t != "" {
		return t
	}
	return p.url
}

// SetTitle sets the title metadata.
func (p *Page) SetTitle(title string) { p.Set("title", title) }

// Tags returns the comma-separated tag string, empty when absent.
func (p *Page) Tags() string {
	t, _ := p.meta.Get("tags")
	return t
}

// SetTags sets the comma-separated tag string.
func (p *Page) SetTags(tags string) { p.Set("tags", tags) }

// Rating returns the current average rating, 0 when absent or unparseable.
func (p *Page) Rating() float64 {
	v, _ := p.meta.Get("rating")
	n, _ := strconv.ParseFloat(v, 64)
	return n
}

// Flag returns the numeric flag metadata, 0 when absent.
func (p *Page) Flag() int {
	v, _ := p.meta.Get("flag")
	n, _ := strconv.Atoi(v)
	return n
}

// History returns the page's edit log.
func (p *Page) History() *history.Store { return p.hist }

// Attr returns a named page attribute as a string, for grouping and search.
// Unrecognized names fall through to the metadata mapping.
func (p *Page) Attr(name string) string {
	switch name {
	case "title":
		return p.Title()
	case "tags":
		return p.Tags()
	case "body":
		return p.body
	case "html":
		return p.html
	case "url":
		return p.url
	default:
		v, _ := p.meta.Get(name)
		return v
	}
}
