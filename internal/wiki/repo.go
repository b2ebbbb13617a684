package wiki

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/urlkey"
)

// DefaultSearchAttrs are the page attributes Search matches against when
// the caller passes none.
var DefaultSearchAttrs = []string{"title", "tags", "body"}

// Repository is the collection-level facade over a content root. It holds
// no cached index; every collection query re-walks the filesystem and
// reconstructs Page objects.
type Repository struct {
	store  storage.Provider
	proc   *render.Processor
	logger *slog.Logger
}

// NewRepository creates a Repository over store, rendering pages with proc.
func NewRepository(store storage.Provider, proc *render.Processor, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: store, proc: proc, logger: logger}
}

// Root returns the absolute content root directory.
func (r *Repository) Root() string {
	return r.store.Root()
}

// Path returns the absolute file path backing url.
func (r *Repository) Path(url string) string {
	return filepath.Join(r.store.Root(), filepath.FromSlash(url)+storage.PageExt)
}

// filePath maps a url to its page file path relative to the content root.
func (r *Repository) filePath(url string) string {
	return url + storage.PageExt
}

// Exists reports whether a page file backs the given url.
func (r *Repository) Exists(url string) bool {
	return r.store.Exists(r.filePath(url))
}

// Get returns the fully loaded and rendered page at url, or nil when no
// page exists there.
func (r *Repository) Get(url string) (*Page, error) {
	if !r.Exists(url) {
		return nil, nil
	}
	return newPage(r.store, r.proc, r.filePath(url), url, false)
}

// MustGet is Get with ErrNotFound instead of the nil sentinel, for callers
// that map absence to a protocol-level failure.
func (r *Repository) MustGet(url string) (*Page, error) {
	p, err := r.Get(url)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("page %s: %w", url, apperr.ErrNotFound)
	}
	return p, nil
}

// GetBare returns an unloaded page for a url with no backing file yet, for
// create flows. A url that already has a page yields ErrAlreadyExists.
func (r *Repository) GetBare(url string) (*Page, error) {
	if r.Exists(url) {
		return nil, fmt.Errorf("page %s: %w", url, apperr.ErrAlreadyExists)
	}
	return newPage(r.store, r.proc, r.filePath(url), url, true)
}

// Move renames the page file backing url to newURL, creating intermediate
// directories as needed. The target is validated against the content root
// before anything is touched; an escaping target fails with ErrPathEscape
// and no filesystem mutation. The edit log moves along with the page.
func (r *Repository) Move(url, newURL string) error {
	if !r.Exists(url) {
		return fmt.Errorf("page %s: %w", url, apperr.ErrNotFound)
	}
	if err := r.store.Move(r.filePath(url), r.filePath(newURL)); err != nil {
		return err
	}
	oldHist := historyPath(r.filePath(url))
	if r.store.Exists(oldHist) {
		if err := r.store.Move(oldHist, historyPath(r.filePath(newURL))); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes both the page file and its history file. It returns false
// when the url had no page. The history file goes first, so a failed page
// removal can never leave an orphaned history behind.
func (r *Repository) Delete(url string) (bool, error) {
	if !r.Exists(url) {
		return false, nil
	}
	hist := historyPath(r.filePath(url))
	if r.store.Exists(hist) {
		if err := r.store.Delete(hist); err != nil {
			return false, err
		}
	}
	if err := r.store.Delete(r.filePath(url)); err != nil {
		return false, err
	}
	return true, nil
}

// Index walks the entire content root, loads and renders every page file,
// and returns the pages sorted case-insensitively by title. Pages that fail
// to load or render are logged and skipped rather than failing the walk.
func (r *Repository) Index() ([]*Page, error) {
	infos, err := r.store.List("")
	if err != nil {
		return nil, err
	}
	pages := make([]*Page, 0, len(infos))
	for _, fi := range infos {
		url := urlkey.Clean(strings.TrimSuffix(fi.Path, storage.PageExt))
		page, err := newPage(r.store, r.proc, fi.Path, url, false)
		if err != nil {
			r.logger.Warn("index: skipping page",
				slog.String("path", fi.Path),
				slog.String("error", err.Error()))
			continue
		}
		pages = append(pages, page)
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return strings.ToLower(pages[i].Title()) < strings.ToLower(pages[j].Title())
	})
	return pages, nil
}

// IndexBy groups the index by the value of the given page attribute.
func (r *Repository) IndexBy(key string) (map[string][]*Page, error) {
	pages, err := r.Index()
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]*Page)
	for _, p := range pages {
		v := p.Attr(key)
		grouped[v] = append(grouped[v], p)
	}
	return grouped, nil
}

// Tags aggregates the comma-separated tag strings of all pages into a
// mapping from tag to the pages carrying it. Empty tags are discarded.
func (r *Repository) Tags() (map[string][]*Page, error) {
	pages, err := r.Index()
	if err != nil {
		return nil, err
	}
	tags := make(map[string][]*Page)
	for _, p := range pages {
		for _, tag := range strings.Split(p.Tags(), ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			tags[tag] = append(tags[tag], p)
		}
	}
	return tags, nil
}

// PagesByTag returns the pages whose tag string contains tag as a
// substring, sorted case-insensitively by title. Substring matching is the
// documented looseness of this operation.
func (r *Repository) PagesByTag(tag string) ([]*Page, error) {
	pages, err := r.Index()
	if err != nil {
		return nil, err
	}
	var tagged []*Page
	for _, p := range pages {
		if strings.Contains(p.Tags(), tag) {
			tagged = append(tagged, p)
		}
	}
	return tagged, nil
}

// Search compiles term as a pattern (case-insensitive unless ignoreCase is
// false) and returns every page where it matches one of the given
// attributes, short-circuiting per page on the first hit. Nil attrs means
// DefaultSearchAttrs.
func (r *Repository) Search(term string, ignoreCase bool, attrs []string) ([]*Page, error) {
	if len(attrs) == 0 {
		attrs = DefaultSearchAttrs
	}
	expr := term
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("search: compile %q: %w", term, err)
	}

	pages, err := r.Index()
	if err != nil {
		return nil, err
	}
	var matched []*Page
	for _, p := range pages {
		for _, attr := range attrs {
			if re.MatchString(p.Attr(attr)) {
				matched = append(matched, p)
				break
			}
		}
	}
	return matched, nil
}
