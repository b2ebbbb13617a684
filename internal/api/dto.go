package api

import (
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/wiki"
)

// CreatePageRequest is the request body for creating a page.
type CreatePageRequest struct {
	URL   string `json:"url" example:"guides/hello" validate:"required"`
	Title string `json:"title" example:"Hello"`
	Tags  string `json:"tags" example:"intro, guide"`
	Body  string `json:"body" example:"# Hello\nWorld"`
}

// UpdatePageRequest is the request body for updating a page.
type UpdatePageRequest struct {
	Title string `json:"title" example:"Hello"`
	Tags  string `json:"tags" example:"intro, guide"`
	Body  string `json:"body" example:"# Updated\nContent" validate:"required"`
}

// MovePageRequest asks to relocate a page (and its edit history) to a new URL.
type MovePageRequest struct {
	URL string `json:"url" example:"guides/hello" validate:"required"`
	To  string `json:"to" example:"archive/hello" validate:"required"`
}

// RatePageRequest submits a rating for a page.
type RatePageRequest struct {
	URL    string  `json:"url" example:"guides/hello" validate:"required"`
	Rating float64 `json:"rating" example:"4" validate:"required"`
}

// PageSummary is a lightweight item in list, tag and search responses.
type PageSummary struct {
	URL    string  `json:"url" example:"guides/hello"`
	Title  string  `json:"title" example:"Hello"`
	Tags   string  `json:"tags,omitempty" example:"intro, guide"`
	Rating float64 `json:"rating,omitempty" example:"4"`
}

// PageDetail is the full page response type. Meta preserves the on-disk
// header order when serialized.
type PageDetail struct {
	URL    string      `json:"url" example:"guides/hello"`
	Title  string      `json:"title" example:"Hello"`
	Tags   string      `json:"tags,omitempty" example:"intro, guide"`
	Rating float64     `json:"rating,omitempty" example:"4"`
	Flag   int         `json:"flag,omitempty" example:"1"`
	Body   string      `json:"body" example:"# Hello\nWorld"`
	HTML   string      `json:"html" example:"<h1>Hello</h1>"`
	Meta   render.Meta `json:"meta"`
}

// PageListResponse wraps the repository index.
type PageListResponse struct {
	Pages []PageSummary `json:"pages" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []PageSummary `json:"results" validate:"required"`
}

// HistoryEntry is one recorded edit of a page, newest first in responses.
type HistoryEntry struct {
	Timestamp string `json:"timestamp" example:"1735689600.000000000"`
	User      string `json:"user" example:"alice"`
	Date      string `json:"date" example:"Jan 01, 2025 at 09:00:00 AM"`
	Version   string `json:"version" example:"# Hello\nWorld"`
}

// HistoryResponse wraps a page's edit history.
type HistoryResponse struct {
	URL     string         `json:"url" example:"guides/hello"`
	Entries []HistoryEntry `json:"entries" validate:"required"`
}

func pageSummary(p *wiki.Page) PageSummary {
	return PageSummary{
		URL:    p.URL(),
		Title:  p.Title(),
		Tags:   p.Tags(),
		Rating: p.Rating(),
	}
}

func pageSummaries(pages []*wiki.Page) []PageSummary {
	items := make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		items = append(items, pageSummary(p))
	}
	return items
}

func pageDetail(p *wiki.Page) PageDetail {
	return PageDetail{
		URL:    p.URL(),
		Title:  p.Title(),
		Tags:   p.Tags(),
		Rating: p.Rating(),
		Flag:   p.Flag(),
		Body:   p.Body(),
		HTML:   p.HTML(),
		Meta:   p.Meta(),
	}
}

func historyEntries(hist *history.Store) []HistoryEntry {
	keys := hist.OrderedKeys()
	entries := make([]HistoryEntry, 0, len(keys))
	for _, key := range keys {
		e, ok := hist.Entry(key)
		if !ok {
			continue
		}
		entries = append(entries, HistoryEntry{
			Timestamp: key,
			User:      e.User,
			Date:      e.FormattedDate,
			Version:   e.Version,
		})
	}
	return entries
}
