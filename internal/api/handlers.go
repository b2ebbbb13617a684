package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/urlkey"
	"github.com/starford/ansuz/internal/wiki"
)

// Handler holds API route handlers.
type Handler struct {
	repo *wiki.Repository
}

// NewHandler creates a new Handler.
func NewHandler(repo *wiki.Repository) *Handler {
	return &Handler{repo: repo}
}

// pageURL extracts the page URL from the request path (everything after the
// route prefix) and normalizes it. Supports encoded slashes from OpenAPI
// clients (e.g. guides%2Fhello).
func pageURL(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return urlkey.Clean(raw)
}

// editor returns the username a change should be attributed to.
func editor(r *http.Request) string {
	if user := strings.TrimSpace(r.Header.Get("X-Wiki-User")); user != "" {
		return user
	}
	return "anonymous"
}

// ListPages handles GET /api/pages.
//
//	@Summary		List all pages sorted by title
//	@Tags			pages
//	@Produce		json
//	@Success		200	{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.repo.Index()
	if err != nil {
		slog.Error("list pages failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PageListResponse{
		Pages: pageSummaries(pages),
		Total: len(pages),
	})
}

// GetPage handles GET /api/pages/*.
//
//	@Summary		Get a single rendered page by URL
//	@Tags			pages
//	@Produce		json
//	@Param			url	path		string	true	"Page URL"
//	@Success		200	{object}	PageDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{url} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	u := pageURL(r)
	if u == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	page, err := h.repo.Get(u)
	if err != nil {
		if errors.Is(err, apperr.ErrMalformedContent) {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("malformed page content"))
		} else {
			slog.Error("get page failed", slog.String("url", u), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if page == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	etag := `"` + checksum.Sum([]byte(page.Content())) + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	writeJSON(w, http.StatusOK, pageDetail(page))
}

// CreatePage handles POST /api/pages.
//
//	@Summary		Create a new page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePageRequest	true	"Page to create"
//	@Success		201		{object}	PageDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages [post]
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	u := urlkey.Clean(req.URL)

	page, err := h.repo.GetBare(u)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("page already exists"))
		case errors.Is(err, apperr.ErrPathEscape):
			writeJSON(w, http.StatusBadRequest, errorBody("url escapes the content root"))
		default:
			slog.Error("create page failed", slog.String("url", u), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	title := req.Title
	if title == "" {
		title = u
	}
	page.SetTitle(title)
	if req.Tags != "" {
		page.SetTags(req.Tags)
	}
	page.SetBody(req.Body)
	if err := page.Save(editor(r)); err != nil {
		slog.Error("save page failed", slog.String("url", u), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, pageDetail(page))
}

// UpdatePage handles PUT /api/pages/*.
//
//	@Summary		Update an existing page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			url			path		string				true	"Page URL"
//	@Param			X-Wiki-User	header		string				false	"Username recorded in the edit history"
//	@Param			body		body		UpdatePageRequest	true	"Updated content"
//	@Success		200			{object}	PageDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{url} [put]
func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	u := pageURL(r)
	if u == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	var req UpdatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	page, err := h.repo.MustGet(u)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrMalformedContent):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("malformed page content"))
		default:
			slog.Error("update page failed", slog.String("url", u), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	if req.Title != "" {
		page.SetTitle(req.Title)
	}
	if req.Tags != "" {
		page.SetTags(req.Tags)
	}
	page.SetBody(req.Body)
	if err := page.Save(editor(r)); err != nil {
		slog.Error("save page failed", slog.String("url", u), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, pageDetail(page))
}

// DeletePage handles DELETE /api/pages/*.
//
//	@Summary		Delete a page and its edit history
//	@Tags			pages
//	@Param			url	path	string	true	"Page URL"
//	@Success		204	"Page deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{url} [delete]
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	u := pageURL(r)
	if u == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	removed, err := h.repo.Delete(u)
	if err != nil {
		slog.Error("delete page failed", slog.String("url", u), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MovePage handles POST /api/move.
//
//	@Summary		Move a page to a new URL
//	@Tags			pages
//	@Accept			json
//	@Param			body	body	MovePageRequest	true	"Source and destination URLs"
//	@Success		204		"Page moved"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/move [post]
func (h *Handler) MovePage(w http.ResponseWriter, r *http.Request) {
	var req MovePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.URL == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url and to are required"))
		return
	}
	err := h.repo.Move(urlkey.Clean(req.URL), urlkey.Clean(req.To))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrPathEscape):
			writeJSON(w, http.StatusBadRequest, errorBody("url escapes the content root"))
		default:
			slog.Error("move page failed", slog.String("url", req.URL), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RatePage handles POST /api/rate.
//
//	@Summary		Submit a rating for a page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RatePageRequest	true	"Page URL and rating"
//	@Success		200		{object}	PageDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rate [post]
func (h *Handler) RatePage(w http.ResponseWriter, r *http.Request) {
	var req RatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	u := urlkey.Clean(req.URL)
	page, err := h.repo.MustGet(u)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrMalformedContent):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("malformed page content"))
		default:
			slog.Error("rate page failed", slog.String("url", u), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if err := page.SubmitRating(editor(r), req.Rating); err != nil {
		slog.Error("rate page failed", slog.String("url", u), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, pageDetail(page))
}

// History handles GET /api/history/*.
//
//	@Summary		Get a page's edit history, newest first
//	@Tags			history
//	@Produce		json
//	@Param			url	path		string	true	"Page URL"
//	@Success		200	{object}	HistoryResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/{url} [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	u := pageURL(r)
	if u == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	page, err := h.repo.MustGet(u)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrMalformedContent):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("malformed page content"))
		default:
			slog.Error("page history failed", slog.String("url", u), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		URL:     u,
		Entries: historyEntries(page.History()),
	})
}

// Tags handles GET /api/tags.
//
//	@Summary		Map every tag to the pages carrying it
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	map[string][]PageSummary
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	byTag, err := h.repo.Tags()
	if err != nil {
		slog.Error("tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out := make(map[string][]PageSummary, len(byTag))
	for tag, pages := range byTag {
		out[tag] = pageSummaries(pages)
	}
	writeJSON(w, http.StatusOK, out)
}

// PagesByTag handles GET /api/tags/{tag}.
//
//	@Summary		List pages whose tags contain the given tag
//	@Tags			tags
//	@Produce		json
//	@Param			tag	path		string	true	"Tag"
//	@Success		200	{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/tags/{tag} [get]
func (h *Handler) PagesByTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if decoded, err := url.PathUnescape(tag); err == nil {
		tag = decoded
	}
	if tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("tag is required"))
		return
	}
	pages, err := h.repo.PagesByTag(tag)
	if err != nil {
		slog.Error("pages by tag failed", slog.String("tag", tag), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PageListResponse{
		Pages: pageSummaries(pages),
		Total: len(pages),
	})
}

// Search handles GET /api/search.
//
//	@Summary		Pattern search across page attributes
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	true	"Search pattern"
//	@Param			match_case	query		bool	false	"Case-sensitive matching"
//	@Param			attrs		query		string	false	"Comma-separated attributes (default title,tags,body)"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	ignoreCase := r.URL.Query().Get("match_case") != "true"

	var attrs []string
	if raw := r.URL.Query().Get("attrs"); raw != "" {
		for _, attr := range strings.Split(raw, ",") {
			if attr = strings.TrimSpace(attr); attr != "" {
				attrs = append(attrs, attr)
			}
		}
	}

	results, err := h.repo.Search(q, ignoreCase, attrs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid search pattern"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: pageSummaries(results)})
}
