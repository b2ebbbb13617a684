// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/urlkey"
	"github.com/starford/ansuz/internal/wiki"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp  *server.MCPServer
	repo *wiki.Repository
}

// New creates a new MCP server with all Ansuz tools registered.
func New(repo *wiki.Repository) *Server {
	s := &Server{repo: repo}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Search page titles, tags and bodies with a regular expression."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search pattern (case-insensitive)")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the raw content of a page, metadata header included."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Page URL (e.g. guides/setup)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("save_page",
		mcp.WithDescription("Create a page or overwrite an existing one. "+
			"Body MUST follow the canonical page format (key: value header with title, "+
			"optional tags, Markdown body with [[wikilinks]]). Read the contract first via "+
			"the get_page_contract tool or the ansuz://page-format resource."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Page URL (lowercase, underscores, no extension)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Page title")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Markdown body (no metadata header)")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags")),
		mcp.WithString("user", mcp.Description("Username recorded in the edit history")),
	), s.savePage)

	s.mcp.AddTool(mcp.NewTool("get_page_contract",
		mcp.WithDescription("Returns the canonical Ansuz page format contract. "+
			"Call this before creating or updating pages to ensure correct structure."),
	), s.getPageContract)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all page URLs with their titles and tags."),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("page_history",
		mcp.WithDescription("Read a page's edit history, newest first."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Page URL")),
	), s.pageHistory)

	// Resource: page format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://page-format", "Page Format Contract",
			mcp.WithResourceDescription("Canonical page format that all pages must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPageFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pages, err := s.repo.Search(query, true, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type hit struct {
		URL   string `json:"url"`
		Title string `json:"title"`
		Tags  string `json:"tags,omitempty"`
	}
	hits := make([]hit, 0, len(pages))
	for _, p := range pages {
		hits = append(hits, hit{URL: p.URL(), Title: p.Title(), Tags: p.Tags()})
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	url = urlkey.Clean(url)
	page, err := s.repo.Get(url)
	if err != nil || page == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", url)), nil
	}
	return mcp.NewToolResultText(page.Content()), nil
}

func (s *Server) savePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	url = urlkey.Clean(url)

	page, err := s.repo.Get(url)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	created := page == nil
	if created {
		if page, err = s.repo.GetBare(url); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	page.SetTitle(title)
	if tags := req.GetString("tags", ""); tags != "" {
		page.SetTags(tags)
	}
	page.SetBody(body)

	user := req.GetString("user", "mcp")
	if err := page.Save(user); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if created {
		return mcp.NewToolResultText(fmt.Sprintf("created: %s", url)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", url)), nil
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.repo.Index()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, p := range pages {
		line := p.URL() + "\t" + p.Title()
		if tags := p.Tags(); tags != "" {
			line += "\t[" + tags + "]"
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) pageHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	url = urlkey.Clean(url)
	page, err := s.repo.Get(url)
	if err != nil || page == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", url)), nil
	}

	hist := page.History()
	type edit struct {
		Timestamp string `json:"timestamp"`
		User      string `json:"user"`
		Date      string `json:"date"`
	}
	var edits []edit
	for _, key := range hist.OrderedKeys() {
		if e, ok := hist.Entry(key); ok {
			edits = append(edits, edit{Timestamp: key, User: e.User, Date: e.FormattedDate})
		}
	}
	out, _ := json.MarshalIndent(edits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getPageContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PageFormatContract), nil
}

func (s *Server) readPageFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://page-format",
			MIMEType: "text/markdown",
			Text:     PageFormatContract,
		},
	}, nil
}
