// Package mcpserver exposes the webnote note store to LLM clients as MCP
// tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/webnote/internal/format"
	"github.com/starford/webnote/internal/models"
	"github.com/starford/webnote/internal/notestore"
	"github.com/starford/webnote/internal/page"
)

const (
	notesResourceURI = "webnote://notes"
	searchLimit      = 20
)

// Server wraps the MCP server with webnote tools.
type Server struct {
	mcp   *server.MCPServer
	notes *notestore.Store
	pages *page.Loader
}

// New creates an MCP server with all tools registered. pages may be nil, in
// which case extract_page is not offered.
func New(notes *notestore.Store, pages *page.Loader) *Server {
	s := &Server{notes: notes, pages: pages}

	s.mcp = server.NewMCPServer(
		"webnote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every page note, most recently updated first, with display title and URL."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the note attached to a web page URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Exact page URL the note belongs to")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Replace the note for a page URL. Blank content deletes the note."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Exact page URL")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown note text")),
		mcp.WithString("title", mcp.Description("Page title to store with the note")),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete the note for a page URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Exact page URL")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive search over note URLs, titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
	), s.searchNotes)

	if pages != nil {
		s.mcp.AddTool(mcp.NewTool("extract_page",
			mcp.WithDescription("Fetch a web page and return its primary readable text, as used for summaries."),
			mcp.WithString("url", mcp.Required(), mcp.Description("http or https URL")),
		), s.extractPage)
	}

	s.mcp.AddResource(
		mcp.NewResource(notesResourceURI, "Note listing",
			mcp.WithResourceDescription("All page notes as JSON, most recent first."),
			mcp.WithMIMEType("application/json"),
		),
		s.readNotesResource,
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

type listEntry struct {
	URL          string `json:"url"`
	DisplayTitle string `json:"displayTitle"`
	Preview      string `json:"preview"`
	LastUpdated  int64  `json:"lastUpdated"`
}

func (s *Server) listing(ctx context.Context, query string) ([]listEntry, error) {
	var (
		notes []models.NoteRecord
		err   error
	)
	if query == "" {
		notes, err = s.notes.ListAll(ctx)
		notestore.SortByRecency(notes)
	} else {
		notes, err = s.notes.Search(ctx, query)
		if len(notes) > searchLimit {
			notes = notes[:searchLimit]
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]listEntry, 0, len(notes))
	for _, n := range notes {
		out = append(out, listEntry{
			URL:          n.URL,
			DisplayTitle: format.DisplayTitle(n),
			Preview:      format.NotePreview(n.Content),
			LastUpdated:  n.LastUpdated,
		})
	}
	return out, nil
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.listing(ctx, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no notes"), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.listing(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, ok, err := s.notes.Get(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", url)), nil
	}
	return mcp.NewToolResultText(rec.Content), nil
}

func (s *Server) saveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := ""
	if t, err := req.RequireString("title"); err == nil {
		title = t
	}

	rec, err := s.notes.Set(ctx, url, content, title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if rec == nil {
		return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", url)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", url)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.notes.Delete(ctx, url); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", url)), nil
}

func (s *Server) extractPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.pages.Content(ctx, page.Request{URL: url})
	if errors.Is(err, page.ErrInternalPage) {
		return mcp.NewToolResultError("browser internal pages cannot be read"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) readNotesResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := s.listing(ctx, "")
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      notesResourceURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
