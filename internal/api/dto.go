package api

import (
	"github.com/starford/webnote/internal/format"
	"github.com/starford/webnote/internal/models"
	"github.com/starford/webnote/internal/tabs"
)

// NoteRecord is the stored note (aliased from the domain layer).
type NoteRecord = models.NoteRecord

// NoteListItem is one row of a notes listing, with display fields filled in.
type NoteListItem struct {
	URL          string `json:"url" example:"https://go.dev/doc" validate:"required"`
	Title        string `json:"title" example:"Documentation"`
	Content      string `json:"content" example:"# Go docs" validate:"required"`
	LastUpdated  int64  `json:"lastUpdated,omitempty" example:"1718000000000"`
	DisplayTitle string `json:"displayTitle" example:"Documentation" validate:"required"`
	DisplayURL   string `json:"displayUrl" example:"go.dev/doc" validate:"required"`
	Preview      string `json:"preview" example:"# Go docs" validate:"required"`
}

func listItem(r models.NoteRecord) NoteListItem {
	return NoteListItem{
		URL:          r.URL,
		Title:        r.Title,
		Content:      r.Content,
		LastUpdated:  r.LastUpdated,
		DisplayTitle: format.DisplayTitle(r),
		DisplayURL:   format.DisplayURL(r.URL),
		Preview:      format.NotePreview(r.Content),
	}
}

func listItems(notes []models.NoteRecord) []NoteListItem {
	out := make([]NoteListItem, 0, len(notes))
	for _, n := range notes {
		out = append(out, listItem(n))
	}
	return out
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// PutNoteRequest is the request body for saving a note by URL.
type PutNoteRequest struct {
	Content string `json:"content" example:"# Notes"`
	Title   string `json:"title" example:"Go"`
}

// ChangeNoteRequest is the request body for editing the current note.
type ChangeNoteRequest struct {
	Content string `json:"content" example:"# Notes"`
}

// OpenNoteRequest asks the active tab to navigate to a note's page.
type OpenNoteRequest struct {
	URL string `json:"url" example:"https://go.dev/doc" validate:"required"`
}

// ClipRequest carries the page snapshot to clip into the current note.
type ClipRequest struct {
	HTML string `json:"html"`
}

// TabSnapshotRequest replaces the known tabs.
type TabSnapshotRequest struct {
	Tabs        []models.Tab `json:"tabs" validate:"required"`
	ActiveTabID int          `json:"activeTabId" example:"12"`
}

// TabRemovedRequest reports a closed tab.
type TabRemovedRequest struct {
	TabID int `json:"tabId" example:"12" validate:"required"`
}

// TabUpdate is an in-place tab change (aliased from the domain layer).
type TabUpdate = tabs.Update

// TabActivation is a tab switch (aliased from the domain layer).
type TabActivation = tabs.Activation

// PageContentRequest names the page to extract. Both fields are optional;
// without them the current session page is fetched.
type PageContentRequest struct {
	URL  string `json:"url" example:"https://go.dev/doc"`
	HTML string `json:"html"`
}

// PageContentResponse is the content-script style reply: content or error.
type PageContentResponse struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SummaryRequest asks for a summary, or an answer when Question is set.
type SummaryRequest struct {
	URL       string `json:"url" example:"https://go.dev/doc"`
	Title     string `json:"title" example:"Documentation"`
	HTML      string `json:"html"`
	Question  string `json:"question" example:"What is new?"`
	AddToNote bool   `json:"addToNote"`
}

// SummaryResponse carries the model output. Failed marks a localized error
// message in Text.
type SummaryResponse struct {
	Heading  string `json:"heading" example:"## Web Page Summary"`
	Text     string `json:"text"`
	Markdown string `json:"markdown"`
	Failed   bool   `json:"failed"`
}

// ModelsResponse lists the models offered by the configured provider.
type ModelsResponse struct {
	Models []string `json:"models" validate:"required"`
}
