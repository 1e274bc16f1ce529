package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/webnote/internal/apperr"
	"github.com/starford/webnote/internal/assistant"
	"github.com/starford/webnote/internal/extract"
	"github.com/starford/webnote/internal/page"
	"github.com/starford/webnote/internal/session"
)

// GetSession handles GET /api/session.
//
//	@Summary		Current page, its note and the last listing
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	session.State
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}

// ChangeNote handles PUT /api/session/note.
//
//	@Summary		Save the current page's note (blank content deletes it)
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ChangeNoteRequest	true	"Note content"
//	@Success		200		{object}	session.State
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/note [put]
func (h *Handler) ChangeNote(w http.ResponseWriter, r *http.Request) {
	var req ChangeNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	st, err := h.Session.ChangeNote(r.Context(), req.Content)
	if errors.Is(err, session.ErrNoPage) {
		writeJSON(w, http.StatusConflict, errorBody("no current page"))
		return
	}
	if err != nil {
		writeError(w, "change note", err)
		return
	}
	h.notesChanged(st.CurrentURL)
	writeJSON(w, http.StatusOK, st)
}

// OpenNote handles POST /api/session/open. The note is loaded once the tab
// reports the navigation; the response does not wait for it.
//
//	@Summary		Navigate the active tab to a note's page
//	@Tags			session
//	@Accept			json
//	@Param			body	body	OpenNoteRequest	true	"Target URL"
//	@Success		202		"Navigation requested"
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/open [post]
func (h *Handler) OpenNote(w http.ResponseWriter, r *http.Request) {
	var req OpenNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	if err := h.Session.ClickNote(r.Context(), req.URL); err != nil {
		writeError(w, "open note", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// RemoveNote handles DELETE /api/session/note?url=.
//
//	@Summary		Delete a note from the listing view
//	@Tags			session
//	@Produce		json
//	@Param			url	query		string	true	"Page URL"
//	@Success		200	{object}	session.State
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/note [delete]
func (h *Handler) RemoveNote(w http.ResponseWriter, r *http.Request) {
	url := noteURL(r)
	if url == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	st, err := h.Session.RemoveNote(r.Context(), url)
	if err != nil {
		writeError(w, "remove note", err)
		return
	}
	h.notesChanged(url)
	writeJSON(w, http.StatusOK, st)
}

// RefreshNotes handles POST /api/session/refresh, sent when the listing
// view opens.
//
//	@Summary		Reload the all-notes listing
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	session.State
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/refresh [post]
func (h *Handler) RefreshNotes(w http.ResponseWriter, r *http.Request) {
	st, err := h.Session.RefreshNotes(r.Context())
	if err != nil {
		writeError(w, "refresh notes", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Clip handles POST /api/session/clip: the primary content of the current
// page, as Markdown, is appended to its note.
//
//	@Summary		Append the current page's content to its note
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ClipRequest	false	"Page snapshot"
//	@Success		200		{object}	session.State
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	PageContentResponse
//	@Security		BearerAuth
//	@Router			/session/clip [post]
func (h *Handler) Clip(w http.ResponseWriter, r *http.Request) {
	var req ClipRequest
	if !readJSON(w, r, &req) {
		return
	}
	current := h.Session.Snapshot().CurrentURL
	if current == "" {
		writeJSON(w, http.StatusConflict, errorBody("no current page"))
		return
	}
	doc, err := h.Pages.Document(r.Context(), page.Request{URL: current, HTML: req.HTML})
	if err != nil {
		h.writePageError(w, err)
		return
	}
	md, err := extract.Markdown(doc)
	if err != nil {
		h.writePageError(w, err)
		return
	}
	st, err := h.Session.AppendNote(r.Context(), current, md)
	if err != nil {
		writeError(w, "clip", err)
		return
	}
	h.notesChanged(current)
	writeJSON(w, http.StatusOK, st)
}

// TabSnapshot handles POST /api/tabs/snapshot.
//
//	@Summary		Replace the known tabs and the active tab
//	@Tags			tabs
//	@Accept			json
//	@Param			body	body	TabSnapshotRequest	true	"Open tabs"
//	@Success		204		"Accepted"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tabs/snapshot [post]
func (h *Handler) TabSnapshot(w http.ResponseWriter, r *http.Request) {
	var req TabSnapshotRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.Tabs.Snapshot(req.Tabs, req.ActiveTabID); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TabUpdated handles POST /api/tabs/updated.
//
//	@Summary		Report an in-place tab change
//	@Tags			tabs
//	@Accept			json
//	@Param			body	body	TabUpdate	true	"Changed fields"
//	@Success		204		"Accepted"
//	@Security		BearerAuth
//	@Router			/tabs/updated [post]
func (h *Handler) TabUpdated(w http.ResponseWriter, r *http.Request) {
	var req TabUpdate
	if !readJSON(w, r, &req) {
		return
	}
	h.Tabs.Updated(req)
	w.WriteHeader(http.StatusNoContent)
}

// TabActivated handles POST /api/tabs/activated.
//
//	@Summary		Report a tab switch
//	@Tags			tabs
//	@Accept			json
//	@Param			body	body	TabActivation	true	"Activated tab"
//	@Success		204		"Accepted"
//	@Security		BearerAuth
//	@Router			/tabs/activated [post]
func (h *Handler) TabActivated(w http.ResponseWriter, r *http.Request) {
	var req TabActivation
	if !readJSON(w, r, &req) {
		return
	}
	h.Tabs.Activated(req)
	w.WriteHeader(http.StatusNoContent)
}

// TabRemoved handles POST /api/tabs/removed.
//
//	@Summary		Report a closed tab
//	@Tags			tabs
//	@Accept			json
//	@Param			body	body	TabRemovedRequest	true	"Closed tab"
//	@Success		204		"Accepted"
//	@Security		BearerAuth
//	@Router			/tabs/removed [post]
func (h *Handler) TabRemoved(w http.ResponseWriter, r *http.Request) {
	var req TabRemovedRequest
	if !readJSON(w, r, &req) {
		return
	}
	h.Tabs.Closed(req.TabID)
	w.WriteHeader(http.StatusNoContent)
}

// PageContent handles POST /api/page/content. It answers like the content
// script: {content} on success, {error} otherwise.
//
//	@Summary		Extract the primary text of a page
//	@Tags			page
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PageContentRequest	true	"Snapshot or URL"
//	@Success		200		{object}	PageContentResponse
//	@Failure		422		{object}	PageContentResponse
//	@Security		BearerAuth
//	@Router			/page/content [post]
func (h *Handler) PageContent(w http.ResponseWriter, r *http.Request) {
	var req PageContentRequest
	if !readJSON(w, r, &req) {
		return
	}
	text, err := h.Pages.Content(r.Context(), h.pageRequest(req.URL, req.HTML))
	if err != nil {
		h.writePageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageContentResponse{Content: text})
}

// Summary handles POST /api/page/summary. Model failures still answer 200
// with the localized message and failed=true.
//
//	@Summary		Summarise a page or answer a question about it
//	@Tags			page
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SummaryRequest	true	"Page and optional question"
//	@Success		200		{object}	SummaryResponse
//	@Failure		422		{object}	PageContentResponse
//	@Security		BearerAuth
//	@Router			/page/summary [post]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if !readJSON(w, r, &req) {
		return
	}
	ctx := r.Context()

	pr := h.pageRequest(req.URL, req.HTML)
	text, err := h.Pages.Content(ctx, pr)
	if err != nil {
		h.writePageError(w, err)
		return
	}
	title := req.Title
	if title == "" {
		title = h.Session.Snapshot().CurrentTitle
	}

	var res assistant.Result
	if q := strings.TrimSpace(req.Question); q != "" {
		res = h.Assistant.Answer(ctx, text, title, q)
	} else {
		res = h.Assistant.Summarize(ctx, text, title)
	}

	if req.AddToNote && res.Err == nil {
		if _, err := h.Session.AppendNote(ctx, pr.URL, res.Markdown()); err != nil {
			slog.Warn("add summary to note failed", slog.String("url", pr.URL), slog.String("error", err.Error()))
		} else {
			h.notesChanged(pr.URL)
		}
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		Heading:  res.Heading,
		Text:     res.Text,
		Markdown: res.Markdown(),
		Failed:   res.Err != nil,
	})
}

// pageRequest fills in the current session page when no URL is given.
func (h *Handler) pageRequest(url, html string) page.Request {
	if url == "" && h.Session != nil {
		url = h.Session.Snapshot().CurrentURL
	}
	return page.Request{URL: url, HTML: html}
}

// writePageError answers with a localized content-script style error.
func (h *Handler) writePageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, page.ErrInternalPage):
		writeJSON(w, http.StatusUnprocessableEntity, PageContentResponse{
			Error: h.Localizer.T("page.internal", "Cannot summarize browser internal pages or extensions."),
		})
	case errors.Is(err, apperr.ErrContentUnavailable):
		writeJSON(w, http.StatusUnprocessableEntity, PageContentResponse{
			Error: h.Localizer.T("page.loadFailed", "Failed to load page content."),
		})
	default:
		slog.Warn("page content failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, PageContentResponse{
			Error: h.Localizer.T("page.loadFailed", "Failed to load page content."),
		})
	}
}
