package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/webnote/internal/ai"
	"github.com/starford/webnote/internal/apperr"
	"github.com/starford/webnote/internal/assistant"
	"github.com/starford/webnote/internal/i18n"
	"github.com/starford/webnote/internal/models"
	"github.com/starford/webnote/internal/notestore"
	"github.com/starford/webnote/internal/page"
	"github.com/starford/webnote/internal/session"
	"github.com/starford/webnote/internal/sse"
	"github.com/starford/webnote/internal/tabs"
)

// Deps are the components the handlers serve.
type Deps struct {
	Notes     *notestore.Store
	Session   *session.Controller
	Tabs      *tabs.Bridge
	Pages     *page.Loader
	Assistant *assistant.Assistant
	Localizer *i18n.Localizer
	// Providers builds the AI provider for model listing. Defaults to ai.New.
	Providers assistant.Factory
	// Events is optional.
	Events *sse.Broker
}

// Handler holds API route handlers.
type Handler struct {
	Deps
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	if d.Providers == nil {
		d.Providers = ai.New
	}
	return &Handler{Deps: d}
}

func (h *Handler) notesChanged(url string) {
	if h.Events != nil {
		h.Events.NotesChanged(url)
	}
}

// afterExternalEdit brings the session up to date after a note was changed
// outside it.
func (h *Handler) afterExternalEdit(ctx context.Context, url string) {
	h.notesChanged(url)
	if h.Session != nil && h.Session.Snapshot().CurrentURL == url {
		h.Session.Reload(ctx)
	}
}

func noteURL(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("url"))
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List all notes, most recently updated first
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.Notes.ListAll(r.Context())
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	notestore.SortByRecency(notes)
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: listItems(notes), Total: len(notes)})
}

// SearchNotes handles GET /api/notes/search.
//
//	@Summary		Case-insensitive search over url, title and content
//	@Tags			notes
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	NoteListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/search [get]
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	notes, err := h.Notes.Search(r.Context(), q)
	if err != nil {
		writeError(w, "search notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: listItems(notes), Total: len(notes)})
}

// GetNote handles GET /api/note?url=.
//
//	@Summary		Get the note for a URL
//	@Tags			notes
//	@Produce		json
//	@Param			url	query		string	true	"Page URL"
//	@Success		200	{object}	NoteRecord
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/note [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	url := noteURL(r)
	if url == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	rec, ok, err := h.Notes.Get(r.Context(), url)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PutNote handles PUT /api/note?url=. Blank content deletes the note.
//
//	@Summary		Save the note for a URL
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			url		query		string			true	"Page URL"
//	@Param			body	body		PutNoteRequest	true	"Note content"
//	@Success		200		{object}	NoteRecord
//	@Success		204		"Blank content, note deleted"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/note [put]
func (h *Handler) PutNote(w http.ResponseWriter, r *http.Request) {
	url := noteURL(r)
	if url == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	var req PutNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	rec, err := h.Notes.Set(r.Context(), url, req.Content, req.Title)
	if err != nil {
		writeError(w, "put note", err)
		return
	}
	h.afterExternalEdit(r.Context(), url)
	if rec == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteNote handles DELETE /api/note?url=.
//
//	@Summary		Delete the note for a URL
//	@Tags			notes
//	@Param			url	query	string	true	"Page URL"
//	@Success		204	"Note deleted"
//	@Security		BearerAuth
//	@Router			/note [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	url := noteURL(r)
	if url == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	if err := h.Notes.Delete(r.Context(), url); err != nil {
		writeError(w, "delete note", err)
		return
	}
	h.afterExternalEdit(r.Context(), url)
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /api/settings.
//
//	@Summary		AI provider settings, defaults filled in
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	models.Settings
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Notes.LoadSettings(r.Context())
	if err != nil {
		writeError(w, "load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PutSettings handles PUT /api/settings.
//
//	@Summary		Validate and store AI provider settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Settings	true	"Settings"
//	@Success		200		{object}	models.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var s models.Settings
	if !readJSON(w, r, &s) {
		return
	}
	if err := h.Notes.SaveSettings(r.Context(), s); err != nil {
		if errors.Is(err, apperr.ErrStoreUnavailable) {
			writeError(w, "save settings", err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	saved, err := h.Notes.LoadSettings(r.Context())
	if err != nil {
		writeError(w, "load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ListModels handles GET /api/settings/models.
//
//	@Summary		Models offered by the configured provider
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	ModelsResponse
//	@Failure		400	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/models [get]
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	s, err := h.Notes.LoadSettings(r.Context())
	if err != nil {
		writeError(w, "load settings", err)
		return
	}
	provider, err := h.Providers(r.Context(), s)
	if err != nil {
		var upe *ai.UnknownProviderError
		if errors.Is(err, ai.ErrNoAPIKey) || errors.As(err, &upe) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		writeError(w, "build provider", err)
		return
	}
	ids, err := provider.ListModels(r.Context())
	if err != nil {
		slog.Warn("list models failed", slog.String("provider", s.Provider), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("model listing failed"))
		return
	}
	writeJSON(w, http.StatusOK, ModelsResponse{Models: ids})
}
