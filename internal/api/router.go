package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(CORSMiddleware)
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes by URL.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/search", h.SearchNotes)
	r.Get("/note", h.GetNote)
	r.Put("/note", h.PutNote)
	r.Delete("/note", h.DeleteNote)

	// Session.
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Put("/note", h.ChangeNote)
		r.Delete("/note", h.RemoveNote)
		r.Post("/open", h.OpenNote)
		r.Post("/refresh", h.RefreshNotes)
		r.Post("/clip", h.Clip)
	})

	// Tab events from the extension.
	r.Route("/tabs", func(r chi.Router) {
		r.Post("/snapshot", h.TabSnapshot)
		r.Post("/updated", h.TabUpdated)
		r.Post("/activated", h.TabActivated)
		r.Post("/removed", h.TabRemoved)
	})

	// Page content and AI.
	r.Post("/page/content", h.PageContent)
	r.Post("/page/summary", h.Summary)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Get("/settings/models", h.ListModels)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
