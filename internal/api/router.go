package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/redline/internal/editservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *editservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/sessions", h.ListSessions)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Put("/content", h.SetContent)

		r.Post("/selection", h.Select)
		r.Delete("/selection", h.ClearSelection)

		r.Post("/proposal", h.Propose)
		r.Post("/proposal/apply", h.ApplyProposal)
		r.Post("/proposal/cancel", h.CancelProposal)
		r.Post("/proposal/defer", h.DeferProposal)
		r.Post("/resolve", h.Resolve)

		r.Post("/undo", h.Undo)
		r.Post("/redo", h.Redo)

		r.Get("/logs", h.Logs)
		r.Delete("/logs", h.ClearLogs)
		r.Get("/transcript", h.Transcript)
		r.Get("/replay", h.Replay)

		r.Put("/flags", h.SetFlags)
		r.Get("/ws", h.Live)
	})

	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
