package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gamewatch/internal/loadservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *loadservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/loaded", h.Loaded)
	r.Post("/load", h.Load)
	r.Get("/history", h.History)

	r.Get("/cards", h.Cards)
	r.Put("/cards/{id}", h.AssignCard)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
