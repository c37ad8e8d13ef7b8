package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pfnbot/internal/findingservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *findingservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/findings", h.ListFindings)
	r.Get("/findings/{ref}", h.GetFinding)
	r.Get("/findings/{ref}/image", h.GetFindingImage)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
