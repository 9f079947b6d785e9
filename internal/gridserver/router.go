package gridserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the chi mux: compile/session endpoints behind bearer
// auth, plus an unauthenticated health check and the streaming websocket
// endpoint (which authenticates via its own query-param token since browser
// WebSocket clients cannot set arbitrary headers).
func NewRouter(svc *Service, auth *AuthService, stream *StreamHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Post("/grammars", svc.handleCompileGrammar)
		r.Post("/sessions", svc.handleBeginSession)
		r.Post("/sessions/{sessionID}/advance", svc.handleAdvanceSession)
		r.Get("/stream", stream.ServeHTTP)
	})

	return r
}
