package api

import (
	"net/http"

	"valhalla/internal/auth"
	"valhalla/internal/middleware"
)

// Register mounts the API on mux. Ingestion and feedback routes require a
// bearer token signed with signingKey.
func (h *Handler) Register(mux *http.ServeMux, signingKey string) {
	public := func(fn http.HandlerFunc) http.Handler {
		return middleware.MetricsMiddleware(middleware.CORSMiddleware(fn))
	}
	protected := func(fn http.HandlerFunc) http.Handler {
		return middleware.MetricsMiddleware(middleware.CORSMiddleware(auth.JWTMiddleware(fn, signingKey)))
	}

	mux.Handle("GET /healthz", public(h.HealthHandler))
	mux.Handle("POST /api/requests", protected(h.RecordRequestHandler))
	mux.Handle("POST /api/responses/{id}/complete", protected(h.CompleteResponseHandler))
	mux.Handle("POST /api/feedback", protected(h.FeedbackHandler))
}
