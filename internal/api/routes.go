package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter registers every route and wraps them with CORS.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(h.instrument)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Sessions
	api.HandleFunc("/sessions", h.createSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", h.getSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.abandonSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/answers/{questionID}", h.recordAnswer).Methods("PUT")
	api.HandleFunc("/sessions/{id}/advance", h.advance).Methods("POST")
	api.HandleFunc("/sessions/{id}/submit", h.submitSession).Methods("POST")

	// Attempts
	api.HandleFunc("/attempts/{id}", h.getAttempt).Methods("GET")
	api.HandleFunc("/attempts/{id}/grades", h.gradeAnswer).Methods("POST")
	api.HandleFunc("/attempts/{id}/fluency", h.recordFluency).Methods("PUT")
	api.HandleFunc("/attempts/{id}/rescore", h.rescoreAttempt).Methods("POST")

	// Reading
	api.HandleFunc("/reading/tier", h.readingTier).Methods("POST")

	r.HandleFunc("/health", h.healthCheck).Methods("GET")
	r.Handle("/metrics", h.metrics.Handler()).Methods("GET")

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// GET /health
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"activeSessions": h.sessions.len(),
	})
}
