// Package api serves the assessment engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/abhisek/tierwise/internal/assess"
	"github.com/abhisek/tierwise/internal/bank"
	"github.com/abhisek/tierwise/internal/metrics"
	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/session"
	"github.com/abhisek/tierwise/internal/store"
	"github.com/abhisek/tierwise/internal/thresholds"
)

// Questions is the question bank the API delivers tests from.
type Questions interface {
	bank.QuestionSource
	bank.ReinforcementSource
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Handler needs.
type Deps struct {
	Questions  Questions
	Thresholds placement.ConfigSource
	Engine     *placement.Engine
	Attempts   *assess.Service
	Metrics    *metrics.Metrics
	Health     Pinger
	Logger     *slog.Logger

	// SessionLimit applies to sessions created without a time limit.
	SessionLimit time.Duration
}

// Handler holds all dependencies needed by HTTP handlers.
type Handler struct {
	questions    Questions
	thresholds   placement.ConfigSource
	engine       *placement.Engine
	attempts     *assess.Service
	metrics      *metrics.Metrics
	health       Pinger
	logger       *slog.Logger
	sessionLimit time.Duration

	sessions *registry
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}
	h := &Handler{
		questions:    d.Questions,
		thresholds:   d.Thresholds,
		engine:       d.Engine,
		attempts:     d.Attempts,
		metrics:      m,
		health:       d.Health,
		logger:       logger,
		sessionLimit: d.SessionLimit,
	}
	h.sessions = newRegistry(h.expire)
	return h
}

// Close stops every session timer. Live sessions are dropped.
func (h *Handler) Close() {
	h.sessions.closeAll()
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON decodes the request body into v. It writes a 400 and returns
// false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

// decodeBody decodes an optional JSON body. An empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// handleError maps domain errors to HTTP responses. Returns true if an
// error was handled (caller should return).
func (h *Handler) handleError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}
	var (
		unknownBand *thresholds.ErrUnknownGradeBand
		outOfRange  *session.ErrIndexOutOfRange
	)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, bank.ErrTestNotFound):
		respondError(w, http.StatusNotFound, entity+" not found")
	case errors.As(err, &unknownBand):
		h.metrics.DataError("unknown_grade_band")
		h.logger.Warn("unknown grade band", "band", unknownBand.Band, "version", unknownBand.Version)
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, placement.ErrNoThresholds):
		h.metrics.DataError("no_thresholds")
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &outOfRange),
		errors.Is(err, assess.ErrUnknownQuestion),
		errors.Is(err, assess.ErrNotGradable),
		errors.Is(err, assess.ErrNotReading),
		errors.Is(err, assess.ErrInvalidErrorCount),
		errors.Is(err, placement.ErrInvalidLevels):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrFinalized), errors.Is(err, session.ErrAbandoned):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", "error", err, "entity", entity)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}
