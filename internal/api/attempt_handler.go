package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/session"
	"github.com/abhisek/tierwise/internal/store"
)

// AttemptResponse is the reviewer view of a stored attempt. ScoreError is
// set while the attempt cannot be tiered against the active thresholds.
type AttemptResponse struct {
	ID             string                  `json:"id"`
	Sequence       int64                   `json:"sequence"`
	Status         string                  `json:"status"`
	Submission     *session.Submission     `json:"submission"`
	Reading        *placement.ReadingInput `json:"reading,omitempty"`
	FluencyPending bool                    `json:"fluencyPending,omitempty"`
	Result         *placement.Result       `json:"result"`
	ScoreError     string                  `json:"scoreError,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

type GradeRequest struct {
	QuestionID string `json:"questionId"`
	Correct    *bool  `json:"correct"`
}

type FluencyRequest struct {
	ErrorCount *int `json:"errorCount"`
}

func attemptResponse(a *store.Attempt) AttemptResponse {
	reading := a.Reading
	if a.FluencyPending {
		reading = nil
	}
	return AttemptResponse{
		ID:             a.ID,
		Sequence:       a.Sequence,
		Status:         a.Status(),
		Submission:     a.Submission,
		Reading:        reading,
		FluencyPending: a.FluencyPending,
		Result:         a.Result,
		ScoreError:     a.ScoreError,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// GET /attempts/{id}
func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	a, err := h.attempts.Get(r.Context(), mux.Vars(r)["id"])
	if h.handleError(w, err, "attempt") {
		return
	}
	respondJSON(w, http.StatusOK, attemptResponse(a))
}

// POST /attempts/{id}/grades
func (h *Handler) gradeAnswer(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.QuestionID == "" || req.Correct == nil {
		respondError(w, http.StatusBadRequest, "questionId and correct are required")
		return
	}

	id := mux.Vars(r)["id"]
	res, err := h.attempts.Grade(r.Context(), id, req.QuestionID, *req.Correct)
	if h.handleError(w, err, "attempt") {
		return
	}
	h.logger.Info("manual grade recorded",
		"attempt_id", id,
		"question_id", req.QuestionID,
		"correct", *req.Correct)
	respondJSON(w, http.StatusOK, res)
}

// PUT /attempts/{id}/fluency
func (h *Handler) recordFluency(w http.ResponseWriter, r *http.Request) {
	var req FluencyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ErrorCount == nil {
		respondError(w, http.StatusBadRequest, "errorCount is required")
		return
	}
	res, err := h.attempts.RecordFluency(r.Context(), mux.Vars(r)["id"], *req.ErrorCount)
	if h.handleError(w, err, "attempt") {
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// POST /attempts/{id}/rescore
func (h *Handler) rescoreAttempt(w http.ResponseWriter, r *http.Request) {
	res, err := h.attempts.Rescore(r.Context(), mux.Vars(r)["id"])
	if h.handleError(w, err, "attempt") {
		return
	}
	respondJSON(w, http.StatusOK, res)
}
