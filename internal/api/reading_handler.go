package api

import (
	"net/http"

	"github.com/abhisek/tierwise/internal/diagnosis"
	"github.com/abhisek/tierwise/internal/placement"
)

// ReadingTierRequest carries externally counted reading results.
type ReadingTierRequest struct {
	GradeBand  string           `json:"gradeBand"`
	ErrorCount int              `json:"errorCount"`
	Levels     diagnosis.Levels `json:"levels"`
}

// POST /reading/tier
func (h *Handler) readingTier(w http.ResponseWriter, r *http.Request) {
	var req ReadingTierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.GradeBand == "" {
		respondError(w, http.StatusBadRequest, "gradeBand is required")
		return
	}
	if req.ErrorCount < 0 {
		respondError(w, http.StatusBadRequest, "errorCount must not be negative")
		return
	}

	res, err := h.engine.Reading(placement.ReadingInput{
		GradeBand:  req.GradeBand,
		ErrorCount: req.ErrorCount,
	}, req.Levels)
	if h.handleError(w, err, "reading") {
		return
	}
	respondJSON(w, http.StatusOK, res)
}
