package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/session"
)

// ── Request / Response types ────────────────────────────────────────────────

type CreateSessionRequest struct {
	Test      string `json:"test"`
	GradeBand string `json:"gradeBand,omitempty"`

	// TimeLimit is a Go duration such as "20m". Empty uses the server
	// default.
	TimeLimit string `json:"timeLimit,omitempty"`
}

// QuestionView is a question as shown to the student. The answer key is
// never sent.
type QuestionView struct {
	ID         string         `json:"id"`
	Prompt     string         `json:"prompt"`
	Kind       question.Kind  `json:"kind"`
	Skill      string         `json:"skill"`
	Choices    []string       `json:"choices,omitempty"`
	Level      question.Level `json:"level,omitempty"`
	IsAdaptive bool           `json:"isAdaptive,omitempty"`
}

type SessionResponse struct {
	ID        string        `json:"id"`
	TestName  string        `json:"testName"`
	GradeBand string        `json:"gradeBand,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Deadline  *time.Time    `json:"deadline,omitempty"`
	Questions int           `json:"questions"`
	Question  *QuestionView `json:"question,omitempty"`
}

type RecordAnswerRequest struct {
	Value string `json:"value"`
}

type AdvanceRequest struct {
	Index int `json:"index"`
}

type AdvanceResponse struct {
	Next     int           `json:"next"`
	Done     bool          `json:"done"`
	Injected bool          `json:"injected"`
	Advisory string        `json:"advisory,omitempty"`
	Question *QuestionView `json:"question,omitempty"`
}

type SubmitSessionRequest struct {
	// FluencyErrors is the oral reading error count. Required when the
	// session has a grade band.
	FluencyErrors *int `json:"fluencyErrors,omitempty"`
}

// SubmitSessionResponse acknowledges a stored attempt. Result is nil when
// the attempt could not be tiered yet; Status then reads "untiered".
type SubmitSessionResponse struct {
	AttemptID string            `json:"attemptId"`
	Status    string            `json:"status"`
	Result    *placement.Result `json:"result"`
}

func viewOf(q question.Question) *QuestionView {
	return &QuestionView{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Kind:       q.Kind,
		Skill:      q.Skill,
		Choices:    q.Choices,
		Level:      q.Level,
		IsAdaptive: q.IsAdaptive,
	}
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /sessions
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Test == "" {
		respondError(w, http.StatusBadRequest, "test is required")
		return
	}

	limit := h.sessionLimit
	if req.TimeLimit != "" {
		d, err := time.ParseDuration(req.TimeLimit)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "timeLimit must be a positive duration")
			return
		}
		limit = d
	}

	cfg := h.thresholds.Current()
	if cfg == nil {
		h.handleError(w, placement.ErrNoThresholds, "thresholds")
		return
	}
	if req.GradeBand != "" {
		if _, err := cfg.Band(req.GradeBand); h.handleError(w, err, "grade band") {
			return
		}
	}

	questions, err := h.questions.QuestionsForTest(req.Test)
	if h.handleError(w, err, "test") {
		return
	}

	s := session.New(questions, session.Options{
		TestName:      req.Test,
		GradeBand:     req.GradeBand,
		Reinforcement: h.questions,
		MaxPerSkill:   cfg.Reinforcement.MaxPerSkill,
		TimeLimit:     limit,
		Observer:      h.metrics,
		Logger:        h.logger,
	})
	h.sessions.add(s)
	h.metrics.SessionStarted()
	h.logger.Info("session started",
		"session_id", s.ID,
		"test", req.Test,
		"grade_band", req.GradeBand,
		"questions", s.Len())

	resp := SessionResponse{
		ID:        s.ID,
		TestName:  s.TestName,
		GradeBand: s.GradeBand,
		StartedAt: s.StartedAt,
		Questions: s.Len(),
	}
	if !s.Deadline.IsZero() {
		d := s.Deadline
		resp.Deadline = &d
	}
	if q, err := s.Question(0); err == nil {
		resp.Question = viewOf(q)
	}
	respondJSON(w, http.StatusCreated, resp)
}

// GET /sessions/{id}
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.session(w, r)
	if !ok {
		return
	}
	ls.mu.Lock()
	summary := session.BuildSummary(ls.s)
	ls.mu.Unlock()
	respondJSON(w, http.StatusOK, summary)
}

// PUT /sessions/{id}/answers/{questionID}
func (h *Handler) recordAnswer(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.session(w, r)
	if !ok {
		return
	}
	var req RecordAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ls.mu.Lock()
	err := ls.s.RecordAnswer(mux.Vars(r)["questionID"], req.Value)
	ls.mu.Unlock()
	if h.handleError(w, err, "session") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /sessions/{id}/advance
func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AdvanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ls.mu.Lock()
	step, err := ls.s.Advance(req.Index)
	var next *QuestionView
	if err == nil && !step.Done {
		if q, qerr := ls.s.Question(step.Next); qerr == nil {
			next = viewOf(q)
		}
	}
	ls.mu.Unlock()
	if h.handleError(w, err, "session") {
		return
	}

	respondJSON(w, http.StatusOK, AdvanceResponse{
		Next:     step.Next,
		Done:     step.Done,
		Injected: step.Injected != nil,
		Advisory: step.Advisory,
		Question: next,
	})
}

// POST /sessions/{id}/submit
func (h *Handler) submitSession(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SubmitSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	ls.mu.Lock()
	if ls.s.GradeBand != "" && req.FluencyErrors == nil {
		ls.mu.Unlock()
		respondError(w, http.StatusBadRequest, "fluencyErrors is required for reading sessions")
		return
	}
	if req.FluencyErrors != nil && *req.FluencyErrors < 0 {
		ls.mu.Unlock()
		respondError(w, http.StatusBadRequest, "fluencyErrors must not be negative")
		return
	}
	sub, err := ls.s.Finalize(session.SubmitManual)
	ls.mu.Unlock()
	if h.handleError(w, err, "session") {
		return
	}
	h.end(sub.SessionID, "submitted")

	a, err := h.attempts.Submit(r.Context(), sub, req.FluencyErrors)
	if h.handleError(w, err, "attempt") {
		return
	}
	status := http.StatusOK
	if a.ScoreError != "" {
		h.metrics.DataError("untiered_attempt")
		status = http.StatusAccepted
	}
	respondJSON(w, status, SubmitSessionResponse{AttemptID: a.ID, Status: a.Status(), Result: a.Result})
}

// DELETE /sessions/{id}
func (h *Handler) abandonSession(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.session(w, r)
	if !ok {
		return
	}
	ls.mu.Lock()
	err := ls.s.Abandon()
	ls.mu.Unlock()
	if h.handleError(w, err, "session") {
		return
	}
	h.end(ls.s.ID, "abandoned")
	w.WriteHeader(http.StatusNoContent)
}

// expire force-submits a session whose deadline passed.
func (h *Handler) expire(id string) {
	ls, ok := h.sessions.get(id)
	if !ok {
		return
	}
	ls.mu.Lock()
	sub, err := ls.s.Finalize(session.SubmitTimeout)
	ls.mu.Unlock()
	if err != nil {
		return
	}
	h.end(id, "timeout")

	// A timed-out reading session has no oral reading count yet. It is
	// stored as awaiting fluency until PUT /attempts/{id}/fluency.
	a, err := h.attempts.Submit(context.Background(), sub, nil)
	if err != nil {
		h.logger.Error("storing timed-out session failed", "session_id", id, "error", err)
		return
	}
	if a.ScoreError != "" {
		h.metrics.DataError("untiered_attempt")
	}
	h.logger.Info("timed-out session stored", "session_id", id, "attempt_id", a.ID, "status", a.Status())
}

func (h *Handler) end(id, outcome string) {
	if h.sessions.remove(id) {
		h.metrics.SessionEnded(outcome)
	}
}

// session looks up the live session named in the path. It writes a 404
// and returns false when there is none.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*liveSession, bool) {
	ls, ok := h.sessions.get(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return ls, true
}
