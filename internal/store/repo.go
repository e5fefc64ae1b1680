package store

import (
	"context"
	"time"

	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/session"
)

// Attempt is one finalized session and its latest placement.
type Attempt struct {
	ID         string
	Sequence   int64
	Submission *session.Submission

	// Reading is set for reading assessments.
	Reading *placement.ReadingInput

	// FluencyPending marks a reading attempt stored before its oral
	// reading error count was known. Reading.ErrorCount is meaningless
	// until it is recorded.
	FluencyPending bool

	// Result is the latest placement, nil until scored.
	Result *placement.Result

	// ScoreError says why the attempt could not be tiered, e.g. its grade
	// band is missing from the active thresholds. Empty once tiered.
	ScoreError string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attempt statuses, as shown to reviewers.
const (
	StatusUntiered        = "untiered"
	StatusAwaitingFluency = "awaiting-fluency"
	StatusAwaitingGrades  = "awaiting-grades"
	StatusFinal           = "final"
)

// Status summarizes how far the attempt is from a final placement.
func (a *Attempt) Status() string {
	switch {
	case a.Result == nil || a.ScoreError != "":
		return StatusUntiered
	case a.FluencyPending:
		return StatusAwaitingFluency
	case a.Result.IncompleteGrading:
		return StatusAwaitingGrades
	default:
		return StatusFinal
	}
}

// AttemptRepo persists attempts.
type AttemptRepo interface {
	// Save inserts a new attempt. ID and Submission are required.
	Save(ctx context.Context, a *Attempt) error

	// Get returns the attempt or ErrNotFound.
	Get(ctx context.Context, id string) (*Attempt, error)

	// UpdateResult replaces the stored placement for an attempt and clears
	// its score error.
	UpdateResult(ctx context.Context, id string, res *placement.Result) error

	// SetScoreError records why an attempt could not be tiered. The last
	// stored placement, if any, is kept.
	SetScoreError(ctx context.Context, id, msg string) error

	// SetErrorCount records the oral reading error count of a reading
	// attempt and clears FluencyPending.
	SetErrorCount(ctx context.Context, id string, n int) error

	// ListIncomplete returns attempts whose latest result still has
	// pending grades, oldest first.
	ListIncomplete(ctx context.Context, limit int) ([]*Attempt, error)

	// ListUntiered returns attempts with a score error, oldest first.
	ListUntiered(ctx context.Context, limit int) ([]*Attempt, error)
}

// Grade sources.
const (
	SourceManual = "manual"
	SourceLLM    = "llm"
)

// Grade is one correctness judgement for a non-multiple-choice question.
type Grade struct {
	AttemptID  string
	QuestionID string
	Correct    bool
	Source     string
	Rationale  string
	Sequence   int64
	CreatedAt  time.Time
}

// GradeRepo persists grades. Grades are append-only.
type GradeRepo interface {
	Save(ctx context.Context, g *Grade) error

	// List returns every grade for an attempt in sequence order.
	List(ctx context.Context, attemptID string) ([]Grade, error)

	// ForAttempt resolves the effective grade per question: a manual grade
	// beats an LLM grade, and within a source the latest wins.
	ForAttempt(ctx context.Context, attemptID string) (map[string]bool, error)
}

// LLMRequestEventData captures one LLM API call.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	AttemptID    string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMUsage aggregates recorded LLM calls.
type LLMUsage struct {
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append access to audit events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// LLMUsage sums recorded calls, optionally for one attempt ("" = all).
	LLMUsage(ctx context.Context, attemptID string) (LLMUsage, error)
}
