package session

import (
	"log/slog"
	"time"

	"github.com/abhisek/tierwise/internal/bank"
	"github.com/abhisek/tierwise/internal/question"
)

// DefaultMaxReinforcementPerSkill caps live insertions per skill when the
// caller does not configure one.
const DefaultMaxReinforcementPerSkill = 3

// Phase represents the lifecycle phase of a session.
type Phase int

const (
	PhaseActive    Phase = iota // Accepting answers and navigation
	PhaseFinalized              // Submitted; state is frozen
	PhaseAbandoned              // Discarded; nothing is produced
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseFinalized:
		return "finalized"
	case PhaseAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// AnswerSet maps question id to the submitted value. Empty means unanswered.
type AnswerSet map[string]string

// Clone returns an independent copy.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// SkillCounter tracks live performance on one normalized skill.
// Counters are created on the first evaluated multiple-choice answer for the
// skill and are never decremented.
type SkillCounter struct {
	Skill     string `json:"skill"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
	Injected  int    `json:"reinforcementInjected"`
}

// Observer receives reinforcement decisions, e.g. for metrics.
type Observer interface {
	ReinforcementInjected(skill string)
	ReinforcementUnavailable(skill string, capped bool)
}

// Options configures a new Session.
type Options struct {
	// ID identifies the session. A UUID is generated when empty.
	ID string

	// TestName and GradeBand are carried through to the submission.
	TestName  string
	GradeBand string

	// Reinforcement supplies extra practice items. Nil disables insertion.
	Reinforcement bank.ReinforcementSource

	// MaxPerSkill caps reinforcement insertions per skill.
	// Zero means DefaultMaxReinforcementPerSkill.
	MaxPerSkill int

	// TimeLimit sets Deadline relative to the start time. Zero means none.
	TimeLimit time.Duration

	Observer Observer
	Logger   *slog.Logger

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Session is the session-scoped state of one student taking one test.
//
// A Session is driven by discrete student actions and is not safe for
// concurrent use; callers that share one across goroutines must serialize
// access.
type Session struct {
	ID        string
	TestName  string
	GradeBand string
	StartedAt time.Time

	// Deadline is the wall-clock submission limit (zero = none).
	Deadline time.Time

	sequence  []question.Question
	present   map[string]bool
	answers   AnswerSet
	counters  map[string]*SkillCounter
	used      map[string]bool
	evaluated map[string]bool
	phase     Phase

	reinforcement bank.ReinforcementSource
	maxPerSkill   int
	observer      Observer
	logger        *slog.Logger
	now           func() time.Time
}

// Step is the outcome of advancing past a question.
type Step struct {
	// Next is the index the student lands on.
	Next int `json:"next"`

	// Done is true when Next is past the end of the sequence.
	Done bool `json:"done"`

	// Injected is the reinforcement question spliced in at Next, if any.
	Injected *question.Question `json:"injected,omitempty"`

	// Advisory is a transient message for the student when an item was injected.
	Advisory string `json:"advisory,omitempty"`
}

// Submission is the frozen result of a finalized session.
type Submission struct {
	SessionID   string              `json:"sessionId"`
	TestName    string              `json:"testName"`
	GradeBand   string              `json:"gradeBand,omitempty"`
	Questions   []question.Question `json:"questions"`
	Answers     AnswerSet           `json:"answers"`
	Skills      []SkillCounter      `json:"skills"`
	StartedAt   time.Time           `json:"startedAt"`
	SubmittedAt time.Time           `json:"submittedAt"`
	Reason      SubmitReason        `json:"reason"`
}

// SubmitReason records why a session was finalized.
type SubmitReason string

const (
	SubmitManual  SubmitReason = "manual"
	SubmitTimeout SubmitReason = "timeout"
)
