package question

import "github.com/abhisek/tierwise/internal/skilltag"

// Question is a single assessment item in canonical form.
// Questions are immutable once loaded into a session; the controller works
// on copies.
type Question struct {
	// ID uniquely identifies the question within a test and its banks.
	ID string `json:"id"`

	// Prompt is the question text shown to the student.
	Prompt string `json:"prompt"`

	// Kind decides how the answer is graded.
	Kind Kind `json:"kind"`

	// Skill is the free-text skill tag as authored. Use SkillKey for
	// counting and lookups.
	Skill string `json:"skill"`

	// AnswerKey is the correct option for multiple-choice questions,
	// e.g. "B" or "B) 35". Empty for other kinds.
	AnswerKey string `json:"answerKey,omitempty"`

	// Choices holds the options shown for multiple-choice questions.
	Choices []string `json:"choices,omitempty"`

	// Level marks a reading comprehension question. Empty for
	// non-leveled questions.
	Level Level `json:"level,omitempty"`

	// IsAdaptive is true for reinforcement items spliced in during a session.
	IsAdaptive bool `json:"isAdaptive,omitempty"`
}

// SkillKey returns the normalized skill tag.
func (q Question) SkillKey() string {
	return skilltag.Normalize(q.Skill)
}

// IsMultipleChoice reports whether the question is auto-graded.
func (q Question) IsMultipleChoice() bool {
	return q.Kind == KindMultipleChoice
}

// Kind describes how a question is answered and graded.
type Kind string

const (
	// KindMultipleChoice is graded automatically against AnswerKey.
	KindMultipleChoice Kind = "multiple-choice"

	// KindShortAnswer is graded by the manual grading collaborator.
	KindShortAnswer Kind = "short-answer"

	// KindExtendedResponse is graded by the manual grading collaborator.
	KindExtendedResponse Kind = "extended-response"
)

// Level is a reading comprehension level.
type Level string

const (
	LevelNone        Level = ""
	LevelLiteral     Level = "literal"
	LevelInferential Level = "inferential"
	LevelAnalytical  Level = "analytical"
)

// Levels returns the comprehension levels in diagnosis priority order.
func Levels() []Level {
	return []Level{LevelLiteral, LevelInferential, LevelAnalytical}
}
