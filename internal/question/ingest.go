package question

import (
	"errors"
	"fmt"
	"strings"
)

// Raw is the loosely-shaped question record accepted at ingestion.
// Question sources disagree on field names (correct_answer vs correctAnswer,
// type vs kind, skill vs topic); Canonical folds them into one Question so
// nothing downstream sees the alternatives.
type Raw struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	Question string   `json:"question"`
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Kind     string   `json:"kind"`
	Skill    string   `json:"skill"`
	SkillTag string   `json:"skill_tag"`
	Topic    string   `json:"topic"`
	Level    string   `json:"level"`
	Options  []string `json:"options"`
	Choices  []string `json:"choices"`

	CorrectAnswer      string `json:"correct_answer"`
	CorrectAnswerCamel string `json:"correctAnswer"`
	AnswerKey          string `json:"answer_key"`

	IsAdaptive bool `json:"isAdaptive"`
}

// Canonical converts a Raw record into a Question, rejecting records that
// cannot be graded.
func (r Raw) Canonical() (Question, error) {
	q := Question{
		ID:         strings.TrimSpace(r.ID),
		Prompt:     firstNonEmpty(r.Prompt, r.Question, r.Text),
		Skill:      strings.TrimSpace(firstNonEmpty(r.Skill, r.SkillTag, r.Topic)),
		AnswerKey:  strings.TrimSpace(firstNonEmpty(r.AnswerKey, r.CorrectAnswer, r.CorrectAnswerCamel)),
		Choices:    r.Choices,
		IsAdaptive: r.IsAdaptive,
	}
	if len(q.Choices) == 0 {
		q.Choices = r.Options
	}
	if q.ID == "" {
		return Question{}, errors.New("question id is required")
	}

	kind, err := ParseKind(firstNonEmpty(r.Kind, r.Type))
	if err != nil {
		return Question{}, fmt.Errorf("question %q: %w", q.ID, err)
	}
	q.Kind = kind

	level, err := ParseLevel(r.Level)
	if err != nil {
		return Question{}, fmt.Errorf("question %q: %w", q.ID, err)
	}
	q.Level = level

	if q.Kind == KindMultipleChoice && q.AnswerKey == "" {
		return Question{}, fmt.Errorf("question %q: multiple-choice question has no answer key", q.ID)
	}
	if q.Kind != KindMultipleChoice {
		q.AnswerKey = ""
	}
	return q, nil
}

// ParseKind accepts the kind spellings seen in question sources.
// An empty kind defaults to multiple-choice.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "multiple-choice", "multiple_choice", "multiplechoice", "mcq", "mc":
		return KindMultipleChoice, nil
	case "short-answer", "short_answer", "shortanswer", "short":
		return KindShortAnswer, nil
	case "extended-response", "extended_response", "extendedresponse", "extended", "essay":
		return KindExtendedResponse, nil
	default:
		return "", fmt.Errorf("unknown question kind %q", s)
	}
}

// ParseLevel parses a comprehension level. Empty means not leveled.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelNone:
		return LevelNone, nil
	case LevelLiteral:
		return LevelLiteral, nil
	case LevelInferential:
		return LevelInferential, nil
	case LevelAnalytical:
		return LevelAnalytical, nil
	default:
		return "", fmt.Errorf("unknown comprehension level %q", s)
	}
}

// CanonicalAll converts a list of Raw records, stopping at the first error.
func CanonicalAll(raws []Raw) ([]Question, error) {
	out := make([]Question, 0, len(raws))
	for i, r := range raws {
		q, err := r.Canonical()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
