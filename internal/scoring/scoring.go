// Package scoring converts a finalized answer set into correctness counts,
// an overall score and per-skill statistics.
package scoring

import (
	"log/slog"
	"math"
	"sort"

	"github.com/abhisek/tierwise/internal/mastery"
	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/thresholds"
)

// Input is everything scoring needs from a finished session.
type Input struct {
	Questions []question.Question
	Answers   map[string]string

	// Grades holds manual correctness for non-multiple-choice questions.
	Grades map[string]bool
}

// SkillStat is the graded performance on one normalized skill.
type SkillStat struct {
	Skill      string       `json:"skill"`
	Correct    int          `json:"correct"`
	Total      int          `json:"total"`
	Percentage int          `json:"percentage"`
	Band       mastery.Band `json:"band"`
}

// Result is the outcome of grading one answer set.
type Result struct {
	Score        int `json:"score"`
	CorrectCount int `json:"correctCount"`
	GradedTotal  int `json:"gradedTotal"`

	// Pending lists ungraded non-multiple-choice question ids.
	Pending           []string `json:"pending,omitempty"`
	IncompleteGrading bool     `json:"incompleteGrading"`
	NoGradedItems     bool     `json:"noGradedItems"`

	Skills map[string]SkillStat `json:"skillStats"`

	// Outcomes maps every graded question id to its correctness.
	Outcomes map[string]bool `json:"-"`
}

// Percentage returns round(100*correct/total), rounding half away from zero.
// A zero total yields 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// Grade scores in. It never fails: data errors are logged and ignored, and
// pending items are reported in the result.
func Grade(in Input, cutoffs thresholds.MasteryCutoffs, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}

	res := Result{
		Skills:   make(map[string]SkillStat),
		Outcomes: make(map[string]bool),
	}
	known := make(map[string]question.Question, len(in.Questions))
	skills := make(map[string]*SkillStat)

	for _, q := range in.Questions {
		known[q.ID] = q

		correct, graded := outcome(q, in.Answers[q.ID], in.Grades)
		if !graded {
			res.Pending = append(res.Pending, q.ID)
			continue
		}

		res.Outcomes[q.ID] = correct
		res.GradedTotal++
		if correct {
			res.CorrectCount++
		}

		key := q.SkillKey()
		if key == "" {
			continue
		}
		st, ok := skills[key]
		if !ok {
			st = &SkillStat{Skill: key}
			skills[key] = st
		}
		st.Total++
		if correct {
			st.Correct++
		}
	}

	warnOrphans(logger, known, in)

	for key, st := range skills {
		st.Percentage = Percentage(st.Correct, st.Total)
		st.Band = mastery.Classify(float64(st.Percentage), cutoffs)
		res.Skills[key] = *st
	}

	res.IncompleteGrading = len(res.Pending) > 0
	if res.GradedTotal == 0 {
		res.NoGradedItems = true
		return res
	}
	res.Score = Percentage(res.CorrectCount, res.GradedTotal)
	return res
}

// outcome reports whether q is correct and whether it is graded at all.
func outcome(q question.Question, value string, grades map[string]bool) (correct, graded bool) {
	if q.IsMultipleChoice() {
		return question.CheckAnswer(value, q), true
	}
	if g, ok := grades[q.ID]; ok {
		return g, true
	}
	return false, false
}

func warnOrphans(logger *slog.Logger, known map[string]question.Question, in Input) {
	for _, id := range sortedKeys(in.Answers) {
		if _, ok := known[id]; !ok {
			logger.Warn("ignoring answer for question not in sequence", slog.String("question_id", id))
		}
	}
	for _, id := range sortedKeys(in.Grades) {
		q, ok := known[id]
		switch {
		case !ok:
			logger.Warn("ignoring grade for question not in sequence", slog.String("question_id", id))
		case q.IsMultipleChoice():
			logger.Warn("ignoring manual grade for multiple-choice question", slog.String("question_id", id))
		}
	}
}

// SkillList returns the per-skill stats sorted by skill.
func (r Result) SkillList() []SkillStat {
	out := make([]SkillStat, 0, len(r.Skills))
	for _, k := range sortedKeys(r.Skills) {
		out = append(out, r.Skills[k])
	}
	return out
}

// Bands tallies skills per mastery band.
func (r Result) Bands() mastery.Counts {
	var c mastery.Counts
	for _, st := range r.Skills {
		c.Add(st.Band)
	}
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
