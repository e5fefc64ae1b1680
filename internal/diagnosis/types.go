// Package diagnosis identifies the earliest breakdown point in a reading
// assessment.
package diagnosis

import (
	"github.com/abhisek/tierwise/internal/question"
)

// Category is a reading breakdown point.
type Category string

const (
	CategoryDecoding    Category = "decoding"
	CategoryLiteral     Category = "literal"
	CategoryInferential Category = "inferential"
	CategoryAnalytical  Category = "analytical"
	CategoryNone        Category = "none"
)

// Categories returns every category in diagnosis priority order.
func Categories() []Category {
	return []Category{CategoryDecoding, CategoryLiteral, CategoryInferential, CategoryAnalytical, CategoryNone}
}

// LevelResult counts graded outcomes at one comprehension level.
type LevelResult struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Levels holds the result for each comprehension level.
type Levels struct {
	Literal     LevelResult `json:"literal"`
	Inferential LevelResult `json:"inferential"`
	Analytical  LevelResult `json:"analytical"`
}

// Get returns the result for a level. Unknown levels return a zero result.
func (l Levels) Get(level question.Level) LevelResult {
	switch level {
	case question.LevelLiteral:
		return l.Literal
	case question.LevelInferential:
		return l.Inferential
	case question.LevelAnalytical:
		return l.Analytical
	}
	return LevelResult{}
}

func (l *Levels) add(level question.Level, correct bool) {
	var r *LevelResult
	switch level {
	case question.LevelLiteral:
		r = &l.Literal
	case question.LevelInferential:
		r = &l.Inferential
	case question.LevelAnalytical:
		r = &l.Analytical
	default:
		return
	}
	r.Total++
	if correct {
		r.Correct++
	}
}

// Comprehension sums every level.
func (l Levels) Comprehension() (correct, total int) {
	for _, r := range []LevelResult{l.Literal, l.Inferential, l.Analytical} {
		correct += r.Correct
		total += r.Total
	}
	return correct, total
}

// Tally derives level results from graded outcomes. Questions without a
// level, and questions absent from outcomes (pending), are skipped.
func Tally(questions []question.Question, outcomes map[string]bool) Levels {
	var l Levels
	for _, q := range questions {
		correct, graded := outcomes[q.ID]
		if !graded || q.Level == question.LevelNone {
			continue
		}
		l.add(q.Level, correct)
	}
	return l
}

// Input is the evidence for one reading diagnosis.
type Input struct {
	ErrorCount int    `json:"errorCount"`
	Levels     Levels `json:"levels"`
}

// Result is the outcome of a diagnosis.
type Result struct {
	Category       Category `json:"category"`
	ClassifierName string   `json:"classifier"`
	Reason         string   `json:"reason,omitempty"`
}
