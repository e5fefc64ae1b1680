// Package bank serves authored tests and reinforcement items.
//
// It stands in for the question-bank collaborator: tests are looked up by
// name, reinforcement items by normalized skill tag.
package bank

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/skilltag"
)

// ErrTestNotFound is returned when no test has the requested name.
var ErrTestNotFound = errors.New("test not found")

// QuestionSource supplies the ordered question list for a test.
type QuestionSource interface {
	QuestionsForTest(name string) ([]question.Question, error)
}

// ReinforcementSource supplies extra practice items for a skill.
// skill must already be normalized. An empty result is not an error.
type ReinforcementSource interface {
	ReinforcementQuestions(skill string) []question.Question
}

// Bank is an immutable in-memory question bank with precomputed indices.
type Bank struct {
	tests         map[string][]question.Question
	reinforcement map[string][]question.Question
	byID          map[string]question.Question
}

// New validates the given tests and reinforcement items and builds a Bank.
// Reinforcement items are indexed by normalized skill tag in input order.
func New(tests map[string][]question.Question, reinforcement []question.Question) (*Bank, error) {
	if err := validate(tests, reinforcement); err != nil {
		return nil, err
	}

	b := &Bank{
		tests:         make(map[string][]question.Question, len(tests)),
		reinforcement: make(map[string][]question.Question),
		byID:          make(map[string]question.Question),
	}
	for name, qs := range tests {
		b.tests[name] = slices.Clone(qs)
		for _, q := range qs {
			b.byID[q.ID] = q
		}
	}
	for _, q := range reinforcement {
		key := q.SkillKey()
		b.reinforcement[key] = append(b.reinforcement[key], q)
		b.byID[q.ID] = q
	}
	return b, nil
}

// QuestionsForTest returns a copy of the authored question list for a test.
func (b *Bank) QuestionsForTest(name string) ([]question.Question, error) {
	qs, ok := b.tests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTestNotFound, name)
	}
	return slices.Clone(qs), nil
}

// ReinforcementQuestions returns the reinforcement items for a normalized
// skill, in authored order.
func (b *Bank) ReinforcementQuestions(skill string) []question.Question {
	return slices.Clone(b.reinforcement[skilltag.Normalize(skill)])
}

// Question looks up any question in the bank by id.
func (b *Bank) Question(id string) (question.Question, bool) {
	q, ok := b.byID[id]
	return q, ok
}

// TestNames returns all test names in sorted order.
func (b *Bank) TestNames() []string {
	names := make([]string, 0, len(b.tests))
	for n := range b.tests {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Skills returns every normalized skill that has reinforcement items.
func (b *Bank) Skills() []string {
	skills := make([]string, 0, len(b.reinforcement))
	for s := range b.reinforcement {
		skills = append(skills, s)
	}
	sort.Strings(skills)
	return skills
}
