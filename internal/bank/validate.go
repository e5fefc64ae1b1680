package bank

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/tierwise/internal/question"
)

// validate performs structural checks on a bank and returns one error
// describing every problem found, or nil.
func validate(tests map[string][]question.Question, reinforcement []question.Question) error {
	var errs []string

	names := make([]string, 0, len(tests))
	for n := range tests {
		names = append(names, n)
	}
	sort.Strings(names)

	testIDs := make(map[string]string)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, "test with empty name")
		}
		if len(tests[name]) == 0 {
			errs = append(errs, fmt.Sprintf("test %q has no questions", name))
		}
		seen := make(map[string]bool)
		for _, q := range tests[name] {
			if seen[q.ID] {
				errs = append(errs, fmt.Sprintf("test %q: duplicate question ID %q", name, q.ID))
			}
			seen[q.ID] = true
			testIDs[q.ID] = name
		}
	}

	seen := make(map[string]bool)
	for _, q := range reinforcement {
		if seen[q.ID] {
			errs = append(errs, fmt.Sprintf("duplicate reinforcement ID %q", q.ID))
		}
		seen[q.ID] = true
		if owner, ok := testIDs[q.ID]; ok {
			errs = append(errs, fmt.Sprintf("reinforcement ID %q collides with a question in test %q", q.ID, owner))
		}
		if q.SkillKey() == "" {
			errs = append(errs, fmt.Sprintf("reinforcement %q has no skill tag", q.ID))
		}
	}

	if len(errs) > 0 {
		return errors.New("invalid question bank:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
