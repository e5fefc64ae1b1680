package thresholds

import (
	"fmt"
	"strings"
)

// ErrUnknownGradeBand is returned when no rules exist for a grade band.
// Assessments in that band cannot be tiered until the table is fixed.
type ErrUnknownGradeBand struct {
	Band    string
	Version string
}

func (e *ErrUnknownGradeBand) Error() string {
	return fmt.Sprintf("no thresholds for grade band %q in %s", e.Band, e.Version)
}

// ValidationError lists every problem found in a threshold table.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid thresholds: " + strings.Join(e.Problems, "; ")
}
