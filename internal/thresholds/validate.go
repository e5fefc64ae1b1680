package thresholds

import (
	"fmt"
	"strings"

	"github.com/abhisek/tierwise/internal/question"
	"golang.org/x/mod/semver"
)

// Validate checks the table for structural problems and returns a
// *ValidationError describing all of them, or nil.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if !semver.IsValid(canonicalVersion(c.Version)) {
		add("version %q is not a semantic version", c.Version)
	}

	if !inRange(c.Generic.Tier2Min, 0, 100) || !inRange(c.Generic.Tier1Min, 0, 100) {
		add("generic cutoffs must be within 0-100")
	}
	if c.Generic.Tier2Min > c.Generic.Tier1Min {
		add("generic.tier2_min (%d) exceeds generic.tier1_min (%d)", c.Generic.Tier2Min, c.Generic.Tier1Min)
	}

	if !inRange(c.Mastery.DevelopingMin, 0, 100) || !inRange(c.Mastery.MasteredMin, 0, 100) {
		add("mastery cutoffs must be within 0-100")
	}
	if c.Mastery.DevelopingMin > c.Mastery.MasteredMin {
		add("mastery.developing_min (%d) exceeds mastery.mastered_min (%d)", c.Mastery.DevelopingMin, c.Mastery.MasteredMin)
	}

	if c.Reinforcement.MaxPerSkill < 1 {
		add("reinforcement.max_per_skill must be at least 1, got %d", c.Reinforcement.MaxPerSkill)
	}

	if c.Fluency.Tier1MaxErrors < 0 || c.Fluency.Tier2MaxErrors < c.Fluency.Tier1MaxErrors {
		add("fluency cutoffs must satisfy 0 ≤ tier1_max_errors ≤ tier2_max_errors")
	}

	cp := c.Comprehension
	if cp.Tier2MinPct < 0 || cp.Tier1MinPct > 100 || cp.Tier2MinPct > cp.Tier1MinPct {
		add("comprehension cutoffs must satisfy 0 ≤ tier2_min_pct ≤ tier1_min_pct ≤ 100")
	}

	if len(c.GradeBands) == 0 {
		add("grade_bands is empty")
	}
	for _, name := range c.BandNames() {
		validateBand(name, c.GradeBands[name], add)
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}

func validateBand(name string, b GradeBand, add func(string, ...any)) {
	if strings.TrimSpace(name) == "" {
		add("grade band with empty name")
	}
	if b.DecodingThreshold < 1 {
		add("grade band %q: decoding_threshold must be at least 1", name)
	}
	for _, level := range question.Levels() {
		r, _ := b.Rule(level)
		switch {
		case r.Total < 1:
			add("grade band %q: %s.total must be at least 1", name, level)
		case r.SmallTotal < 0 || r.SmallMaxCorrect < 0 || r.MaxCorrect < 0:
			add("grade band %q: %s rule has negative values", name, level)
		case r.Cutoff() >= r.Total:
			add("grade band %q: %s cutoff %d flags every score out of %d", name, level, r.Cutoff(), r.Total)
		}
	}
}

// canonicalVersion accepts "1.2.0" as shorthand for "v1.2.0".
func canonicalVersion(v string) string {
	if v != "" && !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

// Newer reports whether version a is newer than b.
func Newer(a, b string) bool {
	return semver.Compare(canonicalVersion(a), canonicalVersion(b)) > 0
}

func inRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
