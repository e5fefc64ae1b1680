// Package thresholds holds the versioned cutoff table that drives scoring,
// tiering, reinforcement and breakdown diagnosis.
//
// Every numeric threshold the engine uses lives here so a threshold change
// is a reviewed configuration change, not a code change.
package thresholds

import (
	"fmt"
	"sort"

	"github.com/abhisek/tierwise/internal/question"
)

// Config is one version of the threshold table.
type Config struct {
	// Version is a semantic version ("v1.2.0") recorded with every result.
	Version string `yaml:"version"`

	Generic       ScoreCutoffs         `yaml:"generic"`
	Mastery       MasteryCutoffs       `yaml:"mastery"`
	Reinforcement ReinforcementConfig  `yaml:"reinforcement"`
	Fluency       FluencyCutoffs       `yaml:"fluency"`
	Comprehension ComprehensionCutoffs `yaml:"comprehension"`

	// GradeBands maps a grade band ("1-2", "3-4", ...) to its reading rules.
	GradeBands map[string]GradeBand `yaml:"grade_bands"`
}

// ScoreCutoffs maps an overall score to a tier.
// score ≥ Tier1Min → Tier 1; score ≥ Tier2Min → Tier 2; else Tier 3.
type ScoreCutoffs struct {
	Tier1Min int `yaml:"tier1_min"`
	Tier2Min int `yaml:"tier2_min"`
}

// MasteryCutoffs maps a per-skill percentage to a mastery band.
type MasteryCutoffs struct {
	MasteredMin   int `yaml:"mastered_min"`
	DevelopingMin int `yaml:"developing_min"`
}

// ReinforcementConfig bounds live reinforcement insertion.
type ReinforcementConfig struct {
	MaxPerSkill int `yaml:"max_per_skill"`
}

// FluencyCutoffs maps an oral-reading error count to a tier.
// errors ≤ Tier1MaxErrors → Tier 1; errors ≤ Tier2MaxErrors → Tier 2; else Tier 3.
type FluencyCutoffs struct {
	Tier1MaxErrors int `yaml:"tier1_max_errors"`
	Tier2MaxErrors int `yaml:"tier2_max_errors"`
}

// ComprehensionCutoffs maps a comprehension percentage to a tier.
type ComprehensionCutoffs struct {
	Tier1MinPct float64 `yaml:"tier1_min_pct"`
	Tier2MinPct float64 `yaml:"tier2_min_pct"`
}

// GradeBand holds the breakdown rules for one grade band.
type GradeBand struct {
	// DecodingThreshold is the oral-reading error count at or above which
	// the breakdown is diagnosed as decoding.
	DecodingThreshold int `yaml:"decoding_threshold"`

	Literal     LevelRule `yaml:"literal"`
	Inferential LevelRule `yaml:"inferential"`
	Analytical  LevelRule `yaml:"analytical"`
}

// Rule returns the rule for a comprehension level.
func (b GradeBand) Rule(level question.Level) (LevelRule, bool) {
	switch level {
	case question.LevelLiteral:
		return b.Literal, true
	case question.LevelInferential:
		return b.Inferential, true
	case question.LevelAnalytical:
		return b.Analytical, true
	}
	return LevelRule{}, false
}

// LevelRule decides when a comprehension level counts as a gap.
// A level is a gap when correct ≤ Cutoff().
type LevelRule struct {
	// Total is the number of questions at this level for the band.
	Total int `yaml:"total"`

	// SmallTotal is the largest Total that uses SmallMaxCorrect.
	SmallTotal int `yaml:"small_total"`

	SmallMaxCorrect int `yaml:"small_max_correct"`
	MaxCorrect      int `yaml:"max_correct"`
}

// Cutoff returns the highest correct count that still counts as a gap.
func (r LevelRule) Cutoff() int {
	if r.Total <= r.SmallTotal {
		return r.SmallMaxCorrect
	}
	return r.MaxCorrect
}

// Band returns the rules for a grade band. Unknown bands are an error:
// guessing a default would silently change a student's placement.
func (c *Config) Band(name string) (GradeBand, error) {
	b, ok := c.GradeBands[name]
	if !ok {
		return GradeBand{}, &ErrUnknownGradeBand{Band: name, Version: c.Version}
	}
	return b, nil
}

// BandNames returns the configured grade bands in sorted order.
func (c *Config) BandNames() []string {
	names := make([]string, 0, len(c.GradeBands))
	for n := range c.GradeBands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// String identifies the config in log lines.
func (c *Config) String() string {
	return fmt.Sprintf("thresholds %s (%d grade bands)", c.Version, len(c.GradeBands))
}

// Default returns the built-in threshold table.
func Default() *Config {
	return &Config{
		Version:       "v1.0.0",
		Generic:       ScoreCutoffs{Tier1Min: 80, Tier2Min: 50},
		Mastery:       MasteryCutoffs{MasteredMin: 80, DevelopingMin: 50},
		Reinforcement: ReinforcementConfig{MaxPerSkill: 3},
		Fluency:       FluencyCutoffs{Tier1MaxErrors: 3, Tier2MaxErrors: 7},
		Comprehension: ComprehensionCutoffs{Tier1MinPct: 70, Tier2MinPct: 50},
		GradeBands:    DefaultGradeBands(),
	}
}

// DefaultGradeBands returns the built-in grade band table.
// Band "1-2" flags a literal gap at ≤1 correct and an inferential or
// analytical gap only at zero correct. Older bands loosen the literal,
// inferential and analytical cutoffs by one once the level has more than
// 3, 2 and 1 questions respectively.
func DefaultGradeBands() map[string]GradeBand {
	early := GradeBand{
		DecodingThreshold: 8,
		Literal:           LevelRule{Total: 3, SmallTotal: 3, SmallMaxCorrect: 1, MaxCorrect: 1},
		Inferential:       LevelRule{Total: 2, SmallTotal: 2, SmallMaxCorrect: 0, MaxCorrect: 0},
		Analytical:        LevelRule{Total: 1, SmallTotal: 1, SmallMaxCorrect: 0, MaxCorrect: 0},
	}
	return map[string]GradeBand{
		"1-2": early,
		"3-4": laterBand(8, 3, 3, 2),
		"5-6": laterBand(16, 4, 3, 2),
		"7-8": laterBand(16, 4, 4, 3),
	}
}

func laterBand(decoding, literal, inferential, analytical int) GradeBand {
	return GradeBand{
		DecodingThreshold: decoding,
		Literal:           LevelRule{Total: literal, SmallTotal: 3, SmallMaxCorrect: 1, MaxCorrect: 2},
		Inferential:       LevelRule{Total: inferential, SmallTotal: 2, SmallMaxCorrect: 0, MaxCorrect: 1},
		Analytical:        LevelRule{Total: analytical, SmallTotal: 1, SmallMaxCorrect: 0, MaxCorrect: 1},
	}
}
