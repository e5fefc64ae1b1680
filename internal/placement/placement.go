// Package placement composes scoring, tiering and breakdown diagnosis over
// one threshold table.
package placement

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/tierwise/internal/diagnosis"
	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/scoring"
	"github.com/abhisek/tierwise/internal/session"
	"github.com/abhisek/tierwise/internal/thresholds"
	"github.com/abhisek/tierwise/internal/tier"
)

var (
	// ErrNoThresholds is returned when the engine has no threshold table.
	ErrNoThresholds = errors.New("no threshold configuration loaded")

	// ErrInvalidLevels is returned for level counts that cannot be tiered.
	ErrInvalidLevels = errors.New("invalid level results")
)

// ConfigSource supplies the active threshold table.
// *thresholds.Holder satisfies it.
type ConfigSource interface {
	Current() *thresholds.Config
}

// Static wraps a fixed config as a ConfigSource.
func Static(cfg *thresholds.Config) ConfigSource { return static{cfg} }

type static struct{ cfg *thresholds.Config }

func (s static) Current() *thresholds.Config { return s.cfg }

// Observer is notified of every placement, e.g. for metrics.
type Observer interface {
	Placed(t tier.Tier, reading bool)
	Breakdown(cat diagnosis.Category)
}

// Result is the generic placement output.
type Result struct {
	Score        int       `json:"score"`
	Tier         tier.Tier `json:"tier"`
	CorrectCount int       `json:"correctCount"`
	GradedTotal  int       `json:"gradedTotal"`

	SkillStats map[string]scoring.SkillStat `json:"skillStats"`

	Pending           []string `json:"pending,omitempty"`
	IncompleteGrading bool     `json:"incompleteGrading"`
	NoGradedItems     bool     `json:"noGradedItems"`

	// AwaitingFluency marks a reading attempt scored before its oral
	// reading error count was known. Reading is nil until it is.
	AwaitingFluency bool `json:"awaitingFluency,omitempty"`

	ThresholdsVersion string `json:"thresholdsVersion"`

	Reading *ReadingResult `json:"reading,omitempty"`
}

// ReadingInput carries the reading-specific signals that do not come from
// the answer set.
type ReadingInput struct {
	GradeBand  string `json:"gradeBand"`
	ErrorCount int    `json:"errorCount"`
}

// ReadingResult is the reading-specific placement output.
type ReadingResult struct {
	GradeBand         string             `json:"gradeBand"`
	ErrorCount        int                `json:"errorCount"`
	Levels            diagnosis.Levels   `json:"levels"`
	BreakdownCategory diagnosis.Category `json:"breakdownCategory"`
	BreakdownReason   string             `json:"breakdownReason,omitempty"`
	FluencyTier       tier.Tier          `json:"fluencyTier"`
	ComprehensionTier tier.Tier          `json:"comprehensionTier"`
	EffectiveTier     tier.Tier          `json:"effectiveTier"`
	ComprehensionPct  *float64           `json:"comprehensionPct,omitempty"`
	ThresholdsVersion string             `json:"thresholdsVersion"`
}

// Engine scores finalized answer sets. It holds no per-attempt state, so
// the same inputs always produce the same result.
type Engine struct {
	source   ConfigSource
	observer Observer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver reports placements to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger used for data errors.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine reading thresholds from source.
func New(source ConfigSource, opts ...Option) *Engine {
	e := &Engine{source: source, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input builds a scoring input from a finalized submission and manual grades.
func Input(sub *session.Submission, grades map[string]bool) scoring.Input {
	return scoring.Input{
		Questions: sub.Questions,
		Answers:   sub.Answers,
		Grades:    grades,
	}
}

func (e *Engine) config() (*thresholds.Config, error) {
	if e.source == nil {
		return nil, ErrNoThresholds
	}
	cfg := e.source.Current()
	if cfg == nil {
		return nil, ErrNoThresholds
	}
	return cfg, nil
}

// Score runs generic scoring and score tiering.
func (e *Engine) Score(in scoring.Input) (*Result, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	res, _ := e.score(in, cfg)
	if e.observer != nil {
		e.observer.Placed(res.Tier, false)
	}
	return res, nil
}

// ScoreReading runs generic scoring plus dual-axis tiering and breakdown
// diagnosis. Level results come from leveled questions in the graded set.
// An unknown grade band fails before any result is built.
func (e *Engine) ScoreReading(in scoring.Input, r ReadingInput) (*Result, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	band, err := cfg.Band(r.GradeBand)
	if err != nil {
		return nil, err
	}

	res, graded := e.score(in, cfg)
	levels := diagnosis.Tally(in.Questions, graded.Outcomes)
	res.Reading = reading(r, band, levels, cfg)

	if e.observer != nil {
		e.observer.Placed(res.Reading.EffectiveTier, true)
		e.observer.Breakdown(res.Reading.BreakdownCategory)
	}
	return res, nil
}

// ScoreAwaitingFluency scores a reading attempt whose oral reading error
// count is not known yet. The band is still checked. Only the generic
// placement is built and the result stays incomplete.
func (e *Engine) ScoreAwaitingFluency(in scoring.Input, gradeBand string) (*Result, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if _, err := cfg.Band(gradeBand); err != nil {
		return nil, err
	}
	res, _ := e.score(in, cfg)
	res.AwaitingFluency = true
	res.IncompleteGrading = true
	return res, nil
}

// Reading tiers externally counted comprehension results.
func (e *Engine) Reading(r ReadingInput, levels diagnosis.Levels) (*ReadingResult, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	band, err := cfg.Band(r.GradeBand)
	if err != nil {
		return nil, err
	}
	if err := checkLevels(levels); err != nil {
		return nil, err
	}
	res := reading(r, band, levels, cfg)
	if e.observer != nil {
		e.observer.Placed(res.EffectiveTier, true)
		e.observer.Breakdown(res.BreakdownCategory)
	}
	return res, nil
}

func (e *Engine) score(in scoring.Input, cfg *thresholds.Config) (*Result, scoring.Result) {
	g := scoring.Grade(in, cfg.Mastery, e.logger)
	return &Result{
		Score:             g.Score,
		Tier:              tier.FromScore(g.Score, cfg.Generic),
		CorrectCount:      g.CorrectCount,
		GradedTotal:       g.GradedTotal,
		SkillStats:        g.Skills,
		Pending:           g.Pending,
		IncompleteGrading: g.IncompleteGrading,
		NoGradedItems:     g.NoGradedItems,
		ThresholdsVersion: cfg.Version,
	}, g
}

func reading(r ReadingInput, band thresholds.GradeBand, levels diagnosis.Levels, cfg *thresholds.Config) *ReadingResult {
	correct, total := levels.Comprehension()
	axes := tier.DualAxis(r.ErrorCount, correct, total, cfg)
	diag := diagnosis.Diagnose(diagnosis.Input{ErrorCount: r.ErrorCount, Levels: levels}, band)

	return &ReadingResult{
		GradeBand:         r.GradeBand,
		ErrorCount:        r.ErrorCount,
		Levels:            levels,
		BreakdownCategory: diag.Category,
		BreakdownReason:   diag.Reason,
		FluencyTier:       axes.FluencyTier,
		ComprehensionTier: axes.ComprehensionTier,
		EffectiveTier:     axes.EffectiveTier,
		ComprehensionPct:  axes.ComprehensionPct,
		ThresholdsVersion: cfg.Version,
	}
}

func checkLevels(l diagnosis.Levels) error {
	for _, level := range question.Levels() {
		r := l.Get(level)
		if r.Correct < 0 || r.Total < 0 || r.Correct > r.Total {
			return fmt.Errorf("%w: %s %d/%d", ErrInvalidLevels, level, r.Correct, r.Total)
		}
	}
	return nil
}
