package diagnosis

import (
	"fmt"

	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/thresholds"
)

// Classifier is one rule in the breakdown chain.
// Classify returns ok=false when the rule doesn't apply.
type Classifier interface {
	Name() string
	Classify(in *Input, band thresholds.GradeBand) (cat Category, reason string, ok bool)
}

// DefaultClassifiers returns classifiers in priority order.
// Decoding comes first since decoding trouble explains weak comprehension.
func DefaultClassifiers() []Classifier {
	return []Classifier{
		&DecodingClassifier{},
		&LevelGapClassifier{Level: question.LevelLiteral},
		&LevelGapClassifier{Level: question.LevelInferential},
		&LevelGapClassifier{Level: question.LevelAnalytical},
	}
}

// RunClassifiers executes classifiers in order and returns the first match,
// or CategoryNone.
func RunClassifiers(classifiers []Classifier, in *Input, band thresholds.GradeBand) Result {
	for _, c := range classifiers {
		if cat, reason, ok := c.Classify(in, band); ok {
			return Result{Category: cat, ClassifierName: c.Name(), Reason: reason}
		}
	}
	return Result{Category: CategoryNone, ClassifierName: "none"}
}

// Diagnose runs the default chain. A level with no graded items (Total 0)
// is skipped and never diagnosed as a gap.
func Diagnose(in Input, band thresholds.GradeBand) Result {
	return RunClassifiers(DefaultClassifiers(), &in, band)
}

// DecodingClassifier flags error counts at or above the band's threshold.
type DecodingClassifier struct{}

func (c *DecodingClassifier) Name() string { return "decoding" }

func (c *DecodingClassifier) Classify(in *Input, band thresholds.GradeBand) (Category, string, bool) {
	if in.ErrorCount >= band.DecodingThreshold {
		return CategoryDecoding, fmt.Sprintf("%d reading errors (threshold %d)", in.ErrorCount, band.DecodingThreshold), true
	}
	return "", "", false
}

// LevelGapClassifier flags a comprehension level whose correct count is at
// or below the band's cutoff. Levels with no graded questions are skipped.
type LevelGapClassifier struct {
	Level question.Level
}

func (c *LevelGapClassifier) Name() string { return string(c.Level) + "-gap" }

func (c *LevelGapClassifier) Classify(in *Input, band thresholds.GradeBand) (Category, string, bool) {
	rule, ok := band.Rule(c.Level)
	if !ok {
		return "", "", false
	}
	got := in.Levels.Get(c.Level)
	if got.Total == 0 {
		return "", "", false
	}
	if got.Correct <= rule.Cutoff() {
		return Category(c.Level), fmt.Sprintf("%d of %d %s correct (gap at %d or fewer)",
			got.Correct, got.Total, c.Level, rule.Cutoff()), true
	}
	return "", "", false
}
