package placement

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tierwise/internal/diagnosis"
	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/scoring"
	"github.com/abhisek/tierwise/internal/session"
	"github.com/abhisek/tierwise/internal/thresholds"
	"github.com/abhisek/tierwise/internal/tier"
)

type recorder struct {
	placed    []tier.Tier
	breakdown []diagnosis.Category
}

func (r *recorder) Placed(t tier.Tier, _ bool)     { r.placed = append(r.placed, t) }
func (r *recorder) Breakdown(c diagnosis.Category) { r.breakdown = append(r.breakdown, c) }

// mcSet builds n multiple-choice questions with the first correct answered right.
func mcSet(n, correct int) scoring.Input {
	in := scoring.Input{Answers: map[string]string{}}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("q%02d", i)
		in.Questions = append(in.Questions, question.Question{
			ID: id, Kind: question.KindMultipleChoice, Skill: "Fractions", AnswerKey: "A",
		})
		if i < correct {
			in.Answers[id] = "A"
		} else {
			in.Answers[id] = "B"
		}
	}
	return in
}

func readingSet(levelCorrect map[question.Level][2]int) scoring.Input {
	in := scoring.Input{Answers: map[string]string{}}
	for _, level := range question.Levels() {
		counts := levelCorrect[level]
		for i := 0; i < counts[1]; i++ {
			id := fmt.Sprintf("%s-%d", level, i)
			in.Questions = append(in.Questions, question.Question{
				ID: id, Kind: question.KindMultipleChoice, Skill: "Reading", AnswerKey: "C", Level: level,
			})
			if i < counts[0] {
				in.Answers[id] = "c"
			} else {
				in.Answers[id] = "a"
			}
		}
	}
	return in
}

func TestScore_Scenarios(t *testing.T) {
	e := New(Static(thresholds.Default()))

	tests := []struct {
		name      string
		in        scoring.Input
		wantScore int
		wantTier  tier.Tier
	}{
		{"scenario 1", mcSet(20, 17), 85, tier.Tier1},
		{"scenario 2", mcSet(20, 13), 65, tier.Tier2},
		{"scenario 3", mcSet(20, 8), 40, tier.Tier3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Score(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, res.Score)
			assert.Equal(t, tt.wantTier, res.Tier)
			assert.Equal(t, 20, res.GradedTotal)
			assert.Equal(t, "v1.0.0", res.ThresholdsVersion)
			assert.Nil(t, res.Reading)
		})
	}
}

func TestScore_Idempotent(t *testing.T) {
	e := New(Static(thresholds.Default()))
	in := mcSet(7, 4)
	in.Questions = append(in.Questions, question.Question{ID: "e1", Kind: question.KindExtendedResponse, Skill: "Writing"})

	first, err := e.Score(in)
	require.NoError(t, err)
	second, err := e.Score(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.IncompleteGrading)
	assert.Equal(t, []string{"e1"}, first.Pending)
}

func TestScore_MonotonicTier(t *testing.T) {
	e := New(Static(thresholds.Default()))
	prevScore, prevTier := -1, tier.Tier3
	for correct := 0; correct <= 15; correct++ {
		res, err := e.Score(mcSet(15, correct))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Score, prevScore)
		assert.LessOrEqual(t, res.Tier, prevTier)
		prevScore, prevTier = res.Score, res.Tier
	}
}

func TestScoreReading_Scenario5(t *testing.T) {
	rec := &recorder{}
	e := New(Static(thresholds.Default()), WithObserver(rec))

	in := readingSet(map[question.Level][2]int{
		question.LevelLiteral:     {3, 3},
		question.LevelInferential: {2, 2},
		question.LevelAnalytical:  {1, 1},
	})
	res, err := e.ScoreReading(in, ReadingInput{GradeBand: "1-2", ErrorCount: 9})
	require.NoError(t, err)
	require.NotNil(t, res.Reading)

	assert.Equal(t, 100, res.Score)
	assert.Equal(t, diagnosis.CategoryDecoding, res.Reading.BreakdownCategory)
	assert.Equal(t, tier.Tier3, res.Reading.FluencyTier)
	assert.Equal(t, tier.Tier1, res.Reading.ComprehensionTier)
	assert.Equal(t, tier.Tier3, res.Reading.EffectiveTier)
	assert.Equal(t, diagnosis.LevelResult{Correct: 3, Total: 3}, res.Reading.Levels.Literal)

	assert.Equal(t, []tier.Tier{tier.Tier3}, rec.placed)
	assert.Equal(t, []diagnosis.Category{diagnosis.CategoryDecoding}, rec.breakdown)
}

func TestScoreReading_Scenario4(t *testing.T) {
	e := New(Static(thresholds.Default()))
	in := readingSet(map[question.Level][2]int{
		question.LevelLiteral:     {4, 4},
		question.LevelInferential: {3, 4},
		question.LevelAnalytical:  {1, 2},
	})
	res, err := e.ScoreReading(in, ReadingInput{GradeBand: "5-6", ErrorCount: 5})
	require.NoError(t, err)

	require.NotNil(t, res.Reading.ComprehensionPct)
	assert.InDelta(t, 80.0, *res.Reading.ComprehensionPct, 1e-9)
	assert.Equal(t, tier.Tier2, res.Reading.FluencyTier)
	assert.Equal(t, tier.Tier1, res.Reading.ComprehensionTier)
	assert.Equal(t, tier.Tier2, res.Reading.EffectiveTier)
}

func TestScoreReading_PendingExcludedFromLevels(t *testing.T) {
	e := New(Static(thresholds.Default()))
	in := readingSet(map[question.Level][2]int{question.LevelLiteral: {2, 3}})
	in.Questions = append(in.Questions, question.Question{
		ID: "sa", Kind: question.KindShortAnswer, Skill: "Reading", Level: question.LevelInferential,
	})

	res, err := e.ScoreReading(in, ReadingInput{GradeBand: "1-2"})
	require.NoError(t, err)
	assert.Equal(t, diagnosis.LevelResult{}, res.Reading.Levels.Inferential)
	assert.True(t, res.IncompleteGrading)

	in.Grades = map[string]bool{"sa": false}
	res, err = e.ScoreReading(in, ReadingInput{GradeBand: "1-2"})
	require.NoError(t, err)
	assert.Equal(t, diagnosis.LevelResult{Correct: 0, Total: 1}, res.Reading.Levels.Inferential)
	assert.Equal(t, diagnosis.CategoryInferential, res.Reading.BreakdownCategory)
}

func TestScoreReading_NoLiteralItems(t *testing.T) {
	e := New(Static(thresholds.Default()))
	in := readingSet(map[question.Level][2]int{
		question.LevelInferential: {3, 3},
		question.LevelAnalytical:  {2, 2},
	})

	res, err := e.ScoreReading(in, ReadingInput{GradeBand: "3-4", ErrorCount: 1})
	require.NoError(t, err)
	assert.Equal(t, diagnosis.LevelResult{}, res.Reading.Levels.Literal)
	assert.Equal(t, diagnosis.CategoryNone, res.Reading.BreakdownCategory)
	assert.Equal(t, tier.Tier1, res.Reading.EffectiveTier)
}

func TestScoreReading_UnknownBand(t *testing.T) {
	rec := &recorder{}
	e := New(Static(thresholds.Default()), WithObserver(rec))

	res, err := e.ScoreReading(mcSet(3, 3), ReadingInput{GradeBand: "11-12"})
	assert.Nil(t, res)
	var bandErr *thresholds.ErrUnknownGradeBand
	require.True(t, errors.As(err, &bandErr))
	assert.Equal(t, "11-12", bandErr.Band)
	assert.Empty(t, rec.placed)
}

func TestScoreAwaitingFluency(t *testing.T) {
	rec := &recorder{}
	e := New(Static(thresholds.Default()), WithObserver(rec))
	in := readingSet(map[question.Level][2]int{question.LevelLiteral: {3, 3}})

	res, err := e.ScoreAwaitingFluency(in, "1-2")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.True(t, res.AwaitingFluency)
	assert.True(t, res.IncompleteGrading)
	assert.Nil(t, res.Reading)
	assert.Empty(t, rec.placed, "a placement waiting on fluency is not announced")

	_, err = e.ScoreAwaitingFluency(in, "11-12")
	var bandErr *thresholds.ErrUnknownGradeBand
	assert.ErrorAs(t, err, &bandErr)
}

func TestReading_Stateless(t *testing.T) {
	e := New(Static(thresholds.Default()))
	levels := diagnosis.Levels{
		Literal:     diagnosis.LevelResult{Correct: 1, Total: 3},
		Inferential: diagnosis.LevelResult{Correct: 2, Total: 2},
	}
	res, err := e.Reading(ReadingInput{GradeBand: "1-2", ErrorCount: 2}, levels)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.CategoryLiteral, res.BreakdownCategory)
	assert.Equal(t, tier.Tier1, res.FluencyTier)
	// 3 of 5 = 60%.
	assert.Equal(t, tier.Tier2, res.ComprehensionTier)
	assert.Equal(t, tier.Tier2, res.EffectiveTier)

	_, err = e.Reading(ReadingInput{GradeBand: "1-2"}, diagnosis.Levels{Literal: diagnosis.LevelResult{Correct: 4, Total: 3}})
	assert.Error(t, err)
}

func TestEngine_NoConfig(t *testing.T) {
	e := New(nil)
	_, err := e.Score(mcSet(1, 1))
	assert.ErrorIs(t, err, ErrNoThresholds)

	e = New(thresholds.NewHolder(nil))
	_, err = e.Reading(ReadingInput{GradeBand: "1-2"}, diagnosis.Levels{})
	assert.ErrorIs(t, err, ErrNoThresholds)
}

func TestEngine_FollowsHolderSwap(t *testing.T) {
	h := thresholds.NewHolder(thresholds.Default())
	e := New(h)

	res, err := e.Score(mcSet(10, 7))
	require.NoError(t, err)
	assert.Equal(t, tier.Tier2, res.Tier)

	next := thresholds.Default()
	next.Version = "v1.1.0"
	next.Generic.Tier1Min = 70
	h.Swap(next)

	res, err = e.Score(mcSet(10, 7))
	require.NoError(t, err)
	assert.Equal(t, tier.Tier1, res.Tier)
	assert.Equal(t, "v1.1.0", res.ThresholdsVersion)
}

func TestInput_FromSubmission(t *testing.T) {
	sub := &session.Submission{
		Questions: []question.Question{{ID: "q1", Kind: question.KindMultipleChoice, AnswerKey: "A", Skill: "x"}},
		Answers:   session.AnswerSet{"q1": "A"},
	}
	in := Input(sub, map[string]bool{"e": true})
	assert.Len(t, in.Questions, 1)
	assert.Equal(t, "A", in.Answers["q1"])
	assert.True(t, in.Grades["e"])
}
