package thresholds

import (
	"errors"
	"testing"

	"github.com/abhisek/tierwise/internal/question"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDefault_CoreConstants(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3, cfg.Reinforcement.MaxPerSkill)
	assert.Equal(t, ScoreCutoffs{Tier1Min: 80, Tier2Min: 50}, cfg.Generic)
	assert.Equal(t, FluencyCutoffs{Tier1MaxErrors: 3, Tier2MaxErrors: 7}, cfg.Fluency)
	assert.Equal(t, 70.0, cfg.Comprehension.Tier1MinPct)
	assert.Equal(t, 50.0, cfg.Comprehension.Tier2MinPct)
}

func TestDefault_DecodingThresholds(t *testing.T) {
	cfg := Default()
	want := map[string]int{"1-2": 8, "3-4": 8, "5-6": 16, "7-8": 16}
	for band, threshold := range want {
		b, err := cfg.Band(band)
		require.NoError(t, err)
		assert.Equal(t, threshold, b.DecodingThreshold, band)
	}
}

func TestDefault_LevelCutoffs(t *testing.T) {
	cfg := Default()
	tests := []struct {
		band  string
		level question.Level
		want  int
	}{
		{"1-2", question.LevelLiteral, 1},
		{"1-2", question.LevelInferential, 0},
		{"1-2", question.LevelAnalytical, 0},
		{"3-4", question.LevelLiteral, 1},     // total 3 → small
		{"3-4", question.LevelInferential, 1}, // total 3 > 2
		{"3-4", question.LevelAnalytical, 1},  // total 2 > 1
		{"5-6", question.LevelLiteral, 2},     // total 4 > 3
	}
	for _, tt := range tests {
		b, err := cfg.Band(tt.band)
		require.NoError(t, err)
		r, ok := b.Rule(tt.level)
		require.True(t, ok)
		assert.Equal(t, tt.want, r.Cutoff(), "%s %s", tt.band, tt.level)
	}
}

func TestLevelRule_Cutoff(t *testing.T) {
	r := LevelRule{Total: 1, SmallTotal: 1, SmallMaxCorrect: 0, MaxCorrect: 1}
	assert.Equal(t, 0, r.Cutoff())
	r.Total = 2
	assert.Equal(t, 1, r.Cutoff())
}

func TestBand_Unknown(t *testing.T) {
	_, err := Default().Band("K")
	require.Error(t, err)

	var unknown *ErrUnknownGradeBand
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "K", unknown.Band)
	assert.Equal(t, "v1.0.0", unknown.Version)
}

func TestBandNames_Sorted(t *testing.T) {
	assert.Equal(t, []string{"1-2", "3-4", "5-6", "7-8"}, Default().BandNames())
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Version = "latest"
	cfg.Generic = ScoreCutoffs{Tier1Min: 40, Tier2Min: 60}
	cfg.Reinforcement.MaxPerSkill = 0
	cfg.GradeBands["3-4"] = GradeBand{DecodingThreshold: 0, Literal: LevelRule{Total: 1, SmallTotal: 3, SmallMaxCorrect: 1}}

	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	joined := verr.Error()
	assert.Contains(t, joined, "not a semantic version")
	assert.Contains(t, joined, "tier2_min")
	assert.Contains(t, joined, "max_per_skill")
	assert.Contains(t, joined, `grade band "3-4": decoding_threshold`)
	assert.Contains(t, joined, `grade band "3-4": literal cutoff 1 flags every score out of 1`)
}

func TestValidate_EmptyBands(t *testing.T) {
	cfg := Default()
	cfg.GradeBands = nil
	assert.Error(t, cfg.Validate())
}

func TestNewer(t *testing.T) {
	assert.True(t, Newer("v1.1.0", "v1.0.9"))
	assert.True(t, Newer("2.0.0", "v1.9.9"))
	assert.False(t, Newer("v1.0.0", "v1.0.0"))
}
