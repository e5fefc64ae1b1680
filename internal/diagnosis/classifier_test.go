package diagnosis

import (
	"testing"

	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/thresholds"
)

func band(t *testing.T, name string) thresholds.GradeBand {
	t.Helper()
	b, err := thresholds.Default().Band(name)
	if err != nil {
		t.Fatalf("Band(%q): %v", name, err)
	}
	return b
}

func perfect(lit, inf, ana int) Levels {
	return Levels{
		Literal:     LevelResult{Correct: lit, Total: lit},
		Inferential: LevelResult{Correct: inf, Total: inf},
		Analytical:  LevelResult{Correct: ana, Total: ana},
	}
}

func TestDiagnose_DecodingDominates(t *testing.T) {
	// Grade band 1-2, 9 errors, every comprehension question correct.
	got := Diagnose(Input{ErrorCount: 9, Levels: perfect(3, 2, 1)}, band(t, "1-2"))
	if got.Category != CategoryDecoding {
		t.Errorf("category = %q, want decoding", got.Category)
	}
	if got.ClassifierName != "decoding" {
		t.Errorf("classifier = %q", got.ClassifierName)
	}
}

func TestDiagnose_DecodingPriorityOverGaps(t *testing.T) {
	levels := Levels{
		Literal:     LevelResult{Correct: 0, Total: 3},
		Inferential: LevelResult{Correct: 0, Total: 2},
		Analytical:  LevelResult{Correct: 0, Total: 1},
	}
	for _, name := range []string{"1-2", "3-4", "5-6", "7-8"} {
		b := band(t, name)
		got := Diagnose(Input{ErrorCount: b.DecodingThreshold, Levels: levels}, b)
		if got.Category != CategoryDecoding {
			t.Errorf("band %s: category = %q, want decoding", name, got.Category)
		}
	}
}

func TestDiagnose_DecodingThresholds(t *testing.T) {
	tests := []struct {
		band   string
		errors int
		want   Category
	}{
		{"1-2", 7, CategoryNone},
		{"1-2", 8, CategoryDecoding},
		{"3-4", 8, CategoryDecoding},
		{"5-6", 8, CategoryNone},
		{"5-6", 15, CategoryNone},
		{"5-6", 16, CategoryDecoding},
		{"7-8", 16, CategoryDecoding},
	}
	for _, tt := range tests {
		got := Diagnose(Input{ErrorCount: tt.errors, Levels: perfect(4, 4, 3)}, band(t, tt.band))
		if got.Category != tt.want {
			t.Errorf("band %s errors %d: category = %q, want %q", tt.band, tt.errors, got.Category, tt.want)
		}
	}
}

func TestDiagnose_EarlyBandGaps(t *testing.T) {
	b := band(t, "1-2")
	tests := []struct {
		name   string
		levels Levels
		want   Category
	}{
		{"literal 1 of 3", Levels{
			Literal:     LevelResult{1, 3},
			Inferential: LevelResult{0, 2},
			Analytical:  LevelResult{0, 1},
		}, CategoryLiteral},
		{"literal 2 of 3, inferential 0", Levels{
			Literal:     LevelResult{2, 3},
			Inferential: LevelResult{0, 2},
			Analytical:  LevelResult{0, 1},
		}, CategoryInferential},
		{"inferential 1 of 2 is not a gap", Levels{
			Literal:     LevelResult{2, 3},
			Inferential: LevelResult{1, 2},
			Analytical:  LevelResult{0, 1},
		}, CategoryAnalytical},
		{"all clear", Levels{
			Literal:     LevelResult{2, 3},
			Inferential: LevelResult{1, 2},
			Analytical:  LevelResult{1, 1},
		}, CategoryNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diagnose(Input{ErrorCount: 2, Levels: tt.levels}, b)
			if got.Category != tt.want {
				t.Errorf("category = %q, want %q (%s)", got.Category, tt.want, got.Reason)
			}
		})
	}
}

func TestDiagnose_LaterBandCutoffs(t *testing.T) {
	// 5-6: literal total 4 so ≤2 is a gap; inferential total 3 so ≤1; analytical total 2 so ≤1.
	b := band(t, "5-6")
	tests := []struct {
		name   string
		levels Levels
		want   Category
	}{
		{"literal 2 of 4", Levels{Literal: LevelResult{2, 4}, Inferential: LevelResult{3, 3}, Analytical: LevelResult{2, 2}}, CategoryLiteral},
		{"literal 3 of 4", Levels{Literal: LevelResult{3, 4}, Inferential: LevelResult{3, 3}, Analytical: LevelResult{2, 2}}, CategoryNone},
		{"inferential 1 of 3", Levels{Literal: LevelResult{3, 4}, Inferential: LevelResult{1, 3}, Analytical: LevelResult{2, 2}}, CategoryInferential},
		{"analytical 1 of 2", Levels{Literal: LevelResult{3, 4}, Inferential: LevelResult{2, 3}, Analytical: LevelResult{1, 2}}, CategoryAnalytical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diagnose(Input{Levels: tt.levels}, b)
			if got.Category != tt.want {
				t.Errorf("category = %q, want %q", got.Category, tt.want)
			}
		})
	}

	// 3-4: literal total 3 uses the small cutoff of 1.
	b34 := band(t, "3-4")
	got := Diagnose(Input{Levels: Levels{Literal: LevelResult{2, 3}, Inferential: LevelResult{3, 3}, Analytical: LevelResult{2, 2}}}, b34)
	if got.Category != CategoryNone {
		t.Errorf("3-4 literal 2 of 3: category = %q, want none", got.Category)
	}
}

func TestDiagnose_SkipsUnobservedLevels(t *testing.T) {
	got := Diagnose(Input{Levels: Levels{Literal: LevelResult{3, 3}}}, band(t, "1-2"))
	if got.Category != CategoryNone {
		t.Errorf("category = %q, want none", got.Category)
	}
}

func TestDiagnose_NoLiteralItems(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		band string
		want Category
	}{
		{
			name: "strong higher levels",
			in:   Input{Levels: Levels{Inferential: LevelResult{3, 3}, Analytical: LevelResult{2, 2}}},
			band: "3-4",
			want: CategoryNone,
		},
		{
			name: "next level still diagnosed",
			in:   Input{Levels: Levels{Inferential: LevelResult{0, 3}, Analytical: LevelResult{2, 2}}},
			band: "3-4",
			want: CategoryInferential,
		},
		{
			name: "decoding unaffected",
			in:   Input{ErrorCount: 8, Levels: Levels{Inferential: LevelResult{3, 3}}},
			band: "1-2",
			want: CategoryDecoding,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diagnose(tt.in, band(t, tt.band))
			if got.Category != tt.want {
				t.Errorf("category = %q (%s), want %q", got.Category, got.Reason, tt.want)
			}
			if got.Category == CategoryLiteral {
				t.Errorf("zero literal items must not produce a literal gap")
			}
		})
	}
}

func TestTally(t *testing.T) {
	qs := []question.Question{
		{ID: "a", Level: question.LevelLiteral},
		{ID: "b", Level: question.LevelLiteral},
		{ID: "c", Level: question.LevelInferential},
		{ID: "d", Level: question.LevelAnalytical},
		{ID: "e"},
		{ID: "f", Level: question.LevelAnalytical},
	}
	outcomes := map[string]bool{"a": true, "b": false, "c": true, "d": false, "e": true}

	got := Tally(qs, outcomes)
	want := Levels{
		Literal:     LevelResult{Correct: 1, Total: 2},
		Inferential: LevelResult{Correct: 1, Total: 1},
		Analytical:  LevelResult{Correct: 0, Total: 1},
	}
	if got != want {
		t.Errorf("Tally = %+v, want %+v", got, want)
	}
	correct, total := got.Comprehension()
	if correct != 2 || total != 4 {
		t.Errorf("Comprehension = %d/%d, want 2/4", correct, total)
	}
}

type alwaysClassifier struct{ cat Category }

func (a alwaysClassifier) Name() string { return "always" }
func (a alwaysClassifier) Classify(*Input, thresholds.GradeBand) (Category, string, bool) {
	return a.cat, "", true
}

func TestRunClassifiers_FirstMatchWins(t *testing.T) {
	chain := []Classifier{alwaysClassifier{CategoryAnalytical}, alwaysClassifier{CategoryLiteral}}
	got := RunClassifiers(chain, &Input{}, thresholds.GradeBand{})
	if got.Category != CategoryAnalytical {
		t.Errorf("category = %q, want analytical", got.Category)
	}
}
