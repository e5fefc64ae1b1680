package bank

import (
	"errors"
	"testing"

	"github.com/abhisek/tierwise/internal/question"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mc(id, skill string) question.Question {
	return question.Question{ID: id, Kind: question.KindMultipleChoice, Skill: skill, AnswerKey: "A"}
}

func TestNew_IndexesReinforcementByNormalizedSkill(t *testing.T) {
	b, err := New(
		map[string][]question.Question{"t": {mc("q1", "fractions")}},
		[]question.Question{mc("r1", "fractions"), mc("r2", "FRACTIONS"), mc("r3", "place_value")},
	)
	require.NoError(t, err)

	got := b.ReinforcementQuestions("Fractions")
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "r2", got[1].ID)

	assert.Len(t, b.ReinforcementQuestions("place-value"), 1)
	assert.Empty(t, b.ReinforcementQuestions("geometry"))
	assert.Equal(t, []string{"Fractions", "Place Value"}, b.Skills())
}

func TestQuestionsForTest_ReturnsCopy(t *testing.T) {
	b, err := New(map[string][]question.Question{"t": {mc("q1", "x")}}, nil)
	require.NoError(t, err)

	qs, err := b.QuestionsForTest("t")
	require.NoError(t, err)
	qs[0].Prompt = "mutated"

	again, _ := b.QuestionsForTest("t")
	assert.Empty(t, again[0].Prompt)
}

func TestQuestionsForTest_NotFound(t *testing.T) {
	b, err := New(map[string][]question.Question{"t": {mc("q1", "x")}}, nil)
	require.NoError(t, err)

	_, err = b.QuestionsForTest("missing")
	assert.True(t, errors.Is(err, ErrTestNotFound))
}

func TestNew_ValidationErrors(t *testing.T) {
	_, err := New(
		map[string][]question.Question{
			"t":     {mc("q1", "x"), mc("q1", "x")},
			"empty": nil,
		},
		[]question.Question{mc("q1", "x"), mc("r1", ""), mc("r1", "y")},
	)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `test "t": duplicate question ID "q1"`)
	assert.Contains(t, msg, `test "empty" has no questions`)
	assert.Contains(t, msg, `reinforcement ID "q1" collides`)
	assert.Contains(t, msg, `reinforcement "r1" has no skill tag`)
	assert.Contains(t, msg, `duplicate reinforcement ID "r1"`)
}

func TestLoad_SampleBank(t *testing.T) {
	b, err := Load("testdata/reading.json")
	require.NoError(t, err)

	assert.Equal(t, []string{"Grade 1-2 Reading", "Grade 3 Math"}, b.TestNames())

	math, err := b.QuestionsForTest("Grade 3 Math")
	require.NoError(t, err)
	require.Len(t, math, 4)
	assert.Equal(t, "B) 3/4", math[0].AnswerKey)
	assert.Equal(t, "B", math[1].AnswerKey)
	assert.Equal(t, "Place Value", math[1].SkillKey())
	assert.Equal(t, question.KindExtendedResponse, math[3].Kind)

	assert.Len(t, b.ReinforcementQuestions("Fractions"), 4)

	q, ok := b.Question("r5")
	require.True(t, ok)
	assert.Equal(t, question.LevelInferential, q.Level)
	assert.Equal(t, question.KindShortAnswer, q.Kind)
}

func TestParse_SchemaViolation(t *testing.T) {
	_, err := Parse([]byte(`{"tests": {"t": [{"prompt": "no id"}]}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")

	_, err = Parse([]byte(`{"reinforcement": []}`))
	assert.Error(t, err, "tests is required")
}

func TestParse_CanonicalizationError(t *testing.T) {
	_, err := Parse([]byte(`{"tests": {"t": [{"id": "q1", "type": "multiple_choice"}]}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no answer key")
}
