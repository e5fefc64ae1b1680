// Package grading produces correctness grades for free-text answers.
//
// Multiple-choice questions are graded by key inside scoring; everything
// else needs a grade from here. Grades come from a human (manual) or from
// an optional LLM pre-grader, and a manual grade always wins.
package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/abhisek/tierwise/internal/llm"
	"github.com/abhisek/tierwise/internal/question"
)

// Item is one answer waiting for a grade.
type Item struct {
	QuestionID string
	Prompt     string
	Kind       question.Kind
	Skill      string
	Level      question.Level
	Reference  string
	Answer     string
}

// Verdict is a grader's decision on one Item.
type Verdict struct {
	Correct    bool
	Confidence float64
	Rationale  string
}

// AnswerGrader decides whether a free-text answer is correct.
type AnswerGrader interface {
	GradeAnswer(ctx context.Context, item Item) (*Verdict, error)
}

// LLMGraderConfig holds request parameters for LLM grading.
type LLMGraderConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultLLMGraderConfig returns sensible defaults.
func DefaultLLMGraderConfig() LLMGraderConfig {
	return LLMGraderConfig{MaxTokens: 256, Temperature: 0.1}
}

// LLMGrader grades answers with an llm.Provider.
type LLMGrader struct {
	provider llm.Provider
	cfg      LLMGraderConfig
}

// NewLLMGrader creates an LLM-backed grader.
func NewLLMGrader(provider llm.Provider, cfg LLMGraderConfig) *LLMGrader {
	return &LLMGrader{provider: provider, cfg: cfg}
}

type verdictOutput struct {
	Correct    bool    `json:"correct"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// GradeAnswer asks the model for a verdict on item.
func (g *LLMGrader) GradeAnswer(ctx context.Context, item Item) (*Verdict, error) {
	ctx = llm.WithPurpose(ctx, "grade-answer")

	userMsg, err := buildGradeMessage(item)
	if err != nil {
		return nil, fmt.Errorf("build grading prompt: %w", err)
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      gradeSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      VerdictSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM grading failed: %w", err)
	}

	var out verdictOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("failed to parse grading response: %w", err)
	}
	return &Verdict{Correct: out.Correct, Confidence: out.Confidence, Rationale: out.Rationale}, nil
}

const gradeSystemPrompt = `You are an experienced classroom teacher grading a student's written answer on a placement assessment.

Instructions:
- Decide only whether the answer is correct. Partial credit does not exist: an answer that misses the core idea is incorrect.
- Judge understanding, not spelling or grammar.
- If a reference answer is given, the student's answer must agree with it in substance.
- Provide a confidence score (0.0-1.0) for your verdict.
- Keep the rationale to one sentence.`

var gradeUserTemplate = template.Must(template.New("grade").Parse(`Question: {{.Prompt}}
Question type: {{.Kind}}
{{- if .Skill}}
Skill: {{.Skill}}{{end}}
{{- if .Level}}
Comprehension level: {{.Level}}{{end}}
{{- if .Reference}}
Reference answer: {{.Reference}}{{end}}
Student's answer: {{.Answer}}
`))

func buildGradeMessage(item Item) (string, error) {
	var buf bytes.Buffer
	if err := gradeUserTemplate.Execute(&buf, item); err != nil {
		return "", err
	}
	return buf.String(), nil
}
