package grading

import "github.com/abhisek/tierwise/internal/llm"

// VerdictSchema constrains the LLM's grading reply.
var VerdictSchema = &llm.Schema{
	Name:        "grade-answer",
	Description: "Correctness verdict for one free-text student answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct": map[string]any{
				"type":        "boolean",
				"description": "Whether the answer meets the expectation of the question",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "Confidence in the verdict (0.0 to 1.0)",
			},
			"rationale": map[string]any{
				"type":        "string",
				"description": "One sentence explaining the verdict",
			},
		},
		"required":             []any{"correct", "confidence", "rationale"},
		"additionalProperties": false,
	},
}
