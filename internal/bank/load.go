package bank

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/abhisek/tierwise/internal/question"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// document is the on-disk bank format.
type document struct {
	Tests         map[string][]question.Raw `json:"tests"`
	Reinforcement []question.Raw            `json:"reinforcement"`
}

// documentSchema describes a bank file. Item fields are loose on purpose:
// question.Raw absorbs the naming variants found in question sources.
var documentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tests": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"$ref": "#/$defs/question"},
			},
		},
		"reinforcement": map[string]any{
			"type":  "array",
			"items": map[string]any{"$ref": "#/$defs/question"},
		},
	},
	"required": []any{"tests"},
	"$defs": map[string]any{
		"question": map[string]any{
			"type":     "object",
			"required": []any{"id"},
			"properties": map[string]any{
				"id":      map[string]any{"type": "string", "minLength": 1},
				"options": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"choices": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
	},
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func bankSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler expects a decoded JSON value, not Go literals.
		raw, err := json.Marshal(documentSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal bank schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(raw, &def); err != nil {
			compileErr = fmt.Errorf("parse bank schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const url = "schema://question-bank.json"
		if err := c.AddResource(url, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(url)
	})
	return compiledSchema, compileErr
}

// Load reads a bank file from disk.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Parse validates a JSON bank document against the bank schema, normalizes
// every question into canonical form and builds a Bank.
func Parse(data []byte) (*Bank, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	schema, err := bankSchema()
	if err != nil {
		return nil, fmt.Errorf("compile bank schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("bank schema validation failed: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode bank: %w", err)
	}

	tests := make(map[string][]question.Question, len(doc.Tests))
	for name, raws := range doc.Tests {
		qs, err := question.CanonicalAll(raws)
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", name, err)
		}
		tests[name] = qs
	}
	reinforcement, err := question.CanonicalAll(doc.Reinforcement)
	if err != nil {
		return nil, fmt.Errorf("reinforcement: %w", err)
	}
	return New(tests, reinforcement)
}
