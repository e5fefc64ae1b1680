// Package llm is a small provider-neutral client for structured LLM calls.
//
// Callers build a Request with a JSON Schema and get back validated JSON.
// Concrete providers (Anthropic, OpenAI, Gemini) are wrapped with retry and
// request logging by NewProvider.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates structured output from a prompt.
type Provider interface {
	// Generate sends req and returns the model output. When req.Schema is
	// set, Content is JSON that has been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model this provider is configured to call.
	ModelID() string
}

// Request is one single-turn or multi-turn prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, requests native structured output and enables
	// response validation.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names a JSON Schema document.
type Schema struct {
	// Name is a kebab-case identifier, also used as the cache key for the
	// compiled schema.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model output for one Request.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage is the token accounting for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// finish validates content against the request schema and assembles the
// response. Every concrete provider returns through it.
func finish(req Request, content json.RawMessage, usage Usage, model, stop string) (*Response, error) {
	if stop == stopMaxTokens && req.Schema != nil {
		return nil, &ErrMaxTokensExceeded{Content: content}
	}
	if err := ValidateResponse(req.Schema, content); err != nil {
		return nil, err
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{Content: content, Usage: usage, Model: model, StopReason: stop}, nil
}

const (
	stopEnd       = "end"
	stopMaxTokens = "max_tokens"
)
