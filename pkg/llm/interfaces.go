// Package llm provides OpenAI-compatible language model client functionality.
package llm

import "context"

// Persona selects which locally hosted model backs a call.
type Persona string

const (
	// PersonaSummarizer is the general-purpose model used for business
	// summaries, schema explanations and answer synthesis.
	PersonaSummarizer Persona = "summarizer"
	// PersonaCoder is the code-oriented model used for SQL generation
	// and correction.
	PersonaCoder Persona = "coder"
)

// Generator produces text from a prompt against one model endpoint.
// Use this interface for dependency injection to enable mocking in tests.
type Generator interface {
	// Generate sends a prompt with an optional system message and returns
	// the completion text.
	Generate(ctx context.Context, prompt string, systemMessage string) (string, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Router dispatches a call to the generator backing the given persona.
type Router interface {
	// Generate routes promptText to the persona's model and returns text.
	Generate(ctx context.Context, persona Persona, prompt string, systemMessage string) (string, error)
}

// Ensure Client implements Generator at compile time.
var _ Generator = (*Client)(nil)
