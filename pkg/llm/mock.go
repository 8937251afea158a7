package llm

import "context"

// MockGenerator is a configurable mock for testing model-backed code.
// Set the function field to control behavior in tests.
type MockGenerator struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns empty string and nil error.
	GenerateFunc func(ctx context.Context, prompt string, systemMessage string) (string, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	// GenerateCalls counts invocations for verification.
	GenerateCalls int

	// Prompts records every prompt passed to Generate.
	Prompts []string
}

// NewMockGenerator creates a new mock with sensible defaults.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, prompt string, systemMessage string) (string, error) {
	m.GenerateCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, systemMessage)
	}
	return "", nil
}

// GetModel implements Generator.
func (m *MockGenerator) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements Generator.
func (m *MockGenerator) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

// Reset clears call tracking.
func (m *MockGenerator) Reset() {
	m.GenerateCalls = 0
	m.Prompts = nil
}

// Ensure MockGenerator implements Generator at compile time.
var _ Generator = (*MockGenerator)(nil)

// MockRouter routes personas to separate mock generators and tracks calls
// per persona.
type MockRouter struct {
	Summarizer *MockGenerator
	Coder      *MockGenerator
}

// NewMockRouter creates a router over two fresh mock generators.
func NewMockRouter() *MockRouter {
	return &MockRouter{
		Summarizer: NewMockGenerator(),
		Coder:      NewMockGenerator(),
	}
}

// Generate implements Router.
func (m *MockRouter) Generate(ctx context.Context, persona Persona, prompt string, systemMessage string) (string, error) {
	if persona == PersonaCoder {
		return m.Coder.Generate(ctx, prompt, systemMessage)
	}
	return m.Summarizer.Generate(ctx, prompt, systemMessage)
}

// Ensure MockRouter implements Router at compile time.
var _ Router = (*MockRouter)(nil)
