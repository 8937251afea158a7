package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// PersonaRouter holds one client per persona and routes calls to them.
type PersonaRouter struct {
	summarizer Generator
	coder      Generator
}

// NewPersonaRouter builds a router from two persona configurations.
func NewPersonaRouter(summarizer, coder *Config, logger *zap.Logger) (*PersonaRouter, error) {
	sumClient, err := NewClient(summarizer, logger)
	if err != nil {
		return nil, fmt.Errorf("create summarizer client: %w", err)
	}
	codeClient, err := NewClient(coder, logger)
	if err != nil {
		return nil, fmt.Errorf("create coder client: %w", err)
	}
	return &PersonaRouter{summarizer: sumClient, coder: codeClient}, nil
}

// NewPersonaRouterWith wires pre-built generators, used by tests to inject
// mocks per persona.
func NewPersonaRouterWith(summarizer, coder Generator) *PersonaRouter {
	return &PersonaRouter{summarizer: summarizer, coder: coder}
}

// Generate implements Router.
func (r *PersonaRouter) Generate(ctx context.Context, persona Persona, prompt string, systemMessage string) (string, error) {
	switch persona {
	case PersonaSummarizer:
		return r.summarizer.Generate(ctx, prompt, systemMessage)
	case PersonaCoder:
		return r.coder.Generate(ctx, prompt, systemMessage)
	default:
		return "", fmt.Errorf("unknown persona: %s", persona)
	}
}

// Ensure PersonaRouter implements Router at compile time.
var _ Router = (*PersonaRouter)(nil)
