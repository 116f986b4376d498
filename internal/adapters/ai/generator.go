package ai

import "context"

// ProviderName identifies a text-generation backend
type ProviderName string

const (
	ProviderNameGoogle ProviderName = "gemini"
	ProviderNameOpenAI ProviderName = "openai"
)

// String returns the provider name as a string
func (p ProviderName) String() string {
	return string(p)
}

// Generator is the stateless prompt-in, text-out contract every provider
// implements. It is the only interface the analysis and chat services see.
type Generator interface {
	Name() ProviderName

	// Generate produces a completion for the prompt. The call is bounded by
	// the provider's configured timeout in addition to ctx.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest carries a prompt and its generation options
type GenerateRequest struct {
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}
