package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/ratelimit"
)

// OpenAIProvider implements text generation using the official OpenAI Go SDK
type OpenAIProvider struct {
	client  openai.Client
	model   string
	timeout time.Duration
	limiter *ratelimit.Limiter
}

// Ensure OpenAIProvider implements Generator
var _ Generator = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, model string, timeout time.Duration, limiter *ratelimit.Limiter) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "openai API key is required")
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:  client,
		model:   model,
		timeout: timeout,
		limiter: limiter,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() ProviderName { return ProviderNameOpenAI }

// Generate sends a chat completion request via the official SDK
func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrapf(errors.ErrExternal, "openai API call failed: %v", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.Wrap(errors.ErrExternal, "openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
