package ai

import (
	"time"

	"github.com/DevDizzle/profit-scout/internal/adapters/config"
	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/ratelimit"
)

// BuildRegistry initializes a Registry with all providers that have API keys
// configured. Each provider gets its own request-pacing limiter so a burst of
// analysis tasks cannot exhaust the upstream quota.
func BuildRegistry(cfg config.AIConfig) (*Registry, error) {
	registry := NewRegistry()

	if cfg.GeminiKey != "" {
		limiter := ratelimit.NewLimiter(ProviderNameGoogle.String(), cfg.ReqPerMinute, time.Minute)
		if err := registry.Register(NewGeminiProvider(cfg.GeminiKey, cfg.GeminiModel, cfg.Timeout, limiter)); err != nil {
			return nil, err
		}
	}

	if cfg.OpenAIKey != "" {
		limiter := ratelimit.NewLimiter(ProviderNameOpenAI.String(), cfg.ReqPerMinute, time.Minute)
		provider, err := NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, cfg.Timeout, limiter)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(provider); err != nil {
			return nil, err
		}
	}

	if len(registry.providers) == 0 {
		return nil, errors.Wrap(errors.ErrUnavailable, "no AI provider keys configured")
	}

	if cfg.DefaultProvider != "" {
		if err := registry.SetDefault(NormalizeProviderName(cfg.DefaultProvider)); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
