package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewClient creates a provider client based on the configuration and wraps it
// in the process-wide limiter.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	client, err := newProviderClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return WithLimiter(client, SharedLimiter(cfg.Concurrency)), nil
}

func newProviderClient(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case openAIProvider, "":
		return newOpenAIClient(cfg)
	case geminiProvider:
		return newGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
