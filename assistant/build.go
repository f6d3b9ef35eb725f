package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider names accepted by Build.
const (
	ProviderPerplexity = "perplexity"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
)

// Settings selects and configures a gateway stack.
type Settings struct {
	Provider string // perplexity (default), openai, gemini
	Model    string
	APIKey   string
	BaseURL  string
	RedisURL string        // empty = no answer cache
	CacheTTL time.Duration // default 1h
	Retry    RetryConfig
}

// Build assembles backend → retry → cache. The returned close function
// releases the cache connection and is never nil.
func Build(ctx context.Context, s Settings, logger *zap.Logger) (Gateway, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() error { return nil }

	var backend Gateway
	switch strings.ToLower(s.Provider) {
	case "", ProviderPerplexity:
		gw, err := NewOpenAI(OpenAIConfig{APIKey: s.APIKey, Model: s.Model, BaseURL: s.BaseURL})
		if err != nil {
			return nil, noop, err
		}
		backend = gw
	case ProviderOpenAI:
		base := s.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		model := s.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		gw, err := NewOpenAI(OpenAIConfig{APIKey: s.APIKey, Model: model, BaseURL: base})
		if err != nil {
			return nil, noop, err
		}
		backend = gw
	case ProviderGemini:
		gw, err := NewGemini(ctx, GeminiConfig{APIKey: s.APIKey, Model: s.Model, BaseURL: s.BaseURL})
		if err != nil {
			return nil, noop, err
		}
		backend = gw
	default:
		return nil, noop, fmt.Errorf("unknown llm provider %q", s.Provider)
	}

	retry := s.Retry
	if retry.MaxTries == 0 {
		retry = DefaultRetryConfig()
	}
	var gw Gateway = WithRetry(backend, retry, logger)

	if s.RedisURL == "" {
		return gw, noop, nil
	}
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cache, err := NewRedisCache(s.RedisURL, ttl)
	if err != nil {
		return nil, noop, err
	}
	logger.Info("🔧 Pulse Gateway: answer cache enabled", zap.Duration("ttl", ttl))
	return WithCache(gw, cache, logger), cache.Close, nil
}
