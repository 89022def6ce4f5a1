package embedder

import (
	"fmt"
	"strings"
	"time"
)

// Config holds embedder configuration
type Config struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	Dimension     int
	Timeout       time.Duration
	CacheSize     int     // 0 disables the cache
	RatePerSecond float64 // 0 disables rate limiting
	Burst         int
}

// New creates an embedder with explicit configuration.
// The provider is wrapped with rate limiting first and caching second, so
// cache hits never consume rate-limit tokens.
func New(cfg Config) (Embedder, error) {
	base, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	var emb Embedder = base
	emb = WithRateLimit(emb, cfg.RatePerSecond, cfg.Burst)
	if cfg.CacheSize > 0 {
		emb = WithCache(emb, NewCache(cfg.CacheSize))
	}
	return emb, nil
}

func newProvider(cfg Config) (Embedder, error) {
	opts := HTTPOptions{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		Dimension: cfg.Dimension,
		Timeout:   cfg.Timeout,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenAI:
		return NewOpenAIProvider(opts)
	case ProviderJina:
		return NewJinaProvider(opts)
	case ProviderLocal:
		return NewLocalProvider(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// RequiresAPIKey reports whether provider calls a remote API
func RequiresAPIKey(provider string) bool {
	return strings.ToLower(strings.TrimSpace(provider)) != ProviderLocal
}

// APIKeyEnvVar returns the conventional environment variable holding provider's key
func APIKeyEnvVar(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderJina:
		return "JINA_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// SupportedProviders lists accepted provider names
func SupportedProviders() []string {
	return []string{ProviderOpenAI, ProviderJina, ProviderLocal}
}
