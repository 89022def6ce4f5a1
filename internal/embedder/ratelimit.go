package embedder

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimitedEmbedder throttles requests with a token bucket
type rateLimitedEmbedder struct {
	Embedder
	bucket *rate.Limiter
}

// WithRateLimit wraps e so that at most perSecond requests start each second.
// A non-positive perSecond returns e unchanged.
func WithRateLimit(e Embedder, perSecond float64, burst int) Embedder {
	if perSecond <= 0 {
		return e
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimitedEmbedder{
		Embedder: e,
		bucket:   rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (r *rateLimitedEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := r.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Embedder.GenerateEmbedding(ctx, req)
}
