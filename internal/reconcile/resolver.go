package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/docsync/internal/embedder"
	"github.com/dshills/docsync/internal/logger"
	"github.com/dshills/docsync/pkg/types"
)

// FailurePolicy decides what a failed embedding request does to the run
type FailurePolicy string

const (
	// FailFast aborts the run before any store mutation
	FailFast FailurePolicy = "fail"
	// SkipFailed leaves the failing document out of this run
	SkipFailed FailurePolicy = "skip"
)

// ParseFailurePolicy maps a configuration value to a FailurePolicy
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailFast:
		return FailFast, nil
	case SkipFailed:
		return SkipFailed, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

// Default bounds for embedding requests
const (
	DefaultEmbedConcurrency = 4
	DefaultEmbedTimeout     = 60 * time.Second
)

// ResolverConfig bounds embedding requests
type ResolverConfig struct {
	Concurrency int           // Maximum in-flight requests (default: 4)
	Timeout     time.Duration // Per-request timeout (default: 60s)
	Dimension   int           // Expected vector size; 0 accepts the provider's
	Policy      FailurePolicy // Default: FailFast
}

// Resolution holds the vectors produced for pending documents
type Resolution struct {
	Vectors map[string][]float32

	// Failed lists identities dropped under SkipFailed, sorted
	Failed []string
}

// Resolver requests embeddings for New and Updated documents.
// It never touches the store.
type Resolver struct {
	embedder embedder.Embedder
	config   ResolverConfig
}

// NewResolver creates a Resolver
func NewResolver(emb embedder.Embedder, config ResolverConfig) *Resolver {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultEmbedConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultEmbedTimeout
	}
	if config.Policy == "" {
		config.Policy = FailFast
	}
	return &Resolver{embedder: emb, config: config}
}

// embedOutcome is the result of one embedding task
type embedOutcome struct {
	vector []float32
	err    error
}

// Resolve issues exactly one embedding request per document.
// Under FailFast the first failure cancels outstanding requests and is returned
// as a *ProviderError.
func (r *Resolver) Resolve(ctx context.Context, docs []types.Document) (*Resolution, error) {
	log := logger.FromContext(ctx)
	outcomes := make([]embedOutcome, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	for i := range docs {
		doc := docs[i]
		g.Go(func() error {
			vector, err := r.embed(gctx, doc)
			if err == nil {
				outcomes[i] = embedOutcome{vector: vector}
				return nil
			}

			perr := &ProviderError{Identity: doc.Identity, Err: err}
			// Cancellation of the run is never a per-document failure
			if r.config.Policy == FailFast || ctx.Err() != nil {
				return perr
			}
			log.Warn("Embedding failed, skipping document", "identity", doc.Identity, "error", err)
			outcomes[i] = embedOutcome{err: perr}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, err
	}

	res := &Resolution{Vectors: make(map[string][]float32, len(docs))}
	for i, outcome := range outcomes {
		if outcome.err != nil {
			res.Failed = append(res.Failed, docs[i].Identity)
			continue
		}
		res.Vectors[docs[i].Identity] = outcome.vector
	}
	sort.Strings(res.Failed)
	return res, nil
}

func (r *Resolver) embed(ctx context.Context, doc types.Document) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	emb, err := r.embedder.GenerateEmbedding(callCtx, embedder.EmbeddingRequest{Text: doc.Content})
	if err != nil {
		return nil, err
	}

	want := r.config.Dimension
	if want <= 0 {
		want = r.embedder.Dimension()
	}
	if err := embedder.CheckDimension(emb, want); err != nil {
		return nil, err
	}
	return emb.Vector, nil
}
