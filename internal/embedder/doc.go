// Package embedder generates vector embeddings for documents using various providers.
//
// The embedder supports OpenAI, Jina AI and a deterministic local provider,
// with optional LRU caching and token-bucket rate limiting layered on top.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:  embedder.ProviderOpenAI,
//	    APIKey:    os.Getenv("OPENAI_API_KEY"),
//	    CacheSize: 1000,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "# Getting started\n...",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Providers
//
//   - openai: text-embedding-3-large by default (3072 dimensions)
//   - jina: jina-embeddings-v3 (1024 dimensions)
//   - local: SHA-256 derived unit vectors, 384 dimensions by default
//
// Setting Config.Dimension below a model's native size asks the API for
// shortened vectors. Every returned vector is checked against the expected
// dimension and rejected with ErrDimensionMismatch otherwise.
//
// # Caching
//
// The cache is keyed by the SHA-256 of the text, which is the same value as
// the document fingerprint. A moved file keeps its fingerprint, so within one
// process its embedding is served from the cache.
//
// # Rate Limiting
//
// RatePerSecond installs a golang.org/x/time/rate limiter in front of the
// provider. Requests block until a token is available or ctx is done.
//
// # Errors
//
// Provider failures wrap ErrProviderFailed. No retries are attempted; the
// caller decides whether a failure aborts the run.
package embedder
