package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/docsync/internal/embedder"
	"github.com/dshills/docsync/internal/storage"
	"github.com/dshills/docsync/pkg/types"
)

// Limits applied to search requests
const (
	DefaultLimit  = 10
	MaxLimit      = 100
	PreviewLength = 200 // characters
)

// ErrEmptyQuery is returned for a blank query
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query    string
	Limit    int     // 1..100 (default: 10)
	MinScore float64 // Drop results below this cosine similarity (applied when > 0)
	UseCache bool    // Whether to use the query cache
	CacheTTL time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalRecords int // Records compared against the query
	Duration     time.Duration
	CacheHit     bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher ranks stored documents by similarity to a query
type Searcher struct {
	store    storage.Store
	embedder embedder.Embedder
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Store, emb embedder.Embedder) *Searcher {
	// Cache will automatically evict least recently used entries
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		store:    store,
		embedder: emb,
		cache:    cache,
	}
}

// Search embeds the query and returns the most similar stored documents
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}

	if err := validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached, ok := s.checkCache(req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	response, err := s.vectorSearch(ctx, req)
	if err != nil {
		return nil, err
	}
	response.Duration = time.Since(startTime)

	if req.UseCache && len(response.Results) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// candidate is a record with its similarity score
type candidate struct {
	record storage.Record
	score  float64
}

func (s *Searcher) vectorSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	candidates := make([]candidate, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) != len(embedding.Vector) {
			continue // Dimension mismatch, skip
		}
		score := storage.CosineSimilarity(embedding.Vector, rec.Embedding)
		if req.MinScore > 0 && score < req.MinScore {
			continue
		}
		candidates = append(candidates, candidate{record: rec, score: score})
	}
	sortCandidates(candidates)

	if len(candidates) > req.Limit {
		candidates = candidates[:req.Limit]
	}

	results := make([]types.SearchResult, 0, len(candidates))
	for i, c := range candidates {
		results = append(results, types.SearchResult{
			Identity:       c.record.Identity,
			Rank:           i + 1,
			RelevanceScore: c.score,
			Fingerprint:    c.record.Fingerprint,
			Preview:        preview(c.record.Content),
		})
	}

	return &SearchResponse{
		Results:      results,
		TotalRecords: len(records),
	}, nil
}

// validateRequest ensures search request is valid
func validateRequest(req *SearchRequest) error {
	if req.Query == "" {
		return ErrEmptyQuery
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}

	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	if req.CacheTTL == 0 {
		req.CacheTTL = 1 * time.Hour // Default TTL
	}

	return nil
}

// sortCandidates orders by descending score, then identity
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].record.Identity < candidates[j].record.Identity
		}
		return candidates[i].score > candidates[j].score
	})
}

// preview returns the first PreviewLength characters of content
func preview(content string) string {
	if utf8.RuneCountInString(content) <= PreviewLength {
		return content
	}
	count := 0
	for offset := range content {
		if count == PreviewLength {
			return content[:offset] + "..."
		}
		count++
	}
	return content
}

func (s *Searcher) checkCache(req SearchRequest) (*SearchResponse, bool) {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		// Remove expired entry - need write lock
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil, false
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response, true
}

func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response; call it after the store changes
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

func copySearchResponse(src *SearchResponse) *SearchResponse {
	dst := *src
	dst.Results = append([]types.SearchResult(nil), src.Results...)
	return &dst
}

// computeQueryHash keys the cache by query text, limit and minimum score
func computeQueryHash(req SearchRequest) [32]byte {
	h := sha256.New()
	h.Write([]byte(req.Query))
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(req.Limit))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(req.MinScore*1e9)))
	h.Write(buf[:])

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
