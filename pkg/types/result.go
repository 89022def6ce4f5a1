package types

// SearchResult represents a single search result with relevance information
type SearchResult struct {
	// Identification
	Identity string
	Rank     int // Position in result set (1-based)

	// Scoring
	RelevanceScore float64 // Cosine similarity between query and document embeddings

	// Metadata
	Fingerprint string
	Preview     string // Leading part of the stored content
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Identity == "" {
		return ErrEmptyIdentity
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < -1 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.Preview == "" {
		return ErrEmptyContent
	}

	return nil
}
