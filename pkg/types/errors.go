package types

import "errors"

// Domain errors for type validation
var (
	// Document errors
	ErrEmptyIdentity       = errors.New("document identity cannot be empty")
	ErrInvalidContent      = errors.New("document content is not valid UTF-8")
	ErrFingerprintMismatch = errors.New("fingerprint does not match content")

	// Search result errors
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between -1 and 1")
	ErrEmptyContent          = errors.New("content cannot be empty")
)
