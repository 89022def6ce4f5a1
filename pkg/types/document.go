package types

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"
)

// ChangeKind classifies a scanned document against the store's prior state
type ChangeKind string

const (
	ChangeNew       ChangeKind = "new"
	ChangeUpdated   ChangeKind = "updated"
	ChangeUnchanged ChangeKind = "unchanged"
	ChangeDeleted   ChangeKind = "deleted"
)

// Document is a unit of scanned content ready for reconciliation
type Document struct {
	// Identity is the slash-separated path relative to the scan root
	Identity string

	// Content is the normalized content, truncated when it exceeded the maximum length
	Content string

	// Truncated reports whether Content is a prefix of the file's content
	Truncated bool

	// OriginalLength is the content length in characters before truncation
	OriginalLength int

	// Fingerprint is the hex SHA-256 digest of Content
	Fingerprint string
}

// NewDocument builds a Document and computes its fingerprint over content
func NewDocument(identity, content string, truncated bool, originalLength int) Document {
	return Document{
		Identity:       identity,
		Content:        content,
		Truncated:      truncated,
		OriginalLength: originalLength,
		Fingerprint:    Fingerprint(content),
	}
}

// Validate checks the document invariants
func (d *Document) Validate() error {
	if d.Identity == "" {
		return ErrEmptyIdentity
	}
	if !utf8.ValidString(d.Content) {
		return ErrInvalidContent
	}
	if d.Fingerprint != Fingerprint(d.Content) {
		return ErrFingerprintMismatch
	}
	return nil
}

// Length returns the content length in characters
func (d *Document) Length() int {
	return utf8.RuneCountInString(d.Content)
}

// Fingerprint computes the SHA-256 digest of content as lowercase hex.
// The digest covers the exact UTF-8 bytes, so it is case and encoding sensitive.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
