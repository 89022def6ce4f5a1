package scanner

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

// TestNormalize_UnderLimit leaves short content alone
func TestNormalize_UnderLimit(t *testing.T) {
	content, truncated, length := Normalize("hello", 10)

	assert.Equal(t, "hello", content)
	assert.False(t, truncated)
	assert.Equal(t, 5, length)
}

// TestNormalize_ExactlyAtLimit is not a truncation
func TestNormalize_ExactlyAtLimit(t *testing.T) {
	content, truncated, _ := Normalize("abcde", 5)

	assert.Equal(t, "abcde", content)
	assert.False(t, truncated)
}

// TestNormalize_Truncates keeps the first max characters
func TestNormalize_Truncates(t *testing.T) {
	raw := strings.Repeat("x", 12000)

	content, truncated, length := Normalize(raw, 10000)

	assert.True(t, truncated)
	assert.Equal(t, 12000, length)
	assert.Equal(t, 10000, utf8.RuneCountInString(content))
	assert.Equal(t, raw[:10000], content)
}

// TestNormalize_MultibyteCountsCharacters never splits a rune
func TestNormalize_MultibyteCountsCharacters(t *testing.T) {
	raw := strings.Repeat("é", 8) // 2 bytes each

	content, truncated, length := Normalize(raw, 5)

	assert.True(t, truncated)
	assert.Equal(t, 8, length)
	assert.Equal(t, strings.Repeat("é", 5), content)
	assert.True(t, utf8.ValidString(content))
}

// TestNormalize_DisabledBound treats non-positive max as unbounded
func TestNormalize_DisabledBound(t *testing.T) {
	raw := strings.Repeat("y", 50)

	content, truncated, _ := Normalize(raw, 0)

	assert.Equal(t, raw, content)
	assert.False(t, truncated)
}
