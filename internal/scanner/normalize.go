package scanner

import "unicode/utf8"

// DefaultMaxContentLength is the default bound on stored content, in characters
const DefaultMaxContentLength = 10000

// Normalize bounds content to maxLen characters.
// It returns the (possibly truncated) content, whether truncation occurred,
// and the original length in characters. A non-positive maxLen disables the bound.
func Normalize(content string, maxLen int) (string, bool, int) {
	length := utf8.RuneCountInString(content)
	if maxLen <= 0 || length <= maxLen {
		return content, false, length
	}

	// Walk to the byte offset of the maxLen-th rune
	count := 0
	for offset := range content {
		if count == maxLen {
			return content[:offset], true, length
		}
		count++
	}
	return content, false, length
}
