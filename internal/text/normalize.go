// Package text holds the tokenizer shared by topic extraction and title
// generation.
package text

import (
	"regexp"
	"strings"
)

// nonWord matches anything that is not a letter, digit, underscore or
// whitespace.
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// Normalize lowercases s and trims surrounding whitespace. Punctuation is
// left in place.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StripPunctuation removes every non-word, non-whitespace character.
func StripPunctuation(s string) string {
	return nonWord.ReplaceAllString(s, "")
}

// Words splits s on runs of whitespace.
func Words(s string) []string {
	return strings.Fields(s)
}

// Tokenize lowercases s, strips punctuation and splits it into words.
func Tokenize(s string) []string {
	return Words(StripPunctuation(strings.ToLower(s)))
}
