package analysis

import (
	"strings"
	"unicode"
)

const (
	DefaultSummaryLength = 50
	ellipsis             = "..."
)

// Summarize cuts text to maxLength characters. It counts characters, not
// words, so the cut can land mid-word.
func Summarize(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	if maxLength < 0 {
		maxLength = 0
	}
	return strings.TrimRightFunc(string(runes[:maxLength]), unicode.IsSpace) + ellipsis
}
