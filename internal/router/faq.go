package router

import (
	"strings"

	"github.com/spacesedan/pulseai/internal/models"
)

const userNamePlaceholder = "{user_name}"

// Match is the best FAQ entry for a message.
type Match struct {
	Entry models.FAQEntry
	Index int
	Score float64
}

// BestMatch scores text against every entry and returns the highest score.
// Ties go to the entry that comes first. ok is false for an empty table.
func BestMatch(text string, faq []models.FAQEntry) (match Match, ok bool) {
	for i, entry := range faq {
		score := TokenSortRatio(text, strings.ToLower(entry.Question))
		if !ok || score > match.Score {
			match = Match{Entry: entry, Index: i, Score: score}
			ok = true
		}
	}
	return match, ok
}

// RenderAnswer substitutes the user's name into a scripted answer.
func RenderAnswer(template, userName string) string {
	return strings.ReplaceAll(template, userNamePlaceholder, userName)
}
