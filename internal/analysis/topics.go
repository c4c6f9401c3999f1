package analysis

import (
	"sort"
	"unicode/utf8"

	"github.com/spacesedan/pulseai/internal/text"
)

const DefaultMaxTopics = 5

// minTopicLength drops short tokens such as "a", "is" and "the".
const minTopicLength = 3

// ExtractTopics returns up to maxTopics keywords ordered by descending
// frequency. Ties keep the order in which the words first appear.
func ExtractTopics(input string, maxTopics int) []string {
	if maxTopics <= 0 {
		return []string{}
	}

	counts := make(map[string]int)
	var order []string
	for _, word := range text.Tokenize(input) {
		if utf8.RuneCountInString(word) < minTopicLength {
			continue
		}
		if _, seen := counts[word]; !seen {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxTopics {
		order = order[:maxTopics]
	}
	if order == nil {
		return []string{}
	}
	return order
}
