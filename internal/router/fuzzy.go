package router

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// TokenSortRatio scores two strings from 0 to 100 after sorting their
// whitespace separated tokens, so word order does not matter. The score is
// the Indel similarity 2*LCS/(len(a)+len(b)) over characters.
func TokenSortRatio(a, b string) float64 {
	return ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	lcs := edlib.LCS(a, b)
	return 100 * float64(2*lcs) / float64(total)
}
