package sentiment

import (
	"context"
	"html"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
	"github.com/spacesedan/pulseai/internal/models"
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

// VaderClassifier scores text with the VADER lexicon. It runs in process and
// needs no model files, which makes it the default backend.
type VaderClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderClassifier() *VaderClassifier {
	return &VaderClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Classify maps the compound score onto two labels: compound >= 0 is
// POSITIVE. Confidence grows from 0.5 at compound 0 to 1 at |compound| 1.
func (v *VaderClassifier) Classify(_ context.Context, text string) (models.SentimentResult, error) {
	plainText := ConvertMarkdownToText(text)
	compound := v.analyzer.PolarityScores(plainText).Compound

	label := models.SentimentPositive
	if compound < 0 {
		label = models.SentimentNegative
	}

	return models.SentimentResult{
		Label:      label,
		Confidence: math.Min(1, 0.5+math.Abs(compound)/2),
	}, nil
}

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

// ConvertMarkdownToText renders markdown and drops the markup so emphasis
// markers and links do not skew the lexicon lookup.
func ConvertMarkdownToText(input string) string {
	input = RemoveLinks(input)
	// The renderer keeps per-document state, so each call gets its own.
	plainRenderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.HTMLFlagsNone,
	})
	output := blackfriday.Run([]byte(input),
		blackfriday.WithNoExtensions(),
		blackfriday.WithRenderer(plainRenderer))
	plainText := html.UnescapeString(tagPattern.ReplaceAllString(string(output), " "))
	return strings.Join(strings.Fields(plainText), " ")
}
