package analysis

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/spacesedan/pulseai/internal/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultTitle = "New Chat"

	maxTitleLength     = 50
	maxTitleWords      = 5
	sentenceSummaryLen = 100
)

// SentenceSummarizer produces a one sentence summary of text.
type SentenceSummarizer interface {
	SummarizeSentence(ctx context.Context, text string) (string, error)
}

// FirstSentenceSummarizer takes the first sentence of the text and runs it
// through Summarize.
type FirstSentenceSummarizer struct {
	MaxLength int
}

func (f FirstSentenceSummarizer) SummarizeSentence(_ context.Context, input string) (string, error) {
	maxLength := f.MaxLength
	if maxLength <= 0 {
		maxLength = sentenceSummaryLen
	}

	trimmed := strings.TrimSpace(input)
	sentence := trimmed
	if i := strings.IndexAny(trimmed, ".!?"); i > 0 {
		sentence = trimmed[:i+1]
	}
	return Summarize(sentence, maxLength), nil
}

type TitleGenerator struct {
	summarizer SentenceSummarizer
}

// NewTitleGenerator uses FirstSentenceSummarizer when summarizer is nil.
func NewTitleGenerator(summarizer SentenceSummarizer) *TitleGenerator {
	if summarizer == nil {
		summarizer = FirstSentenceSummarizer{MaxLength: sentenceSummaryLen}
	}
	return &TitleGenerator{summarizer: summarizer}
}

// Generate derives a chat title from the first message of a chat. It never
// returns an empty string.
func (g *TitleGenerator) Generate(ctx context.Context, input string, useAI bool) string {
	if useAI {
		summary, err := g.summarizer.SummarizeSentence(ctx, input)
		if err != nil {
			slog.Warn("[TitleGenerator] AI summary failed, using fallback title",
				slog.String("error", err.Error()))
		} else if title := cleanSummaryTitle(summary); title != "" {
			return title
		}
	}
	return FallbackTitle(input)
}

// FallbackTitle builds a title from the first five words of the message.
func FallbackTitle(input string) string {
	words := text.Words(text.StripPunctuation(strings.TrimSpace(input)))
	if len(words) == 0 {
		return DefaultTitle
	}

	n := min(len(words), maxTitleWords)
	title := cases.Title(language.English).String(strings.Join(words[:n], " "))
	if len(words) > maxTitleWords {
		title += ellipsis
	}
	return capTitle(title)
}

func cleanSummaryTitle(summary string) string {
	summary = strings.Trim(summary, `"`)
	summary = strings.Trim(summary, "'")
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return ""
	}
	return capTitle(summary)
}

func capTitle(title string) string {
	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxTitleLength-len(ellipsis)]) + ellipsis
}
