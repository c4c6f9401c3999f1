package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

type stubSummarizer struct {
	summary string
	err     error
	calls   int
}

func (s *stubSummarizer) SummarizeSentence(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.summary, s.err
}

func TestFallbackTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", DefaultTitle},
		{"   ", DefaultTitle},
		{"?!... ,,", DefaultTitle},
		{"Hello!!! World??", "Hello World"},
		{"my order never arrived", "My Order Never Arrived"},
		{"one two three four five six seven", "One Two Three Four Five..."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FallbackTitle(tt.in), "input %q", tt.in)
	}
}

func TestFallbackTitle_HardCap(t *testing.T) {
	title := FallbackTitle("supercalifragilisticexpialidocious antidisestablishmentarianism words")
	assert.Equal(t, 50, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestTitleGenerator_AIMode(t *testing.T) {
	summarizer := &stubSummarizer{summary: `"Customer reports a broken blender"`}
	gen := NewTitleGenerator(summarizer)

	assert.Equal(t, "Customer reports a broken blender", gen.Generate(context.Background(), "ignored", true))
	assert.Equal(t, 1, summarizer.calls)
}

func TestTitleGenerator_AIModeCapsLength(t *testing.T) {
	summarizer := &stubSummarizer{summary: strings.Repeat("a", 80)}
	gen := NewTitleGenerator(summarizer)

	title := gen.Generate(context.Background(), "ignored", true)
	assert.Equal(t, strings.Repeat("a", 47)+"...", title)
}

func TestTitleGenerator_AIFailureFallsBack(t *testing.T) {
	gen := NewTitleGenerator(&stubSummarizer{err: errors.New("boom")})
	assert.Equal(t, "Hello World", gen.Generate(context.Background(), "Hello!!! World??", true))

	gen = NewTitleGenerator(&stubSummarizer{summary: `""`})
	assert.Equal(t, DefaultTitle, gen.Generate(context.Background(), "  ", true))
}

func TestTitleGenerator_FallbackSkipsSummarizer(t *testing.T) {
	summarizer := &stubSummarizer{summary: "unused"}
	gen := NewTitleGenerator(summarizer)

	assert.Equal(t, "Hello World", gen.Generate(context.Background(), "Hello!!! World??", false))
	assert.Zero(t, summarizer.calls)
}

func TestFirstSentenceSummarizer(t *testing.T) {
	gen := NewTitleGenerator(nil)

	title := gen.Generate(context.Background(), "My blender broke. I want a refund!", true)
	assert.Equal(t, "My blender broke.", title)
}
