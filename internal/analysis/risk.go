package analysis

import (
	"strings"

	"github.com/spacesedan/pulseai/internal/models"
)

// DefaultRiskLexicon is the built-in list of complaint words.
var DefaultRiskLexicon = []string{"refund", "scam", "lawsuit", "angry", "broken", "bad", "delay", "hate"}

type RiskDetector struct {
	lexicon []string
}

// NewRiskDetector copies and lowercases lexicon. Blank terms are ignored so
// they cannot match every input.
func NewRiskDetector(lexicon []string) *RiskDetector {
	terms := make([]string, 0, len(lexicon))
	for _, term := range lexicon {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			terms = append(terms, term)
		}
	}
	return &RiskDetector{lexicon: terms}
}

// Detect flags text as risky when it contains a lexicon term or when the
// sentiment label is NEGATIVE. Pass an empty label when no sentiment is
// available.
func (d *RiskDetector) Detect(text string, label models.SentimentLabel) bool {
	lower := strings.ToLower(text)
	for _, term := range d.lexicon {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return label == models.SentimentNegative
}

func (d *RiskDetector) Lexicon() []string {
	return append([]string(nil), d.lexicon...)
}
