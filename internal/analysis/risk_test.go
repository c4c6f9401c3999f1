package analysis

import (
	"testing"

	"github.com/spacesedan/pulseai/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRiskDetector_Detect(t *testing.T) {
	detector := NewRiskDetector(DefaultRiskLexicon)

	tests := []struct {
		text  string
		label models.SentimentLabel
		want  bool
	}{
		{"This is a total scam", models.SentimentPositive, true},
		{"Great job", models.SentimentNegative, true},
		{"Great job", models.SentimentPositive, false},
		{"I want a REFUND now", "", true},
		{"badge collected", "", true},
		{"all good here", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, detector.Detect(tt.text, tt.label), "text %q label %q", tt.text, tt.label)
	}
}

func TestNewRiskDetector_IgnoresBlankTerms(t *testing.T) {
	detector := NewRiskDetector([]string{" ", "", " Outage "})

	assert.Equal(t, []string{"outage"}, detector.Lexicon())
	assert.False(t, detector.Detect("everything is fine", models.SentimentPositive))
	assert.True(t, detector.Detect("There was an OUTAGE", models.SentimentPositive))
}
