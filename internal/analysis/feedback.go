package analysis

import (
	"fmt"
	"strings"

	"github.com/spacesedan/pulseai/internal/models"
)

const (
	noTopicsText = "no specific topics"
	riskyText    = "⚠️ I detected some risky content, be cautious!"
	safeText     = "✅ Everything looks safe."
	closingText  = "Based on this, I think you can use this feedback to improve or reflect accordingly!"
)

// ComposeFeedback renders the analysis as the message shown to the user.
// Every section is always present.
func ComposeFeedback(userName string, sentiment models.SentimentResult, summary string, topics []string, risk bool) string {
	topicsText := noTopicsText
	if len(topics) > 0 {
		topicsText = strings.Join(topics, ", ")
	}

	riskText := safeText
	if risk {
		riskText = riskyText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s! Here's your analysis results:\n\n", userName)
	fmt.Fprintf(&b, "Sentiment: %s (%.1f%% confidence)\n", sentiment.Label, sentiment.Confidence*100)
	fmt.Fprintf(&b, "Summary: %s\n", summary)
	fmt.Fprintf(&b, "Key topics: %s\n", topicsText)
	fmt.Fprintf(&b, "%s\n\n", riskText)
	b.WriteString(closingText)

	return b.String()
}
