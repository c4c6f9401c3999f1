package models

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
)

// Valid reports whether l is one of the two labels the pipeline understands.
func (l SentimentLabel) Valid() bool {
	return l == SentimentPositive || l == SentimentNegative
}

type SentimentResult struct {
	Label      SentimentLabel `json:"sentiment" dynamodbav:"sentiment"`
	Confidence float64        `json:"confidence" dynamodbav:"confidence"`
}
