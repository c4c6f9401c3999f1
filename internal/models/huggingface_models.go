package models

type SentimentAnalysisRequest struct {
	Text string `json:"text"`
}

// SentimentAnalysisResponse is the payload returned by the hosted
// sentiment service. Label is usually POSITIVE/NEGATIVE but some models
// answer in lower case or with LABEL_0/LABEL_1.
type SentimentAnalysisResponse struct {
	SentimentLabel string  `json:"sentiment_label"`
	Confidence     float64 `json:"confidence"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
