package sentiment

import (
	"context"
	"fmt"

	"github.com/spacesedan/pulseai/internal/models"
)

// SentimentAPI is the slice of the HuggingFace client the remote classifier uses.
type SentimentAPI interface {
	ClassifySentiment(ctx context.Context, text string) (models.SentimentAnalysisResponse, error)
}

// RemoteClassifier delegates to a hosted sentiment service.
type RemoteClassifier struct {
	api SentimentAPI
}

func NewRemoteClassifier(api SentimentAPI) *RemoteClassifier {
	return &RemoteClassifier{api: api}
}

func (r *RemoteClassifier) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	resp, err := r.api.ClassifySentiment(ctx, text)
	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("[RemoteClassifier] request failed: %w", err)
	}

	label, ok := ParseLabel(resp.SentimentLabel)
	if !ok {
		return models.SentimentResult{}, fmt.Errorf("%w: unknown label %q", ErrMalformedResult, resp.SentimentLabel)
	}

	return models.SentimentResult{Label: label, Confidence: resp.Confidence}, nil
}
