// Package sentiment adapts sentiment models to the two-label contract the
// pipeline consumes.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spacesedan/pulseai/internal/models"
)

var (
	ErrClassification  = errors.New("sentiment classification failed")
	ErrMalformedResult = errors.New("malformed sentiment result")
)

// Classifier labels text POSITIVE or NEGATIVE with a confidence in [0,1].
type Classifier interface {
	Classify(ctx context.Context, text string) (models.SentimentResult, error)
}

type ClassifierFunc func(ctx context.Context, text string) (models.SentimentResult, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	return f(ctx, text)
}

// Classify calls c and checks the result. Every failure, including a
// malformed result, is wrapped in ErrClassification.
func Classify(ctx context.Context, c Classifier, text string) (models.SentimentResult, error) {
	if c == nil {
		return models.SentimentResult{}, fmt.Errorf("%w: no classifier configured", ErrClassification)
	}

	res, err := c.Classify(ctx, text)
	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("%w: %w", ErrClassification, err)
	}
	if err := Validate(res); err != nil {
		return models.SentimentResult{}, fmt.Errorf("%w: %w", ErrClassification, err)
	}
	return res, nil
}

func Validate(res models.SentimentResult) error {
	if !res.Label.Valid() {
		return fmt.Errorf("%w: unknown label %q", ErrMalformedResult, res.Label)
	}
	if math.IsNaN(res.Confidence) || res.Confidence < 0 || res.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedResult, res.Confidence)
	}
	return nil
}

// ParseLabel maps the label spellings used by common sentiment models onto
// the two pipeline labels.
func ParseLabel(raw string) (models.SentimentLabel, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "POSITIVE", "POS", "LABEL_1":
		return models.SentimentPositive, true
	case "NEGATIVE", "NEG", "LABEL_0":
		return models.SentimentNegative, true
	default:
		return "", false
	}
}
