//go:build hugot

// Package hugotclassifier runs a local ONNX sentiment model through hugot.
// It links libtokenizers and onnxruntime, so it is only compiled with the
// hugot build tag.
package hugotclassifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/spacesedan/pulseai/internal/models"
	"github.com/spacesedan/pulseai/internal/sentiment"
)

type textClassifier interface {
	RunPipeline(inputs []string) (*pipelines.TextClassificationOutput, error)
}

// Classifier runs a local ONNX text-classification model.
type Classifier struct {
	pipeline textClassifier
	session  *hugot.Session
}

// New loads the model at modelPath on an onnxruntime session. An empty
// libraryPath uses the runtime's default lookup. Close releases the session;
// onnxruntime allows one live session per process.
func New(modelPath, libraryPath string) (*Classifier, error) {
	var opts []options.WithOption
	if libraryPath != "" {
		opts = append(opts, options.WithOnnxLibraryPath(libraryPath))
	}

	session, err := hugot.NewORTSession(opts...)
	if err != nil {
		return nil, fmt.Errorf("[HugotClassifier] failed to initialize session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "pulseaiSentimentPipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("[HugotClassifier] failed to initialize pipeline: %w", err)
	}

	slog.Info("[HugotClassifier] Model loaded", slog.String("path", modelPath))
	return &Classifier{pipeline: pipeline, session: session}, nil
}

// Classify takes the highest scoring label of the model output.
func (h *Classifier) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return models.SentimentResult{}, err
	}

	output, err := h.pipeline.RunPipeline([]string{text})
	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("[HugotClassifier] pipeline failed: %w", err)
	}
	if output == nil || len(output.ClassificationOutputs) == 0 || len(output.ClassificationOutputs[0]) == 0 {
		return models.SentimentResult{}, fmt.Errorf("%w: empty model output", sentiment.ErrMalformedResult)
	}

	best := output.ClassificationOutputs[0][0]
	for _, candidate := range output.ClassificationOutputs[0][1:] {
		if candidate.Score > best.Score {
			best = candidate
		}
	}

	label, ok := sentiment.ParseLabel(best.Label)
	if !ok {
		return models.SentimentResult{}, fmt.Errorf("%w: unknown label %q", sentiment.ErrMalformedResult, best.Label)
	}

	return models.SentimentResult{Label: label, Confidence: float64(best.Score)}, nil
}

func (h *Classifier) Close() error {
	if h.session == nil {
		return nil
	}
	return h.session.Destroy()
}
