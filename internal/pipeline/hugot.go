//go:build hugot

package pipeline

import (
	"log/slog"

	"github.com/spacesedan/pulseai/internal/sentiment"
	"github.com/spacesedan/pulseai/internal/sentiment/hugotclassifier"
)

func newHugotClassifier(modelPath, libraryPath string) (sentiment.Classifier, func(), error) {
	hc, err := hugotclassifier.New(modelPath, libraryPath)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := hc.Close(); err != nil {
			slog.Warn("[Pipeline] Failed to close hugot session", slog.String("error", err.Error()))
		}
	}
	return hc, closeFn, nil
}
