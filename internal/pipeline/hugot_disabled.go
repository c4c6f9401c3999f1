//go:build !hugot

package pipeline

import (
	"errors"

	"github.com/spacesedan/pulseai/internal/sentiment"
)

// ErrHugotUnavailable is returned for the hugot backend when the binary was
// built without the hugot tag.
var ErrHugotUnavailable = errors.New("[Pipeline] hugot backend not compiled in, rebuild with -tags hugot")

func newHugotClassifier(string, string) (sentiment.Classifier, func(), error) {
	return nil, nil, ErrHugotUnavailable
}
