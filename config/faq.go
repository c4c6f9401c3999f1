package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spacesedan/pulseai/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed faq.yaml
var defaultFAQ []byte

var ErrEmptyFAQ = errors.New("faq table has no usable entries")

// LoadFAQ reads the FAQ table from path, or the embedded table when path is
// empty.
func LoadFAQ(path string) ([]models.FAQEntry, error) {
	if path == "" {
		return ParseFAQ(defaultFAQ)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[Config] failed to read faq file %s: %w", path, err)
	}
	return ParseFAQ(raw)
}

// ParseFAQ decodes a YAML list of question/answer pairs, keeping file order.
// Questions are lowercased since incoming text is lowercased before matching.
func ParseFAQ(raw []byte) ([]models.FAQEntry, error) {
	var entries []models.FAQEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("[Config] failed to parse faq: %w", err)
	}

	faq := make([]models.FAQEntry, 0, len(entries))
	for i, e := range entries {
		question := strings.ToLower(strings.TrimSpace(e.Question))
		if question == "" || strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("[Config] faq entry %d is missing a question or answer", i)
		}
		faq = append(faq, models.FAQEntry{Question: question, Answer: e.Answer})
	}

	if len(faq) == 0 {
		return nil, ErrEmptyFAQ
	}
	return faq, nil
}
