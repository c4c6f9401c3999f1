// Package pipeline wires the router, its classifier backend and the title
// generator from Settings. Both binaries build their core through it.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/spacesedan/pulseai/config"
	"github.com/spacesedan/pulseai/internal/analysis"
	"github.com/spacesedan/pulseai/internal/clients"
	"github.com/spacesedan/pulseai/internal/models"
	"github.com/spacesedan/pulseai/internal/monitoring"
	"github.com/spacesedan/pulseai/internal/router"
	"github.com/spacesedan/pulseai/internal/sentiment"
)

type Components struct {
	Router     *router.Router
	Classifier sentiment.Classifier
	Titles     *analysis.TitleGenerator
	// Health is set when the classifier depends on a remote service.
	Health  monitoring.HealthChecker
	closers []func()
}

// Close releases the classifier and cache connections in reverse order.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// RouterConfig maps the tunables onto a router.Config.
func RouterConfig(settings config.Settings, faq []models.FAQEntry) router.Config {
	cfg := router.DefaultConfig(faq)
	cfg.Threshold = settings.FuzzyThreshold
	cfg.MaxTopics = settings.MaxTopics
	cfg.SummaryLength = settings.SummaryMaxLength
	cfg.RiskLexicon = settings.RiskLexicon
	return cfg
}

func Build(settings config.Settings) (*Components, error) {
	faq, err := config.LoadFAQ(settings.FAQPath)
	if err != nil {
		return nil, fmt.Errorf("[Pipeline] failed to load FAQ: %w", err)
	}

	c := &Components{}
	classifier, err := c.newClassifier(settings)
	if err != nil {
		return nil, err
	}

	if settings.SentimentCacheTTL > 0 {
		store := clients.InitValkey()
		c.closers = append(c.closers, clients.CloseValkey)
		classifier = sentiment.NewCachedClassifier(classifier, store, settings.SentimentCacheTTL)
	}
	c.Classifier = classifier
	c.Router = router.New(RouterConfig(settings, faq), classifier)

	var summarizer analysis.SentenceSummarizer
	if settings.TitleUseAI && settings.OpenAIAPIKey != "" {
		summarizer = clients.GetOpenAIClient(settings.OpenAIAPIKey, settings.OpenAIModel)
	} else if settings.TitleUseAI {
		slog.Warn("[Pipeline] TITLE_USE_AI set without OPENAI_API_KEY, using first sentence titles")
	}
	c.Titles = analysis.NewTitleGenerator(summarizer)

	slog.Info("[Pipeline] Components ready",
		slog.String("backend", settings.SentimentBackend),
		slog.Int("faq_entries", len(faq)),
		slog.Duration("cache_ttl", settings.SentimentCacheTTL))
	return c, nil
}

func (c *Components) newClassifier(settings config.Settings) (sentiment.Classifier, error) {
	switch settings.SentimentBackend {
	case config.BackendVader:
		return sentiment.NewVaderClassifier(), nil
	case config.BackendHuggingFace:
		hf := clients.GetHuggingFaceClient()
		c.Health = hf
		return sentiment.NewRemoteClassifier(hf), nil
	case config.BackendHugot:
		if settings.HugotModelPath == "" {
			return nil, fmt.Errorf("[Pipeline] HUGOT_MODEL_PATH is required for the %s backend", config.BackendHugot)
		}
		classifier, closeFn, err := newHugotClassifier(settings.HugotModelPath, settings.OnnxLibraryPath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, closeFn)
		return classifier, nil
	default:
		return nil, fmt.Errorf("[Pipeline] unknown sentiment backend %q", settings.SentimentBackend)
	}
}
