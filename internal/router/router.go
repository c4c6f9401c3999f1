// Package router decides whether a message gets a scripted answer or a full
// analysis, and runs the analysis stages when it does not.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/pulseai/internal/analysis"
	"github.com/spacesedan/pulseai/internal/models"
	"github.com/spacesedan/pulseai/internal/monitoring"
	"github.com/spacesedan/pulseai/internal/sentiment"
	"github.com/spacesedan/pulseai/internal/text"
	"golang.org/x/sync/errgroup"
)

const DefaultThreshold = 75

type Config struct {
	// Threshold is the minimum token-sort score (0-100) for a scripted answer.
	Threshold     float64
	MaxTopics     int
	SummaryLength int
	RiskLexicon   []string
	FAQ           []models.FAQEntry
}

func DefaultConfig(faq []models.FAQEntry) Config {
	return Config{
		Threshold:     DefaultThreshold,
		MaxTopics:     analysis.DefaultMaxTopics,
		SummaryLength: analysis.DefaultSummaryLength,
		RiskLexicon:   analysis.DefaultRiskLexicon,
		FAQ:           faq,
	}
}

type Router struct {
	threshold     float64
	maxTopics     int
	summaryLength int
	faq           []models.FAQEntry
	risk          *analysis.RiskDetector
	classifier    sentiment.Classifier
}

// New builds a router. The FAQ table and lexicon are copied and never
// modified afterwards, so a Router is safe for concurrent use as long as the
// classifier is.
func New(cfg Config, classifier sentiment.Classifier) *Router {
	return &Router{
		threshold:     cfg.Threshold,
		maxTopics:     cfg.MaxTopics,
		summaryLength: cfg.SummaryLength,
		faq:           append([]models.FAQEntry(nil), cfg.FAQ...),
		risk:          analysis.NewRiskDetector(cfg.RiskLexicon),
		classifier:    classifier,
	}
}

// Route answers text for userName. A confident FAQ match returns a
// *models.HumanResponse without touching the analysis stages; anything else
// returns a *models.AnalysisResult. A sentiment failure fails the whole call.
func (r *Router) Route(ctx context.Context, userName, input string) (models.AnalysisResponse, error) {
	normalized := text.Normalize(input)

	if match, ok := BestMatch(normalized, r.faq); ok {
		slog.Debug("[IntentRouter] Best FAQ match",
			slog.String("question", match.Entry.Question),
			slog.Float64("score", match.Score))

		if match.Score >= r.threshold {
			monitoring.ObserveRoute(monitoring.BranchHuman)
			return &models.HumanResponse{
				Text: RenderAnswer(match.Entry.Answer, userName),
			}, nil
		}
	}

	result, err := r.Analyze(ctx, userName, input)
	if err != nil {
		monitoring.ObserveRoute(monitoring.BranchError)
		return nil, err
	}

	monitoring.ObserveRoute(monitoring.BranchAnalysis)
	return result, nil
}

// Analyze runs the analysis stages unconditionally. Sentiment and risk run
// in sequence; topics and summary run alongside them.
func (r *Router) Analyze(ctx context.Context, userName, input string) (*models.AnalysisResult, error) {
	start := time.Now()

	var (
		sentimentResult models.SentimentResult
		risk            bool
		topics          []string
		summary         string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := sentiment.Classify(gctx, r.classifier, input)
		if err != nil {
			return err
		}
		sentimentResult = res
		risk = r.risk.Detect(input, res.Label)
		return nil
	})
	g.Go(func() error {
		topics = analysis.ExtractTopics(input, r.maxTopics)
		return nil
	})
	g.Go(func() error {
		summary = analysis.Summarize(input, r.summaryLength)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("[IntentRouter] Analysis failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("[IntentRouter] analysis failed: %w", err)
	}

	feedback := analysis.ComposeFeedback(userName, sentimentResult, summary, topics, risk)

	slog.Info("[IntentRouter] Analysis complete",
		slog.String("sentiment", string(sentimentResult.Label)),
		slog.Bool("risk", risk),
		slog.Int("topics", len(topics)),
		slog.Duration("elapsed", time.Since(start)))

	return &models.AnalysisResult{
		Sentiment: sentimentResult,
		Topics:    topics,
		Risk:      risk,
		Summary:   summary,
		Feedback:  feedback,
	}, nil
}
