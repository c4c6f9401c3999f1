package consumers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/pulseai/internal/clients/kafka_client"
	"github.com/spacesedan/pulseai/internal/conversation"
	"github.com/spacesedan/pulseai/internal/db"
	"github.com/spacesedan/pulseai/internal/models"
	"github.com/spacesedan/pulseai/internal/monitoring"
	"github.com/spacesedan/pulseai/internal/sentiment"
	"github.com/spacesedan/pulseai/internal/utils"
)

const (
	analyzeAttempts   = 3
	maxPublishBackoff = 30 * time.Second
)

type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisEvent, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type messageSource interface {
	Next() (*kafka.Message, error)
}

type offsetCommitter interface {
	Commit(msg *kafka.Message) error
}

type requestConsumer struct {
	analyzer   Analyzer
	publisher  Publisher
	source     messageSource
	committer  offsetCommitter
	health     []*atomic.Bool
	retryDelay time.Duration
	healthPoll time.Duration
}

// StartAnalysisRequestConsumer returns a consumer that routes every request
// on the analysis-request topic and publishes the resulting event to
// analysis-results. Consumption pauses while any health flag is false.
func StartAnalysisRequestConsumer(analyzer Analyzer, publisher Publisher) func(context.Context, *kafka.Consumer, ...*atomic.Bool) {
	return func(ctx context.Context, consumer *kafka.Consumer, health ...*atomic.Bool) {
		rc := &requestConsumer{
			analyzer:   analyzer,
			publisher:  publisher,
			source:     kafka_client.NewKafkaMessageIterator(ctx, consumer),
			committer:  kafka_client.NewCommitHandler(ctx, consumer),
			health:     health,
			retryDelay: kafka_client.RETRY_DELAY,
			healthPoll: healthPollInterval,
		}
		rc.run(ctx)
	}
}

func (rc *requestConsumer) run(ctx context.Context) {
	slog.Info("[AnalysisRequestConsumer] Listening for messages...")

	for {
		if ctx.Err() != nil || !waitHealthy(ctx, rc.health, rc.healthPoll) {
			slog.Warn("[AnalysisRequestConsumer] Stopping consumer...")
			return
		}

		msg, err := rc.source.Next()
		if errors.Is(err, kafka_client.ErrIdle) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				slog.Warn("[AnalysisRequestConsumer] Stopping consumer...")
				return
			}
			utils.HandleConsumerError(err)
			continue
		}

		status := rc.process(ctx, msg)
		monitoring.ObserveConsumed(kafka_client.KAFKA_TOPIC_ANALYSIS_REQUEST, status)
		if status == statusUnpublished {
			// Shutting down before the event went out; the request is
			// consumed again after restart.
			continue
		}

		if err := rc.committer.Commit(msg); err != nil {
			slog.Warn("[AnalysisRequestConsumer] Failed to commit offset",
				slog.String("error", err.Error()))
		}
	}
}

const statusUnpublished = "unpublished"

// process handles one message and returns its outcome label. Every outcome
// except statusUnpublished ends with the offset being committed.
// Transient analysis failures are retried first, and publishing is retried
// until it succeeds or ctx ends.
func (rc *requestConsumer) process(ctx context.Context, msg *kafka.Message) string {
	var req models.AnalysisRequest
	if err := utils.DeserializeFromJSON(msg.Value, &req); err != nil {
		return "malformed"
	}

	event, err := rc.analyzeWithRetry(ctx, req)
	if errors.Is(err, conversation.ErrInvalidInput) {
		slog.Warn("[AnalysisRequestConsumer] Dropping request without text",
			slog.String("request_id", req.RequestID))
		return "invalid"
	}
	if err != nil {
		slog.Error("[AnalysisRequestConsumer] Giving up on request",
			slog.String("request_id", req.RequestID),
			slog.String("error", err.Error()))
		return "failed"
	}

	if err := rc.publishWithRetry(ctx, event); err != nil {
		slog.Warn("[AnalysisRequestConsumer] Event not published, leaving offset uncommitted",
			slog.String("request_id", event.RequestID),
			slog.String("error", err.Error()))
		return statusUnpublished
	}
	return "ok"
}

// retryable reports whether a failed Analyze is worth repeating. Rejected
// input, unknown chats and malformed model output fail the same way every
// time. Chat writes are idempotent per request id, so repeating is safe.
func retryable(err error) bool {
	return !errors.Is(err, conversation.ErrInvalidInput) &&
		!errors.Is(err, db.ErrChatNotFound) &&
		!errors.Is(err, db.ErrInvalidMessage) &&
		!errors.Is(err, sentiment.ErrMalformedResult) &&
		!errors.Is(err, context.Canceled)
}

func (rc *requestConsumer) analyzeWithRetry(ctx context.Context, req models.AnalysisRequest) (models.AnalysisEvent, error) {
	var lastErr error
	for attempt := 1; attempt <= analyzeAttempts; attempt++ {
		event, err := rc.analyzer.Analyze(ctx, req)
		if err == nil || !retryable(err) {
			return event, err
		}
		lastErr = err

		slog.Warn("[AnalysisRequestConsumer] Analysis failed, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if attempt == analyzeAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return models.AnalysisEvent{}, ctx.Err()
		case <-time.After(rc.retryDelay):
		}
	}
	return models.AnalysisEvent{}, lastErr
}

// publishWithRetry backs off from retryDelay up to maxPublishBackoff. It
// only gives up when ctx ends.
func (rc *requestConsumer) publishWithRetry(ctx context.Context, event models.AnalysisEvent) error {
	backoff := rc.retryDelay
	for attempt := 1; ; attempt++ {
		err := rc.publisher.Publish(ctx, kafka_client.KAFKA_TOPIC_ANALYSIS_RESULTS, event.RequestID, event)
		if err == nil {
			return nil
		}

		slog.Error("[AnalysisRequestConsumer] Failed to publish analysis event",
			slog.String("request_id", event.RequestID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxPublishBackoff)
	}
}
