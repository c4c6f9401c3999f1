package consumers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/pulseai/internal/clients/kafka_client"
	"github.com/spacesedan/pulseai/internal/models"
	"github.com/spacesedan/pulseai/internal/monitoring"
	"github.com/spacesedan/pulseai/internal/utils"
)

const (
	insertAttempts    = 3
	finalFlushTimeout = 10 * time.Second
)

type RecordWriter interface {
	BatchInsertRecords(ctx context.Context, records []models.AnalysisRecord) error
}

// pendingResult pairs a consumed message with the record it produced.
// Record is nil for events that are not stored (scripted answers and
// unreadable payloads); their offsets are still committed with the batch.
type pendingResult struct {
	record *models.AnalysisRecord
	msg    *kafka.Message
}

type resultsConsumer struct {
	store         RecordWriter
	source        messageSource
	committer     offsetCommitter
	buffer        *utils.BatchBuffer[pendingResult]
	retryDelay    time.Duration
	flushInterval time.Duration
	// failed holds a batch whose write did not succeed. While it is set no
	// new messages are read, so no later offset can be committed past it.
	failed []pendingResult
}

// StartResultsConsumer stores analysis events from analysis-results in the
// history table, in batches of utils.BATCH_SIZE or every utils.BATCH_TIMEOUT.
func StartResultsConsumer(store RecordWriter) func(context.Context, *kafka.Consumer, ...*atomic.Bool) {
	return func(ctx context.Context, consumer *kafka.Consumer, _ ...*atomic.Bool) {
		rc := &resultsConsumer{
			store:  store,
			source: kafka_client.NewKafkaMessageIterator(ctx, consumer),
			// Commits must outlive ctx so the final flush can commit.
			committer:     kafka_client.NewCommitHandler(context.WithoutCancel(ctx), consumer),
			buffer:        utils.NewBatchBuffer[pendingResult](),
			retryDelay:    kafka_client.RETRY_DELAY,
			flushInterval: utils.BATCH_TIMEOUT,
		}
		rc.run(ctx)
	}
}

func (rc *resultsConsumer) run(ctx context.Context) {
	slog.Info("[ResultsConsumer] Listening for messages...")

	ticker := time.NewTicker(rc.flushInterval)
	defer ticker.Stop()

	for {
		if rc.failed != nil {
			// Retry the failed batch on every tick before reading on.
			select {
			case <-ctx.Done():
				rc.shutdown(ctx)
				return
			case <-ticker.C:
				rc.flush(ctx)
			}
			continue
		}

		select {
		case <-ctx.Done():
			rc.shutdown(ctx)
			return
		case <-ticker.C:
			rc.flush(ctx)
		default:
			msg, err := rc.source.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, kafka_client.ErrIdle) {
					utils.HandleConsumerError(err)
				}
				continue
			}

			if rc.add(msg) {
				rc.flush(ctx)
			}
		}
	}
}

func (rc *resultsConsumer) shutdown(ctx context.Context) {
	slog.Warn("[ResultsConsumer] Stopping consumer...")
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
	defer cancel()
	rc.flush(flushCtx)
}

// add buffers msg and reports whether the batch is full.
func (rc *resultsConsumer) add(msg *kafka.Message) bool {
	var event models.AnalysisEvent
	if err := utils.DeserializeFromJSON(msg.Value, &event); err != nil {
		monitoring.ObserveConsumed(kafka_client.KAFKA_TOPIC_ANALYSIS_RESULTS, "malformed")
		return rc.buffer.Add(pendingResult{msg: msg})
	}

	record, ok := models.RecordFromEvent(event)
	if !ok {
		monitoring.ObserveConsumed(kafka_client.KAFKA_TOPIC_ANALYSIS_RESULTS, "skipped")
		return rc.buffer.Add(pendingResult{msg: msg})
	}

	monitoring.ObserveConsumed(kafka_client.KAFKA_TOPIC_ANALYSIS_RESULTS, "ok")
	return rc.buffer.Add(pendingResult{record: &record, msg: msg})
}

// flush writes the pending batch and commits its offsets. A batch that
// still fails after insertAttempts is kept in rc.failed and retried by the
// next flush; nothing is committed until it is written.
func (rc *resultsConsumer) flush(ctx context.Context) {
	batch := rc.failed
	if batch == nil {
		if !rc.buffer.HasData() {
			return
		}
		rc.buffer.LogBatchProcessing(kafka_client.KAFKA_TOPIC_ANALYSIS_RESULTS)
		batch = rc.buffer.GetAndClear()
	}

	records := make([]models.AnalysisRecord, 0, len(batch))
	msgs := make([]*kafka.Message, 0, len(batch))
	for _, pending := range batch {
		if pending.record != nil {
			records = append(records, *pending.record)
		}
		msgs = append(msgs, pending.msg)
	}

	if len(records) > 0 {
		if err := rc.insert(ctx, records); err != nil {
			slog.Error("[ResultsConsumer] Failed to write results to DB, holding batch",
				slog.String("error", err.Error()),
				slog.Int("records", len(records)))
			rc.failed = batch
			return
		}
	}
	rc.failed = nil

	for _, msg := range utils.LatestPerPartition(msgs) {
		if err := rc.committer.Commit(msg); err != nil {
			slog.Warn("[ResultsConsumer] Failed to commit offset",
				slog.String("error", err.Error()))
		}
	}
}

func (rc *resultsConsumer) insert(ctx context.Context, records []models.AnalysisRecord) error {
	var insertErr error
	for i := 0; i < insertAttempts; i++ {
		insertErr = rc.store.BatchInsertRecords(ctx, records)
		if insertErr == nil {
			return nil
		}
		slog.Error("[ResultsConsumer] Failed to write results to DB",
			slog.String("error", insertErr.Error()),
			slog.Int("attempt", i+1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rc.retryDelay):
		}
	}
	return insertErr
}
