package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/pulseai/internal/clients/kafka_client"
	"github.com/spacesedan/pulseai/internal/conversation"
	"github.com/spacesedan/pulseai/internal/db"
	"github.com/spacesedan/pulseai/internal/models"
	"github.com/spacesedan/pulseai/internal/router"
	"github.com/spacesedan/pulseai/internal/sentiment"
	"github.com/spacesedan/pulseai/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueSource hands out msgs in order and cancels the consumer once they
// run out.
type queueSource struct {
	msgs   []*kafka.Message
	cancel context.CancelFunc
}

func (q *queueSource) Next() (*kafka.Message, error) {
	if len(q.msgs) == 0 {
		q.cancel()
		return nil, context.Canceled
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return msg, nil
}

type recordingCommitter struct {
	mu        sync.Mutex
	committed []*kafka.Message
}

func (r *recordingCommitter) Commit(msg *kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msg)
	return nil
}

type published struct {
	topic string
	key   string
	value any
}

type recordingPublisher struct {
	sent []published
	// failures makes the first n calls fail; a negative value fails every call.
	failures int
	calls    int
	// onFailure runs after each failed call.
	onFailure func()
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, value any) error {
	p.calls++
	if p.failures < 0 || p.calls <= p.failures {
		if p.onFailure != nil {
			p.onFailure()
		}
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, published{topic: topic, key: key, value: value})
	return nil
}

func requestMessage(t *testing.T, req models.AnalysisRequest) *kafka.Message {
	t.Helper()
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return &kafka.Message{Value: raw}
}

func newService() *conversation.Service {
	faq := []models.FAQEntry{{Question: "who built pulseai", Answer: "Hello {user_name}! Built by Khutso Makunyane."}}
	classifier := sentiment.ClassifierFunc(func(context.Context, string) (models.SentimentResult, error) {
		return models.SentimentResult{Label: models.SentimentNegative, Confidence: 0.91}, nil
	})
	return conversation.NewService(conversation.Deps{Router: router.New(router.DefaultConfig(faq), classifier)})
}

func runRequests(t *testing.T, analyzer Analyzer, publisher Publisher, msgs ...*kafka.Message) *recordingCommitter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	committer := &recordingCommitter{}
	rc := &requestConsumer{
		analyzer:   analyzer,
		publisher:  publisher,
		source:     &queueSource{msgs: msgs, cancel: cancel},
		committer:  committer,
		retryDelay: time.Millisecond,
		healthPoll: time.Millisecond,
	}
	rc.run(ctx)
	return committer
}

func TestRequestConsumer_PublishesEvents(t *testing.T) {
	publisher := &recordingPublisher{}
	analysisMsg := requestMessage(t, models.AnalysisRequest{RequestID: "req-1", UserID: 7, UserName: "Alex", Text: "the product was broken"})
	faqMsg := requestMessage(t, models.AnalysisRequest{RequestID: "req-2", UserID: 7, UserName: "Alex", Text: "who built pulseai"})

	committer := runRequests(t, newService(), publisher, analysisMsg, faqMsg)

	require.Len(t, publisher.sent, 2)
	assert.Equal(t, kafka_client.KAFKA_TOPIC_ANALYSIS_RESULTS, publisher.sent[0].topic)
	assert.Equal(t, "req-1", publisher.sent[0].key)

	first := publisher.sent[0].value.(models.AnalysisEvent)
	assert.Equal(t, models.KindAnalysis, first.Response.Kind())
	second := publisher.sent[1].value.(models.AnalysisEvent)
	assert.Equal(t, models.KindHuman, second.Response.Kind())

	assert.Equal(t, []*kafka.Message{analysisMsg, faqMsg}, committer.committed)
}

func TestRequestConsumer_CommitsMalformedAndInvalid(t *testing.T) {
	publisher := &recordingPublisher{}
	malformed := &kafka.Message{Value: []byte("{not json")}
	blank := requestMessage(t, models.AnalysisRequest{RequestID: "req-3", UserName: "Alex", Text: "   "})

	committer := runRequests(t, newService(), publisher, malformed, blank)

	assert.Empty(t, publisher.sent)
	assert.Equal(t, []*kafka.Message{malformed, blank}, committer.committed)
}

type flakyAnalyzer struct {
	failures int
	calls    int
}

func (f *flakyAnalyzer) Analyze(_ context.Context, req models.AnalysisRequest) (models.AnalysisEvent, error) {
	f.calls++
	if f.calls <= f.failures {
		return models.AnalysisEvent{}, sentiment.ErrClassification
	}
	return models.AnalysisEvent{RequestID: req.RequestID, Response: &models.HumanResponse{Text: "ok"}}, nil
}

func TestRequestConsumer_RetriesAnalysis(t *testing.T) {
	analyzer := &flakyAnalyzer{failures: 2}
	publisher := &recordingPublisher{}

	committer := runRequests(t, analyzer, publisher, requestMessage(t, models.AnalysisRequest{RequestID: "req-4", Text: "hi"}))

	assert.Equal(t, 3, analyzer.calls)
	assert.Len(t, publisher.sent, 1)
	assert.Len(t, committer.committed, 1)
}

func TestRequestConsumer_GivesUpAfterAttempts(t *testing.T) {
	analyzer := &flakyAnalyzer{failures: 100}
	publisher := &recordingPublisher{}

	committer := runRequests(t, analyzer, publisher, requestMessage(t, models.AnalysisRequest{RequestID: "req-5", Text: "hi"}))

	assert.Equal(t, analyzeAttempts, analyzer.calls)
	assert.Empty(t, publisher.sent)
	assert.Len(t, committer.committed, 1)
}

func TestRequestConsumer_RetriesPublishBeforeCommit(t *testing.T) {
	publisher := &recordingPublisher{failures: 2}

	committer := runRequests(t, &flakyAnalyzer{}, publisher, requestMessage(t, models.AnalysisRequest{RequestID: "req-6", Text: "hi"}))

	assert.Equal(t, 3, publisher.calls)
	assert.Len(t, publisher.sent, 1)
	assert.Len(t, committer.committed, 1)
}

func TestRequestConsumer_UnpublishedEventIsNotCommitted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher := &recordingPublisher{failures: -1, onFailure: cancel}
	committer := &recordingCommitter{}
	rc := &requestConsumer{
		analyzer:   &flakyAnalyzer{},
		publisher:  publisher,
		source:     &queueSource{msgs: []*kafka.Message{requestMessage(t, models.AnalysisRequest{RequestID: "req-7", Text: "hi"})}, cancel: cancel},
		committer:  committer,
		retryDelay: time.Millisecond,
		healthPoll: time.Millisecond,
	}
	rc.run(ctx)

	assert.Empty(t, publisher.sent)
	assert.Empty(t, committer.committed)
}

type permanentFailure struct {
	err   error
	calls int
}

func (p *permanentFailure) Analyze(context.Context, models.AnalysisRequest) (models.AnalysisEvent, error) {
	p.calls++
	return models.AnalysisEvent{}, p.err
}

func TestRequestConsumer_DoesNotRetryPermanentFailures(t *testing.T) {
	for _, err := range []error{
		db.ErrChatNotFound,
		fmt.Errorf("%w: %w", sentiment.ErrClassification, sentiment.ErrMalformedResult),
	} {
		analyzer := &permanentFailure{err: err}
		committer := runRequests(t, analyzer, &recordingPublisher{}, requestMessage(t, models.AnalysisRequest{RequestID: "req-8", Text: "hi"}))

		assert.Equal(t, 1, analyzer.calls, err.Error())
		assert.Len(t, committer.committed, 1)
	}
}

// onceFailingChats fails the first exchange write without storing anything,
// like a rolled back transaction.
type onceFailingChats struct {
	failed    bool
	exchanges []models.Exchange
}

func (c *onceFailingChats) RecordExchange(_ context.Context, ex models.Exchange) (models.Chat, error) {
	if !c.failed {
		c.failed = true
		return models.Chat{}, errors.New("connection reset")
	}
	for _, stored := range c.exchanges {
		if stored.RequestID == ex.RequestID {
			return models.Chat{ID: 1, UserID: ex.UserID, Title: stored.Title}, nil
		}
	}
	c.exchanges = append(c.exchanges, ex)
	return models.Chat{ID: 1, UserID: ex.UserID, Title: ex.Title}, nil
}

func (c *onceFailingChats) ListChats(context.Context, int64) ([]models.Chat, error) { return nil, nil }

func (c *onceFailingChats) ListMessages(context.Context, int64, int64) ([]models.Message, error) {
	return nil, nil
}

func (c *onceFailingChats) DeleteChat(context.Context, int64, int64) error { return nil }

func TestRequestConsumer_StoreRetryRecordsExchangeOnce(t *testing.T) {
	chats := &onceFailingChats{}
	service := conversation.NewService(conversation.Deps{
		Router: router.New(router.DefaultConfig(nil), sentiment.NewVaderClassifier()),
		Chats:  chats,
	})
	publisher := &recordingPublisher{}

	committer := runRequests(t, service, publisher, requestMessage(t, models.AnalysisRequest{
		RequestID: "req-10", UserID: 7, UserName: "Alex", Text: "the box was crushed",
	}))

	require.Len(t, chats.exchanges, 1)
	assert.Equal(t, "req-10", chats.exchanges[0].RequestID)
	require.Len(t, publisher.sent, 1)
	assert.Equal(t, int64(1), publisher.sent[0].value.(models.AnalysisEvent).ChatID)
	assert.Len(t, committer.committed, 1)
}

func TestWaitHealthy(t *testing.T) {
	var healthy atomic.Bool
	assert.True(t, waitHealthy(context.Background(), nil, time.Millisecond))

	go func() {
		time.Sleep(10 * time.Millisecond)
		healthy.Store(true)
	}()
	assert.True(t, waitHealthy(context.Background(), []*atomic.Bool{&healthy}, time.Millisecond))

	var down atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, waitHealthy(ctx, []*atomic.Bool{&down}, time.Millisecond))
}

type recordingStore struct {
	batches [][]models.AnalysisRecord
	err     error
	// failures makes the first n calls fail.
	failures int
	calls    int
}

func (s *recordingStore) BatchInsertRecords(_ context.Context, records []models.AnalysisRecord) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	if s.calls <= s.failures {
		return errors.New("throttled")
	}
	s.batches = append(s.batches, records)
	return nil
}

func eventMessage(t *testing.T, partition int32, offset kafka.Offset, event models.AnalysisEvent) *kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	topic := kafka_client.KAFKA_TOPIC_ANALYSIS_RESULTS
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: partition, Offset: offset},
		Value:          raw,
	}
}

func newTestResultsConsumer(store RecordWriter, capacity int) (*resultsConsumer, *recordingCommitter) {
	committer := &recordingCommitter{}
	return &resultsConsumer{
		store:         store,
		committer:     committer,
		buffer:        utils.NewBatchBufferWithCapacity[pendingResult](capacity),
		retryDelay:    time.Millisecond,
		flushInterval: 5 * time.Millisecond,
	}, committer
}

func analysisEvent(id string) models.AnalysisEvent {
	return models.AnalysisEvent{
		RequestID: id,
		UserID:    7,
		Text:      "broken",
		Response: &models.AnalysisResult{
			Sentiment: models.SentimentResult{Label: models.SentimentNegative, Confidence: 0.9},
			Topics:    []string{"broken"},
			Risk:      true,
		},
		CreatedAt: time.Unix(1700000000, 0),
	}
}

func TestResultsConsumer_FlushStoresAnalysisOnly(t *testing.T) {
	store := &recordingStore{}
	rc, committer := newTestResultsConsumer(store, 10)

	first := eventMessage(t, 0, 10, analysisEvent("a"))
	human := eventMessage(t, 0, 11, models.AnalysisEvent{RequestID: "h", Response: &models.HumanResponse{Text: "hi"}})
	other := eventMessage(t, 1, 4, analysisEvent("b"))
	garbage := &kafka.Message{TopicPartition: first.TopicPartition, Value: []byte("nope")}
	garbage.TopicPartition.Offset = 12

	for _, msg := range []*kafka.Message{first, human, other, garbage} {
		assert.False(t, rc.add(msg))
	}
	rc.flush(context.Background())

	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 2)
	assert.Equal(t, "a", store.batches[0][0].RequestID)
	assert.Equal(t, "b", store.batches[0][1].RequestID)
	assert.Equal(t, int64(1700000000), store.batches[0][0].CreatedAt)

	require.Len(t, committer.committed, 2)
	assert.Equal(t, kafka.Offset(12), committer.committed[0].TopicPartition.Offset)
	assert.Equal(t, kafka.Offset(4), committer.committed[1].TopicPartition.Offset)

	rc.flush(context.Background())
	assert.Len(t, store.batches, 1)
}

func TestResultsConsumer_SignalsFullBatch(t *testing.T) {
	rc, _ := newTestResultsConsumer(&recordingStore{}, 2)

	assert.False(t, rc.add(eventMessage(t, 0, 1, analysisEvent("a"))))
	assert.True(t, rc.add(eventMessage(t, 0, 2, analysisEvent("b"))))
}

func TestResultsConsumer_FailedWriteLeavesOffsets(t *testing.T) {
	store := &recordingStore{err: errors.New("throttled")}
	rc, committer := newTestResultsConsumer(store, 10)

	rc.add(eventMessage(t, 0, 1, analysisEvent("a")))
	rc.flush(context.Background())

	assert.Equal(t, insertAttempts, store.calls)
	assert.Empty(t, committer.committed)
	assert.Len(t, rc.failed, 1)
}

func TestResultsConsumer_FailedBatchIsRetriedBeforeNewer(t *testing.T) {
	store := &recordingStore{failures: insertAttempts}
	rc, committer := newTestResultsConsumer(store, 10)

	rc.add(eventMessage(t, 0, 10, analysisEvent("held")))
	rc.flush(context.Background())
	require.Empty(t, committer.committed)

	rc.flush(context.Background())

	require.Len(t, store.batches, 1)
	assert.Equal(t, "held", store.batches[0][0].RequestID)
	require.Len(t, committer.committed, 1)
	assert.Equal(t, kafka.Offset(10), committer.committed[0].TopicPartition.Offset)
	assert.Nil(t, rc.failed)
}

func TestResultsConsumer_RunPausesUntilFailedBatchIsWritten(t *testing.T) {
	store := &recordingStore{failures: insertAttempts}
	rc, committer := newTestResultsConsumer(store, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rc.source = &queueSource{
		msgs: []*kafka.Message{
			eventMessage(t, 0, 10, analysisEvent("held")),
			eventMessage(t, 0, 11, analysisEvent("later")),
		},
		cancel: cancel,
	}

	rc.run(ctx)

	require.Len(t, store.batches, 2)
	assert.Equal(t, "held", store.batches[0][0].RequestID)
	assert.Equal(t, "later", store.batches[1][0].RequestID)

	var offsets []kafka.Offset
	for _, msg := range committer.committed {
		offsets = append(offsets, msg.TopicPartition.Offset)
	}
	assert.Equal(t, []kafka.Offset{10, 11}, offsets)
}

func TestResultsConsumer_HumanOnlyBatchCommitsWithoutWriting(t *testing.T) {
	store := &recordingStore{}
	rc, committer := newTestResultsConsumer(store, 10)

	rc.add(eventMessage(t, 0, 3, models.AnalysisEvent{RequestID: "h", Response: &models.HumanResponse{Text: "hi"}}))
	rc.flush(context.Background())

	assert.Zero(t, store.calls)
	assert.Len(t, committer.committed, 1)
}

func TestResultsConsumer_RunFlushesOnShutdown(t *testing.T) {
	store := &recordingStore{}
	rc, committer := newTestResultsConsumer(store, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rc.source = &queueSource{
		msgs:   []*kafka.Message{eventMessage(t, 0, 1, analysisEvent("a"))},
		cancel: cancel,
	}

	rc.run(ctx)

	require.Len(t, store.batches, 1)
	assert.Len(t, committer.committed, 1)
}
