package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/pulseai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	batches          []map[string][]types.WriteRequest
	unprocessedTimes int
	writeErr         error

	pages    [][]map[string]types.AttributeValue
	queries  []*dynamodb.QueryInput
	queryErr error
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.batches = append(f.batches, in.RequestItems)
	if f.unprocessedTimes > 0 {
		f.unprocessedTimes--
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: in.RequestItems}, nil
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	page := len(f.queries)
	f.queries = append(f.queries, in)

	out := &dynamodb.QueryOutput{}
	if page < len(f.pages) {
		out.Items = f.pages[page]
	}
	if page+1 < len(f.pages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"request_id": &types.AttributeValueMemberS{Value: "cursor"},
		}
	}
	return out, nil
}

func newTestHistoryStore(client dynamoAPI) *HistoryStore {
	store := NewHistoryStore(client, "TestHistory")
	store.retryBackoff = time.Millisecond
	return store
}

func makeRecords(n int) []models.AnalysisRecord {
	records := make([]models.AnalysisRecord, n)
	for i := range records {
		records[i] = models.AnalysisRecord{
			UserID:     1,
			RequestID:  string(rune('a' + i%26)),
			Sentiment:  models.SentimentNegative,
			Confidence: 0.9,
			Topics:     []string{"broken"},
			CreatedAt:  int64(i),
		}
	}
	return records
}

func TestBatchInsertRecords_Chunks(t *testing.T) {
	fake := &fakeDynamo{}
	store := newTestHistoryStore(fake)

	require.NoError(t, store.BatchInsertRecords(context.Background(), makeRecords(60)))

	require.Len(t, fake.batches, 3)
	assert.Len(t, fake.batches[0]["TestHistory"], 25)
	assert.Len(t, fake.batches[1]["TestHistory"], 25)
	assert.Len(t, fake.batches[2]["TestHistory"], 10)

	var stored models.AnalysisRecord
	require.NoError(t, attributevalue.UnmarshalMap(fake.batches[0]["TestHistory"][0].PutRequest.Item, &stored))
	assert.Equal(t, models.SentimentNegative, stored.Sentiment)
	assert.Greater(t, stored.TTL, time.Now().Unix())
}

func TestBatchInsertRecords_RetriesUnprocessed(t *testing.T) {
	fake := &fakeDynamo{unprocessedTimes: 2}
	store := newTestHistoryStore(fake)

	require.NoError(t, store.BatchInsertRecords(context.Background(), makeRecords(3)))
	assert.Len(t, fake.batches, 3)
}

func TestBatchInsertRecords_GivesUp(t *testing.T) {
	fake := &fakeDynamo{unprocessedTimes: 10}
	store := newTestHistoryStore(fake)

	err := store.BatchInsertRecords(context.Background(), makeRecords(3))
	require.Error(t, err)
	assert.Len(t, fake.batches, 1+maxUnprocessedRetries)
}

func TestBatchInsertRecords_WriteError(t *testing.T) {
	boom := errors.New("throttled")
	store := newTestHistoryStore(&fakeDynamo{writeErr: boom})

	assert.ErrorIs(t, store.BatchInsertRecords(context.Background(), makeRecords(1)), boom)
}

func TestListByUser_NewestFirstAcrossPages(t *testing.T) {
	marshal := func(r models.AnalysisRecord) map[string]types.AttributeValue {
		item, err := attributevalue.MarshalMap(r)
		require.NoError(t, err)
		return item
	}

	fake := &fakeDynamo{pages: [][]map[string]types.AttributeValue{
		{marshal(models.AnalysisRecord{UserID: 7, RequestID: "old", CreatedAt: 100})},
		{marshal(models.AnalysisRecord{UserID: 7, RequestID: "new", CreatedAt: 300}),
			marshal(models.AnalysisRecord{UserID: 7, RequestID: "mid", CreatedAt: 200})},
	}}
	store := newTestHistoryStore(fake)

	records, err := store.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"new", "mid", "old"},
		[]string{records[0].RequestID, records[1].RequestID, records[2].RequestID})

	require.Len(t, fake.queries, 2)
	assert.Equal(t, "TestHistory", *fake.queries[0].TableName)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, fake.queries[0].ExpressionAttributeValues[":uid"])
}

func TestListByUser_QueryError(t *testing.T) {
	boom := errors.New("table missing")
	_, err := newTestHistoryStore(&fakeDynamo{queryErr: boom}).ListByUser(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}
