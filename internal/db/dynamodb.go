package db

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/pulseai/internal/models"
)

const (
	HISTORY_TABLE_NAME  = "AnalysisHistory"
	DYNAMODB_BATCH_SIZE = 25
	HISTORY_TTL         = 90 * 24 * time.Hour

	maxUnprocessedRetries = 3
)

// dynamoAPI is the part of *dynamodb.Client the history store needs.
type dynamoAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// HistoryStore keeps analysis records keyed by user_id and request_id.
type HistoryStore struct {
	client       dynamoAPI
	table        string
	ttl          time.Duration
	retryBackoff time.Duration
}

func NewHistoryStore(client dynamoAPI, table string) *HistoryStore {
	if table == "" {
		table = HISTORY_TABLE_NAME
	}
	return &HistoryStore{
		client:       client,
		table:        table,
		ttl:          HISTORY_TTL,
		retryBackoff: 500 * time.Millisecond,
	}
}

// BatchInsertRecords writes records in chunks of 25, retrying unprocessed
// items with exponential backoff.
func (s *HistoryStore) BatchInsertRecords(ctx context.Context, records []models.AnalysisRecord) error {
	expiresAt := time.Now().Add(s.ttl).Unix()

	for i := 0; i < len(records); i += DYNAMODB_BATCH_SIZE {
		if err := ctx.Err(); err != nil {
			slog.Warn("[DynamoDB] context canceled")
			return err
		}

		end := min(i+DYNAMODB_BATCH_SIZE, len(records))
		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, record := range records[i:end] {
			record.TTL = expiresAt
			item, err := attributevalue.MarshalMap(record)
			if err != nil {
				return fmt.Errorf("[DynamoDB] Failed to marshal record %s: %w", record.RequestID, err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := s.writeBatch(ctx, writeRequests); err != nil {
			return err
		}
	}

	slog.Info("[DynamoDB] Stored analysis records", slog.Int("count", len(records)))
	return nil
}

func (s *HistoryStore) writeBatch(ctx context.Context, writeRequests []types.WriteRequest) error {
	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			s.table: writeRequests,
		},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to batch write analysis records: %w", err)
	}

	retryCount := 0
	backoff := s.retryBackoff
	for len(out.UnprocessedItems) > 0 && retryCount < maxUnprocessedRetries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2

		slog.Warn("[DynamoDB] Retrying unprocessed analysis records...",
			slog.Int("attempt", retryCount+1),
			slog.Int("remaining", len(out.UnprocessedItems[s.table])))

		out, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Retry error %w", err)
		}
		retryCount++
	}

	if remaining := len(out.UnprocessedItems[s.table]); remaining > 0 {
		slog.Error("[DynamoDB] Some records were not written even after retries",
			slog.Int("remaining_items", remaining))
		return fmt.Errorf("[DynamoDB] %d records left unprocessed", remaining)
	}
	return nil
}

// ListByUser returns every record of userID, newest first.
func (s *HistoryStore) ListByUser(ctx context.Context, userID int64) ([]models.AnalysisRecord, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberN{Value: strconv.FormatInt(userID, 10)},
		},
	})

	var records []models.AnalysisRecord
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Query for history failed: %w", err)
		}

		var page []models.AnalysisRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			slog.Error("[DynamoDB] Unable to unmarshal history page", slog.String("error", err.Error()))
			return nil, err
		}
		records = append(records, page...)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})

	slog.Debug("[DynamoDB] Retrieved history",
		slog.Int64("user_id", userID),
		slog.Int("count", len(records)))
	return records, nil
}
