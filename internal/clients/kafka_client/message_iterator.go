package kafka_client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// ErrIdle means no message arrived within one poll interval. Callers use
// it to service timers and check their context between reads.
var ErrIdle = errors.New("[KafkaIterator] no message within poll interval")

// MessageReader is the read side of *kafka.Consumer.
type MessageReader interface {
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
}

type KafkaMessageIterator struct {
	reader     MessageReader
	ctx        context.Context
	poll       time.Duration
	retryDelay time.Duration
}

func NewKafkaMessageIterator(ctx context.Context, reader MessageReader) *KafkaMessageIterator {
	return &KafkaMessageIterator{
		reader:     reader,
		ctx:        ctx,
		poll:       POLL_INTERVAL,
		retryDelay: RETRY_DELAY,
	}
}

// Next returns the next message, ErrIdle after an empty poll, or an error
// once reading has failed MAX_RETRIES times in a row.
func (it *KafkaMessageIterator) Next() (*kafka.Message, error) {
	if it.reader == nil {
		return nil, errors.New("[KafkaIterator] Kafka consumer has not been initialized")
	}

	failures := 0
	for failures < MAX_RETRIES {
		select {
		case <-it.ctx.Done():
			slog.Warn("[KafkaIterator] Context cancelled, stopping iterator")
			return nil, it.ctx.Err()
		default:
		}

		msg, err := it.reader.ReadMessage(it.poll)
		if err == nil {
			return msg, nil
		}

		var kafkaErr kafka.Error
		if errors.As(err, &kafkaErr) {
			switch kafkaErr.Code() {
			case kafka.ErrTimedOut:
				return nil, ErrIdle
			case kafka.ErrAllBrokersDown:
				slog.Error("[KafkaIterator] All Kafka brokers are down. Aborting")
				return nil, err
			}
		}

		failures++
		slog.Warn("[KafkaIterator] Failed to read message, retrying...",
			slog.Int("attempt", failures),
			slog.Int("max_retries", MAX_RETRIES),
			slog.String("error", err.Error()))

		select {
		case <-it.ctx.Done():
			return nil, it.ctx.Err()
		case <-time.After(it.retryDelay):
		}
	}
	return nil, errors.New("[KafkaIterator] Failed to read message after retries")
}
