package kafka_client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/pulseai/internal/utils"
)

// KafkaProducer publishes JSON payloads inside a transaction so a batch is
// either fully visible to read_committed consumers or not at all.
type KafkaProducer struct {
	producer *kafka.Producer
}

func NewKafkaProducer(cfg KafkaConfig, transactionalID string) (*KafkaProducer, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...",
		slog.String("broker", cfg.Broker),
		slog.String("transactional_id", transactionalID))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
		"transactional.id":                      transactionalID,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	if err := p.InitTransactions(context.Background()); err != nil {
		p.Close()
		return nil, fmt.Errorf("[KafkaClient] Failed to init transactions: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return &KafkaProducer{producer: p}, nil
}

func (kp *KafkaProducer) Close() {
	slog.Info("[KafkaClient] Shutting down Kafka producer...")
	if remaining := kp.producer.Flush(5000); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	kp.producer.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
}

// Publish sends value as JSON to topic under key and waits for the
// transaction to commit.
func (kp *KafkaProducer) Publish(ctx context.Context, topic, key string, value any) error {
	payload, err := utils.SerializeToJSON(value)
	if err != nil {
		return fmt.Errorf("[KafkaClient] failed to marshal payload: %w", err)
	}

	if err := kp.producer.BeginTransaction(); err != nil {
		return fmt.Errorf("[KafkaClient] failed to begin transaction: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          payload,
	}

	for i := 0; i < 3; i++ {
		err = kp.producer.Produce(msg, nil)
		if err == nil {
			break
		}
		slog.Warn("[KafkaClient] Failed to produce message, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
	}
	if err != nil {
		if abortErr := kp.producer.AbortTransaction(ctx); abortErr != nil {
			return fmt.Errorf("[KafkaClient] failed to abort transaction after produce error: %w", errors.Join(err, abortErr))
		}
		return err
	}

	var commitErr error
	for i := 0; i < 3; i++ {
		commitErr = kp.producer.CommitTransaction(ctx)
		if commitErr == nil {
			break
		}
		var kafkaErr kafka.Error
		if errors.As(commitErr, &kafkaErr) && kafkaErr.TxnRequiresAbort() {
			break
		}
		slog.Warn("[KafkaClient] Failed to commit transaction, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", commitErr.Error()))
	}
	if commitErr != nil {
		_ = kp.producer.AbortTransaction(ctx)
		return fmt.Errorf("[KafkaClient] failed to commit transaction: %w", commitErr)
	}

	slog.Debug("[KafkaClient] Published message",
		slog.String("topic", topic),
		slog.String("key", key))
	return nil
}
