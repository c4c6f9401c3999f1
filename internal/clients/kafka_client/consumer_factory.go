package kafka_client

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

type ConsumerFunc func(context.Context, *kafka.Consumer)

var (
	consumerRegistry = make(map[string]ConsumerFunc)
	registryMu       sync.RWMutex
)

func RegisterConsumer(topic string, consumerFunc ConsumerFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	consumerRegistry[topic] = consumerFunc
}

func lookupConsumer(topic string) (ConsumerFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := consumerRegistry[topic]
	return fn, ok
}

// RegisteredTopics lists the topics that have a consumer, sorted.
func RegisteredTopics() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	topics := make([]string, 0, len(consumerRegistry))
	for topic := range consumerRegistry {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// StartConsumer runs the consumer registered for cfg.Topic until it returns.
func StartConsumer(ctx context.Context, cfg KafkaConfig) error {
	consumerFunc, exists := lookupConsumer(cfg.Topic)
	if !exists {
		return fmt.Errorf("[ConsumerFactory] No consumer found for topic: %s", cfg.Topic)
	}

	consumer, err := NewConsumer(cfg)
	if err != nil {
		return fmt.Errorf("[ConsumerFactory] Failed to initialize Kafka consumer: %w", err)
	}
	defer consumer.Close()

	slog.Info("[ConsumerFactory] Starting consumer for topic...", slog.String("topic", cfg.Topic))
	consumerFunc(ctx, consumer)

	return nil
}
