package utils

import "github.com/confluentinc/confluent-kafka-go/kafka"

// LatestPerPartition picks, for each partition, the message with the
// highest offset among msgs. Committing those covers every earlier offset.
func LatestPerPartition(msgs []*kafka.Message) []*kafka.Message {
	type partitionKey struct {
		topic     string
		partition int32
	}

	latest := make(map[partitionKey]*kafka.Message)
	var order []partitionKey
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		topic := ""
		if msg.TopicPartition.Topic != nil {
			topic = *msg.TopicPartition.Topic
		}
		key := partitionKey{topic: topic, partition: msg.TopicPartition.Partition}

		current, seen := latest[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || msg.TopicPartition.Offset > current.TopicPartition.Offset {
			latest[key] = msg
		}
	}

	out := make([]*kafka.Message, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out
}
