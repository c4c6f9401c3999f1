package utils

import (
	"encoding/json"
	"errors"
	"log/slog"
)

var ErrEmptyPayload = errors.New("empty payload")

func SerializeToJSON(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("[KafkaUtils] Failed to serialize JSON",
			slog.String("error", err.Error()))
		return nil, err
	}
	return data, nil
}

// DeserializeFromJSON decodes data into v. Empty data (a tombstone or a
// producer bug) yields ErrEmptyPayload.
func DeserializeFromJSON(data []byte, v interface{}) error {
	if len(data) == 0 {
		slog.Warn("[KafkaUtils] Received empty payload")
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("[KafkaUtils] Failed to deserialize JSON",
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

func HandleConsumerError(err error) {
	if err == nil {
		return
	}
	slog.Error("[KafkaUtils] Kafka Consumer Error",
		slog.String("error", err.Error()))
}
