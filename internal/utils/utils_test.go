package utils

import (
	"sync"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchBuffer(t *testing.T) {
	b := NewBatchBufferWithCapacity[int](3)
	assert.False(t, b.HasData())
	assert.Nil(t, b.GetAndClear())

	assert.False(t, b.Add(1))
	assert.False(t, b.Add(2))
	assert.True(t, b.Add(3))
	assert.Equal(t, 3, b.Size())

	assert.Equal(t, []int{1, 2, 3}, b.GetAndClear())
	assert.Zero(t, b.Size())
}

func TestBatchBuffer_Concurrent(t *testing.T) {
	b := NewBatchBuffer[int]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Add(i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, b.GetAndClear(), 100)
}

func TestLatestPerPartition(t *testing.T) {
	topic := "analysis-results"
	at := func(partition int32, offset kafka.Offset) *kafka.Message {
		return &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: partition, Offset: offset}}
	}

	latest := LatestPerPartition([]*kafka.Message{at(0, 5), at(1, 2), at(0, 9), nil, at(0, 7), at(1, 1)})
	require.Len(t, latest, 2)
	assert.Equal(t, kafka.Offset(9), latest[0].TopicPartition.Offset)
	assert.Equal(t, kafka.Offset(2), latest[1].TopicPartition.Offset)
}

func TestDeserializeFromJSON(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	require.NoError(t, DeserializeFromJSON([]byte(`{"a":1}`), &v))
	assert.Equal(t, 1, v.A)
	assert.Error(t, DeserializeFromJSON([]byte(`{`), &v))
	assert.ErrorIs(t, DeserializeFromJSON(nil, &v), ErrEmptyPayload)

	raw, err := SerializeToJSON(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))
}
