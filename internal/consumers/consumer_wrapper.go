package consumers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/pulseai/internal/clients/kafka_client"
)

const healthPollInterval = time.Second

type ConsumerWrapper struct {
	fn     func(ctx context.Context, consumer *kafka.Consumer, health ...*atomic.Bool)
	health []*atomic.Bool
}

func WrapConsumer(fn func(ctx context.Context, consumer *kafka.Consumer, health ...*atomic.Bool), health ...*atomic.Bool) ConsumerWrapper {
	return ConsumerWrapper{
		fn:     fn,
		health: health,
	}
}

func (cw ConsumerWrapper) WithHealthCheck(health *atomic.Bool) ConsumerWrapper {
	cw.health = append(cw.health, health)
	return cw
}

func (cw ConsumerWrapper) Handler() kafka_client.ConsumerFunc {
	return func(ctx context.Context, consumer *kafka.Consumer) {
		cw.fn(ctx, consumer, cw.health...)
	}
}

func allHealthy(health []*atomic.Bool) bool {
	for _, h := range health {
		if h != nil && !h.Load() {
			return false
		}
	}
	return true
}

// waitHealthy blocks while any health flag is false. It returns false when
// ctx ends first.
func waitHealthy(ctx context.Context, health []*atomic.Bool, poll time.Duration) bool {
	if allHealthy(health) {
		return true
	}

	slog.Warn("[ConsumerWrapper] Dependency unhealthy, pausing consumption")
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if allHealthy(health) {
				slog.Info("[ConsumerWrapper] Dependency healthy again, resuming")
				return true
			}
		}
	}
}
