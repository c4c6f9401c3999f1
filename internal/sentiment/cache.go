package sentiment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/spacesedan/pulseai/internal/models"
)

const cacheKeyPrefix = "sentiment:"

// Store is the key/value surface used for caching. The Valkey client
// satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedClassifier remembers results per text. A broken cache never fails
// a request; the inner classifier's errors always propagate.
type CachedClassifier struct {
	inner Classifier
	store Store
	ttl   time.Duration
}

func NewCachedClassifier(inner Classifier, store Store, ttl time.Duration) *CachedClassifier {
	return &CachedClassifier{inner: inner, store: store, ttl: ttl}
}

func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedClassifier) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	key := CacheKey(text)

	if raw, found, err := c.store.Get(ctx, key); err != nil {
		slog.Warn("[SentimentCache] Cache lookup failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	} else if found {
		var cached models.SentimentResult
		if err := json.Unmarshal([]byte(raw), &cached); err == nil && Validate(cached) == nil {
			slog.Debug("[SentimentCache] Cache hit", slog.String("key", key))
			return cached, nil
		}
		slog.Warn("[SentimentCache] Discarding unreadable cache entry", slog.String("key", key))
	}

	res, err := c.inner.Classify(ctx, text)
	if err != nil {
		return models.SentimentResult{}, err
	}

	// Malformed results are left for the caller to reject and are not cached.
	if Validate(res) != nil {
		return res, nil
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return res, nil
	}
	if err := c.store.Set(ctx, key, string(payload), c.ttl); err != nil {
		slog.Warn("[SentimentCache] Cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	return res, nil
}
