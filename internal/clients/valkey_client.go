package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

var (
	valkeyInstance *ValkeyClient
	valkeyOnce     sync.Once
)

const (
	valkeyRetries    = 3
	valkeyRetryDelay = 250 * time.Millisecond
)

type ValkeyClient struct {
	Client valkey.Client
	opts   valkey.ClientOption
	mu     sync.Mutex
}

// ValkeyOptionsFromEnv builds client options from VALKEY_INIT_ADDRESS,
// VALKEY_PASSWORD and VALKEY_TLS.
func ValkeyOptionsFromEnv() valkey.ClientOption {
	opts := valkey.ClientOption{
		InitAddress: []string{
			os.Getenv("VALKEY_INIT_ADDRESS"),
		},
		Password:         os.Getenv("VALKEY_PASSWORD"),
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}

	if os.Getenv("VALKEY_TLS") == "true" {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}
	return opts
}

// NewValkeyClient connects and pings the server.
func NewValkeyClient(opts valkey.ClientOption) (*ValkeyClient, error) {
	client, err := connectValkey(opts)
	if err != nil {
		return nil, err
	}
	return &ValkeyClient{Client: client, opts: opts}, nil
}

func connectValkey(opts valkey.ClientOption) (valkey.Client, error) {
	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey")
	return client, nil
}

func InitValkey() *ValkeyClient {
	valkeyOnce.Do(func() {
		client, err := NewValkeyClient(ValkeyOptionsFromEnv())
		if err != nil {
			panic(err)
		}
		valkeyInstance = client
	})
	return valkeyInstance
}

func CloseValkey() {
	if valkeyInstance != nil {
		valkeyInstance.Close()
	}
}

func (vc *ValkeyClient) Close() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.Client.Close()
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := connectValkey(vc.opts)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed, keeping old client",
			slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
}

// Get returns the value stored at key. found is false when the key does
// not exist.
func (vc *ValkeyClient) Get(ctx context.Context, key string) (string, bool, error) {
	c := vc.client()
	res := vc.DoWithRetry(ctx, c.B().Get().Key(key).Build(), valkeyRetries)

	value, err := res.ToString()
	if valkey.IsValkeyNil(err) {
		return "", false, nil
	}
	if err != nil {
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return "", false, fmt.Errorf("[ValkeyClient] get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value at key. A positive ttl is applied with EXPIRE in the
// same round trip.
func (vc *ValkeyClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c := vc.client()
	completed := []valkey.Completed{
		c.B().Set().Key(key).Value(value).Build(),
	}
	if secs := int64(ttl / time.Second); secs > 0 {
		completed = append(completed, c.B().Expire().Key(key).Seconds(secs).Build())
	}

	responses := vc.DoMultiWithRetry(ctx, completed, valkeyRetries)
	for _, res := range responses {
		if err := res.Error(); err != nil {
			return fmt.Errorf("[ValkeyClient] set %s: %w", key, err)
		}
	}

	slog.Debug("[ValkeyClient] Stored key", slog.String("key", key))
	return nil
}

// DoMultiWithRetry pipelines completed and retries the whole batch while any
// reply is an error. Commands are pinned so they survive being resent.
func (vc *ValkeyClient) DoMultiWithRetry(ctx context.Context, completed []valkey.Completed, retries int) []valkey.ValkeyResult {
	var results []valkey.ValkeyResult

	pinned := make([]valkey.Completed, len(completed))
	for i, cmd := range completed {
		pinned[i] = cmd.Pin()
	}

	for i := 0; i < retries; i++ {
		results = vc.client().DoMulti(ctx, pinned...)
		hasErr := false
		for _, r := range results {
			if r.Error() != nil {
				hasErr = true
				slog.Warn("[ValkeyClient] Do Multi failed",
					slog.Int("attempt", i+1),
					slog.String("error", r.Error().Error()))
				if isConnectionError(r.Error()) {
					vc.recreateClient()
				}
				break
			}
		}
		if !hasErr || i == retries-1 || !sleepCtx(ctx, valkeyRetryDelay) {
			break
		}
	}

	return results
}

// DoWithRetry retries failed commands. A nil reply is an answer, not a
// failure, and is returned immediately. The command is pinned because the
// client recycles a command once it has been sent.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	completed = completed.Pin()

	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.client().Do(ctx, completed)
		if err := result.Error(); err == nil || valkey.IsValkeyNil(err) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		if i == retries-1 || !sleepCtx(ctx, valkeyRetryDelay) {
			break
		}
	}

	return result
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
