package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/pulseai/internal/models"
)

const (
	HF_SENTIMENT_ENDPOINT = "https://spacesedan-sentiment-analyzer.hf.space"
	classifyPath          = "/analyze"
	healthPath            = "/health"
)

var (
	huggingFaceInstance *HuggingFaceClient
	huggingFaceOnce     sync.Once
)

// HuggingFaceClient talks to the hosted sentiment service.
type HuggingFaceClient struct {
	Client         *http.Client
	BaseURL        string
	MaxRetries     int
	InitialBackoff time.Duration
}

func NewHuggingFaceClient(baseURL string, timeout time.Duration) *HuggingFaceClient {
	return &HuggingFaceClient{
		Client:         &http.Client{Timeout: timeout},
		BaseURL:        strings.TrimRight(baseURL, "/"),
		MaxRetries:     MAX_RETRIES,
		InitialBackoff: INITIAL_BACKOFF,
	}
}

// GetHuggingFaceClient returns the process wide client for SENTIMENT_ENDPOINT.
func GetHuggingFaceClient() *HuggingFaceClient {
	huggingFaceOnce.Do(func() {
		env := os.Getenv("APP_ENV")
		timeout := 60 * time.Second
		if env == "production" {
			timeout = 10 * time.Second
		}

		endpoint := os.Getenv("SENTIMENT_ENDPOINT")
		if endpoint == "" {
			endpoint = HF_SENTIMENT_ENDPOINT
		}

		slog.Info("[HuggingFaceClient] Initializing Client",
			slog.Duration("timeout", timeout),
			slog.String("endpoint", endpoint),
			slog.String("env", env))
		huggingFaceInstance = NewHuggingFaceClient(endpoint, timeout)
	})
	return huggingFaceInstance
}

// DoWithRetry retries transport errors and 5xx answers with exponential
// backoff. newReq is called once per attempt so the body can be re-sent.
func (h *HuggingFaceClient) DoWithRetry(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	backoff := h.InitialBackoff
	attempts := max(h.MaxRetries, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		req, err := newReq()
		if err != nil {
			return nil, err
		}

		resp, err := h.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		lastErr = fmt.Errorf("%s", errMsg(err, resp))
		if resp != nil {
			resp.Body.Close()
		}

		slog.Warn("[HuggingFaceClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", lastErr.Error()))

		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}

	return nil, lastErr
}

// ClassifySentiment sends one text to the sentiment service.
func (h *HuggingFaceClient) ClassifySentiment(ctx context.Context, text string) (models.SentimentAnalysisResponse, error) {
	var result models.SentimentAnalysisResponse
	start := time.Now()

	err := h.postJSON(ctx, h.BaseURL+classifyPath, models.SentimentAnalysisRequest{Text: text}, &result)
	if err != nil {
		slog.Error("[HuggingFaceClient] Sentiment Analysis request failed",
			slog.Duration("elapsed", time.Since(start)))
		return result, err
	}

	slog.Debug("[HuggingFaceClient] Sentiment Analysis request successful",
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

// HealthCheck reports whether the sentiment service answers its health route.
// A body with a status other than "ok" counts as unhealthy.
func (h *HuggingFaceClient) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+healthPath, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := h.Client.Do(req)
	if err != nil {
		slog.Warn("[HuggingFaceClient] Health check failed",
			slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var health models.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		// Some deployments answer 200 with an empty body.
		return errors.Is(err, io.EOF)
	}
	return health.Status == "" || strings.EqualFold(health.Status, "ok")
}

// helper function for posting data to the AI services
func (h *HuggingFaceClient) postJSON(ctx context.Context, endpoint string, input interface{}, output interface{}) error {
	body, err := json.Marshal(input)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to marshal input",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	resp, err := h.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", USER_AGENT)
		return req, nil
	})
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed request after retries",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to read response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sentiment service returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[HuggingFaceClient] Failed to unmarshal response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))

		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
