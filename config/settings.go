package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spacesedan/pulseai/internal/analysis"
)

const (
	BackendVader       = "vader"
	BackendHuggingFace = "huggingface"
	BackendHugot       = "hugot"
)

type Settings struct {
	FuzzyThreshold   float64
	MaxTopics        int
	SummaryMaxLength int
	RiskLexicon      []string
	FAQPath          string

	SentimentBackend  string
	SentimentEndpoint string
	HugotModelPath    string
	OnnxLibraryPath   string
	SentimentCacheTTL time.Duration

	TitleUseAI   bool
	OpenAIAPIKey string
	OpenAIModel  string

	HistoryTableName string
	MetricsAddr      string
}

// LoadSettings reads the tunables from the environment. Unparseable values
// are logged and replaced by their defaults.
func LoadSettings() Settings {
	return Settings{
		FuzzyThreshold:   envFloat("PULSE_FUZZY_THRESHOLD", 75),
		MaxTopics:        envInt("PULSE_MAX_TOPICS", analysis.DefaultMaxTopics),
		SummaryMaxLength: envInt("PULSE_SUMMARY_MAX_LENGTH", analysis.DefaultSummaryLength),
		RiskLexicon:      envList("PULSE_RISK_LEXICON", analysis.DefaultRiskLexicon),
		FAQPath:          os.Getenv("PULSE_FAQ_PATH"),

		SentimentBackend:  strings.ToLower(envString("SENTIMENT_BACKEND", BackendVader)),
		SentimentEndpoint: os.Getenv("SENTIMENT_ENDPOINT"),
		HugotModelPath:    os.Getenv("HUGOT_MODEL_PATH"),
		OnnxLibraryPath:   os.Getenv("HUGOT_ONNX_LIBRARY_PATH"),
		SentimentCacheTTL: envDuration("SENTIMENT_CACHE_TTL", 0),

		TitleUseAI:   envBool("TITLE_USE_AI", false),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  envString("OPENAI_MODEL", "gpt-4o-mini"),

		HistoryTableName: envString("HISTORY_TABLE_NAME", "AnalysisHistory"),
		MetricsAddr:      envString("METRICS_ADDR", ":9090"),
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		invalid(key, raw)
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 100 {
		invalid(key, raw)
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		invalid(key, raw)
		return fallback
	}
	return v
}

// envDuration accepts Go durations ("10m") or plain seconds ("600").
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		invalid(key, raw)
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func invalid(key, raw string) {
	slog.Warn("[Config] Ignoring invalid value, using default",
		slog.String("key", key),
		slog.String("value", raw))
}
