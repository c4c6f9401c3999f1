package clients

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	openAIRequestTimeout = 60 * time.Second // Timeout for individual OpenAI API requests
	openAIDefaultModel   = openai.ChatModelGPT4oMini

	titlePrompt = "Summarize the user's message in one short sentence suitable as a chat title. " +
		"Reply with the sentence only."
)

var (
	openAIClientInstance *OpenAIClient
	openAIOnce           sync.Once
)

type OpenAIClient struct {
	Client *openai.Client
	Model  string
}

func NewOpenAIClient(apiKey, model string, opts ...option.RequestOption) *OpenAIClient {
	if model == "" {
		model = openAIDefaultModel
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(openAIRequestTimeout),
		option.WithMaxRetries(MAX_RETRIES),
	}, opts...)

	return &OpenAIClient{
		Client: openai.NewClient(opts...),
		Model:  model,
	}
}

// GetOpenAIClient returns the shared client. It panics without an API key,
// so callers only reach for it when AI titles are switched on.
func GetOpenAIClient(apiKey, model string) *OpenAIClient {
	if apiKey == "" {
		slog.Error("[OpenAIClient] Missing OPENAI_API_KEY in environment variables")
		panic("[OpenAIClient] Missing OPENAI_API_KEY in environment variables")
	}
	openAIOnce.Do(func() {
		openAIClientInstance = NewOpenAIClient(apiKey, model)
		slog.Info("[OpenAIClient] OpenAI client initialized",
			slog.Duration("timeout", openAIRequestTimeout),
			slog.String("model", openAIClientInstance.Model))
	})
	return openAIClientInstance
}

// SummarizeSentence asks the model for a one sentence summary of text.
func (o *OpenAIClient) SummarizeSentence(ctx context.Context, text string) (string, error) {
	completion, err := o.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(titlePrompt),
			openai.UserMessage(text),
		}),
		Model:       openai.F(o.Model),
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(40),
	})
	if err != nil {
		slog.Warn("[OpenAIClient] Sentence summary failed",
			slog.String("error", err.Error()))
		return "", fmt.Errorf("[OpenAIClient] chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
