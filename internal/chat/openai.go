package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/metrics"
	"github.com/sales-dashboard/web/internal/storage/models"
	"github.com/sales-dashboard/web/pkg/circuitbreaker"
	"github.com/sales-dashboard/web/pkg/logger"
	"github.com/sales-dashboard/web/pkg/retry"
)

const systemPrompt = `You are the assistant embedded in a sales-risk dashboard.
The dashboard shows customer sentiment collected from social media comments about one product
and a forecast of how much sales may drop because of it.

Answer questions about the numbers the user is looking at. Use only the dashboard context given below
and the conversation so far. When the context does not contain the answer, say so plainly.
Keep answers short and concrete.`

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIProvider answers with a chat completion, sending the recent history.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cb := circuitbreaker.NewCircuitBreaker("chat_openai", circuitbreaker.Config{
		MaxRequests:      2,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
		Logger: logger.GetLogger(),
	})
	metrics.BreakerState.WithLabelValues(cb.Name()).Set(float64(circuitbreaker.StateClosed))

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		ShouldRetry:    retryableOpenAIError,
		Logger:         logger.GetLogger(),
	}

	logger.Info("OpenAI chat provider initialized",
		zap.String("model", cfg.Model),
		zap.Float32("temperature", cfg.Temperature),
	)

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

func (p *OpenAIProvider) Reply(ctx context.Context, conv Conversation) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := buildMessages(conv)
	var content string

	err := p.cb.Execute(ctx, func() error {
		return retry.Do(ctx, p.retryConfig, func() error {
			resp, err := p.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       p.model,
					Messages:    messages,
					Temperature: p.temperature,
					MaxTokens:   p.maxTokens,
				},
			)
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("%w: completion has no choices", ErrProviderUnavailable)
			}

			metrics.LLMTokensUsed.WithLabelValues(p.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensUsed.WithLabelValues(p.model, "completion").Add(float64(resp.Usage.CompletionTokens))
			logger.Debug("Chat completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

func buildMessages(conv Conversation) []openai.ChatCompletionMessage {
	system := systemPrompt
	if conv.Context != "" {
		system += "\n\nDashboard context:\n" + conv.Context
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(conv.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range conv.History {
		role := openai.ChatMessageRoleUser
		if m.Role == models.ChatRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: conv.Message})
	return messages
}

// retryableOpenAIError retries rate limits and server errors; other 4xx
// answers will not change on a repeat.
func retryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, ErrProviderUnavailable)
}
