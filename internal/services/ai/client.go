package ai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/config"
	"github.com/cubik-ai/cubik-bot/internal/middleware"
	"github.com/cubik-ai/cubik-bot/internal/models"
)

// Client calls an OpenAI-compatible chat-completions endpoint. Every
// request is bounded by the configured timeout and retried once before
// the failure is surfaced to the orchestrator.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	metrics     *middleware.Metrics
	logger      *logrus.Logger
}

// NewClient creates a backend client from the model configuration.
func NewClient(cfg *config.ModelConfig, metrics *middleware.Metrics, logger *logrus.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Name,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		metrics:     metrics,
		logger:      logger,
	}
}

// Generate sends the prompt and returns the completion text.
func (c *Client) Generate(ctx context.Context, messages []models.Message, userID int64) (string, error) {
	const attempts = 2

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		response, err := c.complete(ctx, messages, userID)
		if err == nil {
			return response, nil
		}
		lastErr = err

		c.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"attempt": attempt,
		}).Warn("Backend request failed")

		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("backend request failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) complete(ctx context.Context, messages []models.Message, userID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chat := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		chat = append(chat, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chat,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		User:        fmt.Sprintf("%d", userID),
	})
	if c.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordAIRequest(c.model, status, time.Since(start))
	}
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("backend returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
