package llm

import (
	"context"
	"log/slog"

	"github.com/alejandroruanova/automl-service/internal/pkg/config"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client talks to any OpenAI-compatible chat completions endpoint
type Client struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewClient builds a client from config. Callers check cfg.Enabled() first.
func NewClient(cfg *config.LLMConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(options...)
	return &Client{
		client: &client,
		model:  cfg.Model,
		logger: logger,
	}
}

// Chat sends a system instruction and a user message and returns the first choice
func (c *Client) Chat(ctx context.Context, instructions, data string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instructions),
			openai.UserMessage(data),
		},
		Model: c.model,
	})
	if err != nil {
		c.logger.Error("chat completion failed",
			slog.String("model", c.model),
			slog.Any("error", err))
		return "", apperrors.LLMRequestFailed(err)
	}

	if len(resp.Choices) == 0 {
		return "", apperrors.LLMInvalidResponse("no content choices returned")
	}

	c.logger.Debug("chat completion",
		slog.String("model", c.model),
		slog.Int64("total_tokens", resp.Usage.TotalTokens))

	return resp.Choices[0].Message.Content, nil
}
