package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
)

const (
	chatInstructions = "You are a data analyst helping a user prepare a tabular dataset for classification. " +
		"When dataset context is given as JSON, base your answer on its columns and preview rows. Be concise."

	suggestInstructions = "You are a machine learning engineer. Describe the preprocessing steps needed for the " +
		"requested task and give short example code."
)

// ChatModel sends instructions and a message to a language model
type ChatModel interface {
	Chat(ctx context.Context, instructions, data string) (string, error)
}

// TableSource loads a stored dataset by its original filename
type TableSource interface {
	LoadTable(ctx context.Context, filename string) (*parsers.Table, error)
}

// Answer is a model response
type Answer struct {
	Content         string `json:"content"`
	Dataset         string `json:"dataset,omitempty"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

// Service answers questions about datasets through a ChatModel. A nil
// ChatModel disables it.
type Service struct {
	model   ChatModel
	tables  TableSource
	builder *ContextBuilder
	logger  *slog.Logger
}

// NewService creates the assistant; model may be nil
func NewService(model ChatModel, tables TableSource, builder *ContextBuilder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = NewContextBuilder(DefaultPreviewRows, logger)
	}

	return &Service{
		model:   model,
		tables:  tables,
		builder: builder,
		logger:  logger,
	}
}

// Enabled reports whether a model is configured
func (s *Service) Enabled() bool {
	return s.model != nil
}

// Chat answers a question, optionally grounded on a stored dataset
func (s *Service) Chat(ctx context.Context, question, dataset string) (*Answer, error) {
	if !s.Enabled() {
		return nil, apperrors.Disabled("assistant")
	}
	if strings.TrimSpace(question) == "" {
		return nil, apperrors.BadRequest("question is required")
	}

	message := question
	estimated := len(question)/4 + promptOverhead

	if dataset != "" {
		table, err := s.tables.LoadTable(ctx, dataset)
		if err != nil {
			return nil, err
		}
		dc, err := s.builder.Build(dataset, table)
		if err != nil {
			return nil, apperrors.DatasetError("failed to describe dataset", err)
		}
		contextJSON, err := dc.ToJSON()
		if err != nil {
			return nil, apperrors.InternalWrap(err, "failed to serialize dataset context")
		}
		message = fmt.Sprintf("Dataset context:\n%s\n\nQuestion: %s", contextJSON, question)
		estimated = dc.EstimatedTokens + len(question)/4
	}

	s.logger.Info("assistant chat",
		slog.String("dataset", dataset),
		slog.Int("estimated_tokens", estimated))

	content, err := s.model.Chat(ctx, chatInstructions, message)
	if err != nil {
		return nil, err
	}

	return &Answer{Content: content, Dataset: dataset, EstimatedTokens: estimated}, nil
}

// Suggest asks for preprocessing guidance for a task description
func (s *Service) Suggest(ctx context.Context, task string) (*Answer, error) {
	if !s.Enabled() {
		return nil, apperrors.Disabled("assistant")
	}
	if strings.TrimSpace(task) == "" {
		return nil, apperrors.BadRequest("task is required")
	}

	content, err := s.model.Chat(ctx, suggestInstructions, task)
	if err != nil {
		return nil, err
	}

	return &Answer{Content: content, EstimatedTokens: len(task)/4 + promptOverhead}, nil
}
