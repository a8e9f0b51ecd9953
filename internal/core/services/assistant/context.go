package assistant

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
)

const (
	// DefaultPreviewRows is how many rows are sent to the model
	DefaultPreviewRows = 5

	// promptOverhead approximates the tokens used by instructions
	promptOverhead = 300
)

// DatasetContext is the compact JSON description of a dataset sent with a question
type DatasetContext struct {
	Name            string              `json:"name"`
	Columns         []string            `json:"columns"`
	TotalRows       int                 `json:"total_rows"`
	Preview         []map[string]string `json:"preview"`
	EstimatedTokens int                 `json:"-"`
}

// ContextBuilder turns parsed tables into DatasetContext values
type ContextBuilder struct {
	previewRows int
	logger      *slog.Logger
}

// NewContextBuilder creates a builder; previewRows <= 0 uses DefaultPreviewRows
func NewContextBuilder(previewRows int, logger *slog.Logger) *ContextBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}

	return &ContextBuilder{
		previewRows: previewRows,
		logger:      logger,
	}
}

// Build describes a table by its columns and first rows
func (b *ContextBuilder) Build(name string, table *parsers.Table) (*DatasetContext, error) {
	if table == nil || len(table.Columns) == 0 {
		return nil, fmt.Errorf("dataset %q has no columns", name)
	}

	n := len(table.Rows)
	if n > b.previewRows {
		n = b.previewRows
	}

	preview := make([]map[string]string, 0, n)
	for _, row := range table.Rows[:n] {
		record := make(map[string]string, len(table.Columns))
		for i, col := range table.Columns {
			record[col] = row[i]
		}
		preview = append(preview, record)
	}

	dc := &DatasetContext{
		Name:      name,
		Columns:   table.Columns,
		TotalRows: len(table.Rows),
		Preview:   preview,
	}
	dc.EstimatedTokens = b.EstimateTokenCount(dc)

	b.logger.Debug("dataset context built",
		slog.String("dataset", name),
		slog.Int("preview_rows", n),
		slog.Int("estimated_tokens", dc.EstimatedTokens))

	return dc, nil
}

// EstimateTokenCount approximates tokens as one per four JSON characters,
// plus a fixed instruction overhead
func (b *ContextBuilder) EstimateTokenCount(dc *DatasetContext) int {
	data, err := json.Marshal(dc)
	if err != nil {
		b.logger.Warn("failed to marshal for token estimation", slog.Any("error", err))
		return 0
	}
	return len(data)/4 + promptOverhead
}

// ToJSON serializes the context compactly
func (dc *DatasetContext) ToJSON() (string, error) {
	data, err := json.Marshal(dc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
