package retraining

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
)

// TargetColumn is the label column appended to every rebuilt dataset
const TargetColumn = "target"

// CorrectedLister lists corrected feedback records in insertion order
type CorrectedLister interface {
	ListCorrected(ctx context.Context) ([]domain.FeedbackRecord, error)
}

// DatasetWriter persists the rebuilt dataset at its fixed location
type DatasetWriter interface {
	WriteRetrainDataset(ctx context.Context, data []byte) (string, error)
}

// BuildResult describes one build. Empty is set when no record survived;
// in that case nothing is written and Path is blank.
type BuildResult struct {
	Path           string   `json:"path,omitempty"`
	Rows           int      `json:"rows"`
	Columns        []string `json:"columns"`
	SkippedRecords int      `json:"skipped_records"`
	Empty          bool     `json:"empty"`
}

// Builder turns corrected feedback into a training dataset
type Builder struct {
	store  CorrectedLister
	writer DatasetWriter
	logger *slog.Logger
}

// NewBuilder creates a new dataset builder
func NewBuilder(store CorrectedLister, writer DatasetWriter, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		store:  store,
		writer: writer,
		logger: logger,
	}
}

var errNotObject = errors.New("input_data is not a JSON object")

// decodeInput keeps numbers as json.Number so large integers survive
func decodeInput(raw string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var features map[string]interface{}
	if err := dec.Decode(&features); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after input_data object")
	}
	if features == nil {
		return nil, errNotObject
	}
	return features, nil
}

// Build rebuilds the feedback dataset. Each corrected record contributes one
// row: its decoded input plus target = user_correction. Records whose input
// cannot be decoded are skipped and logged. Columns are the sorted union of
// input keys followed by target, so unchanged feedback yields identical bytes.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	records, err := b.store.ListCorrected(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]interface{}, 0, len(records))
	keySet := make(map[string]struct{})
	skipped := 0

	for _, record := range records {
		features, err := decodeInput(record.InputData)
		if err != nil {
			skipped++
			b.logger.Warn("skipping feedback record",
				slog.Any("error", apperrors.MalformedFeedback(record.ID, err)))
			continue
		}

		delete(features, TargetColumn)
		for key := range features {
			keySet[key] = struct{}{}
		}
		features[TargetColumn] = *record.UserCorrection
		rows = append(rows, features)
	}

	if len(rows) == 0 {
		b.logger.Info("no usable feedback, dataset not written",
			slog.Int("corrected_records", len(records)),
			slog.Int("skipped_records", skipped))
		return &BuildResult{Columns: []string{}, SkippedRecords: skipped, Empty: true}, nil
	}

	columns := make([]string, 0, len(keySet)+1)
	for key := range keySet {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	columns = append(columns, TargetColumn)

	data, err := encodeCSV(columns, rows)
	if err != nil {
		return nil, apperrors.PersistenceFailure("retraining dataset", err)
	}

	path, err := b.writer.WriteRetrainDataset(ctx, data)
	if err != nil {
		return nil, apperrors.PersistenceFailure("retraining dataset", err)
	}

	b.logger.Info("retraining dataset built",
		slog.String("path", path),
		slog.Int("rows", len(rows)),
		slog.Int("columns", len(columns)),
		slog.Int("skipped_records", skipped))

	return &BuildResult{
		Path:           path,
		Rows:           len(rows),
		Columns:        columns,
		SkippedRecords: skipped,
	}, nil
}

func encodeCSV(columns []string, rows []map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	line := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			line[i] = parsers.FormatCell(row[col])
		}
		if err := w.Write(line); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
