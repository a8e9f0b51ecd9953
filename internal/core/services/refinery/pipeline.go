package refinery

import (
	"fmt"

	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
)

// CleanedColumnSuffix is appended to the source column name
const CleanedColumnSuffix = "_cleaned"

// Pipeline applies one refinery version to text values and table columns
type Pipeline struct {
	refinery BaseRefinery
	version  string
}

// CleanSummary reports what CleanColumn did
type CleanSummary struct {
	Column         string   `json:"column"`
	OutputColumn   string   `json:"output_column"`
	Version        string   `json:"version"`
	Steps          []string `json:"steps"`
	RowsProcessed  int      `json:"rows_processed"`
	RowsChanged    int      `json:"rows_changed"`
	EntitiesMasked int      `json:"entities_masked"`
	EmptyValues    int      `json:"empty_values"`
}

// NewPipeline creates a pipeline for a version (e.g. "v1") or alias (e.g. "normalize")
func NewPipeline(refineryType string, customConfig map[string]interface{}) (*Pipeline, error) {
	refinery, err := Create(refineryType, customConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create refinery: %w", err)
	}

	return &Pipeline{
		refinery: refinery,
		version:  refinery.GetVersion(),
	}, nil
}

// CleanText processes a single text string
func (p *Pipeline) CleanText(text string) string {
	return p.refinery.Process(text)
}

// CleanBatch processes a batch of texts
func (p *Pipeline) CleanBatch(texts []string) []string {
	results := make([]string, len(texts))
	for i, text := range texts {
		results[i] = p.refinery.Process(text)
	}
	return results
}

// CleanColumn cleans every value of column and stores the result in
// <column>_cleaned, replacing it if a previous run already added it
func (p *Pipeline) CleanColumn(table *parsers.Table, column string) (*CleanSummary, error) {
	if table == nil {
		return nil, apperrors.BadRequest("no table to clean")
	}
	values := table.Column(column)
	if values == nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("column %q not found", column)).
			WithDetails("columns", table.Columns)
	}

	summary := &CleanSummary{
		Column:        column,
		OutputColumn:  column + CleanedColumnSuffix,
		Version:       p.version,
		Steps:         p.refinery.GetPipelineSteps(),
		RowsProcessed: len(values),
	}

	cleaned := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			summary.EmptyValues++
		}
		summary.EntitiesMasked += CountEntities(v)
		cleaned[i] = p.refinery.Process(v)
		if cleaned[i] != v {
			summary.RowsChanged++
		}
	}

	if idx := table.ColumnIndex(summary.OutputColumn); idx >= 0 {
		for i := range table.Rows {
			table.Rows[i][idx] = cleaned[i]
		}
	} else {
		table.AddColumn(summary.OutputColumn, cleaned)
	}

	return summary, nil
}

// GetVersion returns the refinery version being used
func (p *Pipeline) GetVersion() string {
	return p.version
}

// GetName returns the refinery name
func (p *Pipeline) GetName() string {
	return p.refinery.GetName()
}

// GetDescription returns the refinery description
func (p *Pipeline) GetDescription() string {
	return p.refinery.GetDescription()
}

// GetPipelineSteps returns the processing steps
func (p *Pipeline) GetPipelineSteps() []string {
	return p.refinery.GetPipelineSteps()
}
