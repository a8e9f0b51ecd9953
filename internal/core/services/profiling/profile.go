package profiling

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// MinRecommendedRows is the row count below which a dataset is flagged
	MinRecommendedRows = 50

	// HistogramBins is the number of bins in each numeric histogram
	HistogramBins = 10
)

// Issue types
const (
	IssueMissingValues   = "missing_values"
	IssueTooFewRows      = "too_few_rows"
	IssueNonNumeric      = "non_numeric_columns"
	IssueInvalidEmail    = "invalid_email"
	IssueNegativeAge     = "negative_age"
	IssueDuplicateRows   = "duplicate_rows"
	IssueConstantColumns = "constant_column"
)

// Profile is the EDA summary of a table
type Profile struct {
	Rows            int                       `json:"rows"`
	Columns         int                       `json:"columns"`
	MissingValues   int                       `json:"missing_values"`
	MissingByColumn map[string]int            `json:"missing_by_column"`
	DuplicateRows   int                       `json:"duplicate_rows"`
	NumericColumns  []string                  `json:"numeric_columns"`
	TextColumns     []string                  `json:"text_columns"`
	Numeric         map[string]NumericSummary `json:"numeric"`
	Issues          []Issue                   `json:"issues"`
}

// NumericSummary holds descriptive statistics for one numeric column
type NumericSummary struct {
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Median    float64 `json:"median"`
	Skewness  float64 `json:"skewness"`
	Kurtosis  float64 `json:"kurtosis"`
	Histogram []Bin   `json:"histogram"`
}

// Bin is one histogram bucket, [Lower, Upper)
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Issue is a data quality finding
type Issue struct {
	Type    string `json:"type"`
	Column  string `json:"column,omitempty"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// ProfileTable computes the EDA profile of a table. Empty cells count as
// missing; a column is numeric when every non-empty cell parses as a float.
func ProfileTable(table *parsers.Table) *Profile {
	p := &Profile{
		Rows:            len(table.Rows),
		Columns:         len(table.Columns),
		MissingByColumn: make(map[string]int, len(table.Columns)),
		Numeric:         make(map[string]NumericSummary),
		NumericColumns:  []string{},
		TextColumns:     []string{},
		Issues:          []Issue{},
	}

	for idx, col := range table.Columns {
		values, missing, numeric := columnValues(table, idx)
		p.MissingByColumn[col] = missing
		p.MissingValues += missing

		if numeric {
			p.NumericColumns = append(p.NumericColumns, col)
			p.Numeric[col] = summarize(values)
		} else {
			p.TextColumns = append(p.TextColumns, col)
		}
	}

	p.DuplicateRows = countDuplicateRows(table.Rows)
	p.Issues = validate(table, p)

	return p
}

func columnValues(table *parsers.Table, idx int) ([]float64, int, bool) {
	values := make([]float64, 0, len(table.Rows))
	missing := 0
	numeric := true

	for _, row := range table.Rows {
		cell := strings.TrimSpace(row[idx])
		if cell == "" {
			missing++
			continue
		}
		if !numeric {
			continue
		}
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			numeric = false
			continue
		}
		values = append(values, f)
	}

	return values, missing, numeric && len(values) > 0
}

func summarize(values []float64) NumericSummary {
	data := stats.Float64Data(values)
	s := NumericSummary{Count: len(values)}

	s.Mean, _ = stats.Mean(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.Median, _ = stats.Median(data)
	if len(values) > 1 {
		s.Std, _ = stats.StandardDeviationSample(data)
	}

	if s.Max > s.Min {
		s.Skewness = finite(stat.Skew(values, nil))
		s.Kurtosis = finite(stat.ExKurtosis(values, nil))
	}

	s.Histogram = histogram(values, s.Min, s.Max)
	return s
}

func histogram(values []float64, min, max float64) []Bin {
	if min == max {
		return []Bin{{Lower: min, Upper: max, Count: len(values)}}
	}

	dividers := floats.Span(make([]float64, HistogramBins+1), min, max)
	// the last divider must be strictly above the largest value
	upper := dividers[HistogramBins]
	dividers[HistogramBins] = math.Nextafter(max, math.Inf(1))

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	counts := stat.Histogram(nil, dividers, sorted, nil)

	bins := make([]Bin, HistogramBins)
	for i := range bins {
		bins[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(counts[i])}
	}
	bins[HistogramBins-1].Upper = upper
	return bins
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// rowHash hashes the trimmed cells of a row
func rowHash(row []string) string {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = strings.TrimSpace(c)
	}
	data, _ := json.Marshal(cells)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// countDuplicateRows counts rows identical to an earlier row
func countDuplicateRows(rows [][]string) int {
	seen := make(map[string]bool, len(rows))
	duplicates := 0
	for _, row := range rows {
		h := rowHash(row)
		if seen[h] {
			duplicates++
			continue
		}
		seen[h] = true
	}
	return duplicates
}

func validate(table *parsers.Table, p *Profile) []Issue {
	issues := []Issue{}

	if p.MissingValues > 0 {
		issues = append(issues, Issue{
			Type:    IssueMissingValues,
			Count:   p.MissingValues,
			Message: fmt.Sprintf("dataset has %d missing values", p.MissingValues),
		})
	}

	if p.Rows < MinRecommendedRows {
		issues = append(issues, Issue{
			Type:    IssueTooFewRows,
			Count:   p.Rows,
			Message: fmt.Sprintf("only %d rows, at least %d recommended for training", p.Rows, MinRecommendedRows),
		})
	}

	if len(p.TextColumns) > 0 {
		issues = append(issues, Issue{
			Type:    IssueNonNumeric,
			Count:   len(p.TextColumns),
			Message: fmt.Sprintf("non-numeric columns will be label encoded: %s", strings.Join(p.TextColumns, ", ")),
		})
	}

	if p.DuplicateRows > 0 {
		issues = append(issues, Issue{
			Type:    IssueDuplicateRows,
			Count:   p.DuplicateRows,
			Message: fmt.Sprintf("dataset has %d duplicate rows", p.DuplicateRows),
		})
	}

	for _, col := range p.NumericColumns {
		if s := p.Numeric[col]; s.Count > 1 && s.Min == s.Max {
			issues = append(issues, Issue{
				Type:    IssueConstantColumns,
				Column:  col,
				Count:   s.Count,
				Message: fmt.Sprintf("column %q has a single distinct value", col),
			})
		}
	}

	if idx := table.ColumnIndex("email"); idx >= 0 {
		invalid := 0
		for _, row := range table.Rows {
			if !strings.Contains(row[idx], "@") {
				invalid++
			}
		}
		if invalid > 0 {
			issues = append(issues, Issue{
				Type:    IssueInvalidEmail,
				Column:  "email",
				Count:   invalid,
				Message: fmt.Sprintf("column 'email' has %d invalid addresses", invalid),
			})
		}
	}

	if idx := table.ColumnIndex("age"); idx >= 0 {
		negative := 0
		for _, row := range table.Rows {
			if f, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64); err == nil && f < 0 {
				negative++
			}
		}
		if negative > 0 {
			issues = append(issues, Issue{
				Type:    IssueNegativeAge,
				Column:  "age",
				Count:   negative,
				Message: fmt.Sprintf("column 'age' has %d negative values", negative),
			})
		}
	}

	return issues
}
