package profiling

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *parsers.Table {
	return &parsers.Table{
		Columns: []string{"id", "age", "email", "city"},
		Rows: [][]string{
			{"1", "30", "a@x.com", "Paris"},
			{"2", "-5", "bad", "Rome"},
			{"3", "40", "c@x.com", ""},
			{"3", "40", "c@x.com", " "},
		},
	}
}

func issueByType(p *Profile, issueType string) (Issue, bool) {
	for _, issue := range p.Issues {
		if issue.Type == issueType {
			return issue, true
		}
	}
	return Issue{}, false
}

func TestProfileTable_Overview(t *testing.T) {
	p := ProfileTable(sampleTable())

	assert.Equal(t, 4, p.Rows)
	assert.Equal(t, 4, p.Columns)
	assert.Equal(t, 2, p.MissingValues)
	assert.Equal(t, 2, p.MissingByColumn["city"])
	assert.Equal(t, 0, p.MissingByColumn["age"])
	assert.Equal(t, 1, p.DuplicateRows, "trimmed cells make the last two rows equal")
	assert.Equal(t, []string{"id", "age"}, p.NumericColumns)
	assert.Equal(t, []string{"email", "city"}, p.TextColumns)
}

func TestProfileTable_NumericSummary(t *testing.T) {
	p := ProfileTable(sampleTable())

	age, ok := p.Numeric["age"]
	require.True(t, ok)
	assert.Equal(t, 4, age.Count)
	assert.InDelta(t, 26.25, age.Mean, 1e-9)
	assert.Equal(t, -5.0, age.Min)
	assert.Equal(t, 40.0, age.Max)
	assert.InDelta(t, 35.0, age.Median, 1e-9)
	assert.Greater(t, age.Std, 0.0)
	assert.Less(t, age.Skewness, 0.0, "one low outlier skews left")

	require.Len(t, age.Histogram, HistogramBins)
	counts := make([]int, len(age.Histogram))
	total := 0
	for i, bin := range age.Histogram {
		counts[i] = bin.Count
		total += bin.Count
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, []int{1, 0, 0, 0, 0, 0, 0, 1, 0, 2}, counts)
	assert.Equal(t, -5.0, age.Histogram[0].Lower)
	assert.Equal(t, 40.0, age.Histogram[HistogramBins-1].Upper)
}

func TestProfileTable_Issues(t *testing.T) {
	p := ProfileTable(sampleTable())

	missing, ok := issueByType(p, IssueMissingValues)
	require.True(t, ok)
	assert.Equal(t, 2, missing.Count)

	few, ok := issueByType(p, IssueTooFewRows)
	require.True(t, ok)
	assert.Equal(t, 4, few.Count)

	nonNumeric, ok := issueByType(p, IssueNonNumeric)
	require.True(t, ok)
	assert.Contains(t, nonNumeric.Message, "email, city")

	email, ok := issueByType(p, IssueInvalidEmail)
	require.True(t, ok)
	assert.Equal(t, 1, email.Count)

	age, ok := issueByType(p, IssueNegativeAge)
	require.True(t, ok)
	assert.Equal(t, 1, age.Count)

	_, ok = issueByType(p, IssueDuplicateRows)
	assert.True(t, ok)
}

func TestProfileTable_ConstantColumn(t *testing.T) {
	table := &parsers.Table{
		Columns: []string{"c"},
		Rows:    [][]string{{"7"}, {"7"}, {"7"}},
	}

	p := ProfileTable(table)
	summary := p.Numeric["c"]
	assert.Equal(t, 0.0, summary.Std)
	assert.Equal(t, 0.0, summary.Skewness)
	require.Len(t, summary.Histogram, 1)
	assert.Equal(t, 3, summary.Histogram[0].Count)

	constant, ok := issueByType(p, IssueConstantColumns)
	require.True(t, ok)
	assert.Equal(t, "c", constant.Column)

	_, err := json.Marshal(p)
	assert.NoError(t, err)
}

func TestProfileTable_CleanLargeDataset(t *testing.T) {
	table := &parsers.Table{Columns: []string{"x", "y"}}
	for i := 0; i < 60; i++ {
		table.Rows = append(table.Rows, []string{strconv.Itoa(i), strconv.Itoa(i * i)})
	}

	p := ProfileTable(table)
	assert.Empty(t, p.Issues)
	assert.Equal(t, 0, p.DuplicateRows)

	y := p.Numeric["y"]
	assert.Greater(t, y.Skewness, 0.0)
	assert.Greater(t, y.Std, 0.0)

	_, err := json.Marshal(p)
	assert.NoError(t, err)
}

func TestProfileTable_SingleValueStd(t *testing.T) {
	table := &parsers.Table{Columns: []string{"v"}, Rows: [][]string{{"3.5"}}}
	p := ProfileTable(table)
	assert.Equal(t, 0.0, p.Numeric["v"].Std)
	_, err := json.Marshal(p)
	assert.NoError(t, err)
}

func TestProfileTable_EmptyColumnIsText(t *testing.T) {
	table := &parsers.Table{Columns: []string{"a"}, Rows: [][]string{{""}, {""}}}
	p := ProfileTable(table)
	assert.Equal(t, []string{"a"}, p.TextColumns)
	assert.Empty(t, p.NumericColumns)
	assert.Equal(t, 2, p.MissingValues)
}
