package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/alejandroruanova/automl-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingModel struct {
	instructions string
	data         string
	reply        string
	err          error
}

func (m *recordingModel) Chat(ctx context.Context, instructions, data string) (string, error) {
	m.instructions = instructions
	m.data = data
	return m.reply, m.err
}

type tableMap map[string]*parsers.Table

func (m tableMap) LoadTable(ctx context.Context, filename string) (*parsers.Table, error) {
	if t, ok := m[filename]; ok {
		return t, nil
	}
	return nil, apperrors.RecordNotFound("dataset")
}

func irisTable() *parsers.Table {
	table := &parsers.Table{Columns: []string{"sepal", "species"}}
	for i := 0; i < 8; i++ {
		table.Rows = append(table.Rows, []string{"5.1", "setosa"})
	}
	return table
}

func TestContextBuilder_Build(t *testing.T) {
	builder := NewContextBuilder(3, logger.Discard())

	dc, err := builder.Build("iris.csv", irisTable())
	require.NoError(t, err)
	assert.Equal(t, 8, dc.TotalRows)
	assert.Len(t, dc.Preview, 3)
	assert.Equal(t, "setosa", dc.Preview[0]["species"])
	assert.Greater(t, dc.EstimatedTokens, promptOverhead)

	js, err := dc.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, js, `"columns":["sepal","species"]`)
	assert.NotContains(t, js, "EstimatedTokens")

	_, err = builder.Build("empty.csv", &parsers.Table{})
	assert.Error(t, err)
}

func TestService_Disabled(t *testing.T) {
	svc := NewService(nil, tableMap{}, nil, logger.Discard())
	assert.False(t, svc.Enabled())

	_, err := svc.Chat(context.Background(), "hi", "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDisabled))

	_, err = svc.Suggest(context.Background(), "scale features")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDisabled))
}

func TestService_ChatWithDataset(t *testing.T) {
	model := &recordingModel{reply: "species is the target"}
	svc := NewService(model, tableMap{"iris.csv": irisTable()}, NewContextBuilder(2, logger.Discard()), logger.Discard())

	answer, err := svc.Chat(context.Background(), "which column is the label?", "iris.csv")
	require.NoError(t, err)
	assert.Equal(t, "species is the target", answer.Content)
	assert.Equal(t, "iris.csv", answer.Dataset)
	assert.Equal(t, chatInstructions, model.instructions)
	assert.Contains(t, model.data, `"name":"iris.csv"`)
	assert.Contains(t, model.data, "Question: which column is the label?")
}

func TestService_ChatErrors(t *testing.T) {
	model := &recordingModel{}
	svc := NewService(model, tableMap{}, nil, logger.Discard())

	_, err := svc.Chat(context.Background(), "  ", "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))

	_, err = svc.Chat(context.Background(), "q", "missing.csv")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRecordNotFound))

	model.err = apperrors.LLMRequestFailed(errors.New("timeout"))
	_, err = svc.Chat(context.Background(), "q", "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMRequestFailed))
}

func TestService_Suggest(t *testing.T) {
	model := &recordingModel{reply: "standardize numeric columns"}
	svc := NewService(model, tableMap{}, nil, logger.Discard())

	answer, err := svc.Suggest(context.Background(), "normalize features")
	require.NoError(t, err)
	assert.Equal(t, "standardize numeric columns", answer.Content)
	assert.Equal(t, suggestInstructions, model.instructions)
	assert.Equal(t, "normalize features", model.data)

	_, err = svc.Suggest(context.Background(), "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
}
