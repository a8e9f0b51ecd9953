package training

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	"github.com/alejandroruanova/automl-service/internal/core/ml"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/storage"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/alejandroruanova/automl-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRegistry struct {
	artifacts []domain.ModelArtifact
	createErr error
}

func (m *memoryRegistry) Create(ctx context.Context, artifact *domain.ModelArtifact) error {
	if m.createErr != nil {
		return m.createErr
	}
	artifact.ID = uint(len(m.artifacts) + 1)
	m.artifacts = append(m.artifacts, *artifact)
	return nil
}

func (m *memoryRegistry) CountByName(ctx context.Context, name string) (int64, error) {
	var n int64
	for _, a := range m.artifacts {
		if a.Name == name {
			n++
		}
	}
	return n, nil
}

type fixture struct {
	dir      string
	store    *storage.LocalStorage
	registry *memoryRegistry
	trainer  *Trainer
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(&storage.LocalStorageConfig{BasePath: dir}, logger.Discard())
	require.NoError(t, err)

	seed := int64(11)
	registry := &memoryRegistry{}
	trainer := NewTrainer(parsers.NewParserFactory(nil), store, registry, Config{Trees: 15, Seed: &seed}, logger.Discard())

	return &fixture{dir: dir, store: store, registry: registry, trainer: trainer}
}

func (f *fixture) writeDataset(t *testing.T, name, content string) string {
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func irisLike(n int) string {
	var b strings.Builder
	b.WriteString("petal_length,petal_width,species\n")
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&b, "1.%d,0.2,setosa\n", i%10)
		} else {
			fmt.Fprintf(&b, "5.%d,1.8,virginica\n", i%10)
		}
	}
	return b.String()
}

func TestTrainAndSave_Success(t *testing.T) {
	f := newFixture(t)
	path := f.writeDataset(t, "iris.csv", irisLike(30))

	artifact, err := f.trainer.TrainAndSave(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "iris_rf_model", artifact.Name)
	assert.Equal(t, filepath.Join(f.dir, "models", "iris_rf_model_v1.json"), artifact.FilePath)
	assert.Equal(t, "iris.csv", artifact.SourceDataset)
	assert.Equal(t, 24, artifact.TrainRows)
	assert.Equal(t, 6, artifact.TestRows)
	assert.GreaterOrEqual(t, artifact.Accuracy, 0.0)
	assert.LessOrEqual(t, artifact.Accuracy, 1.0)
	assert.JSONEq(t, `["petal_length","petal_width"]`, string(artifact.Features))
	require.Len(t, f.registry.artifacts, 1)

	data, err := os.ReadFile(artifact.FilePath)
	require.NoError(t, err)
	model, err := ml.UnmarshalModel(data)
	require.NoError(t, err)
	assert.Equal(t, "species", model.Target)
	assert.Equal(t, artifact.Accuracy, model.Accuracy)
}

func TestTrainAndSave_NeverOverwrites(t *testing.T) {
	f := newFixture(t)
	path := f.writeDataset(t, "iris.csv", irisLike(20))
	ctx := context.Background()

	first, err := f.trainer.TrainAndSave(ctx, path)
	require.NoError(t, err)
	firstBytes, err := os.ReadFile(first.FilePath)
	require.NoError(t, err)

	second, err := f.trainer.TrainAndSave(ctx, path)
	require.NoError(t, err)

	assert.NotEqual(t, first.FilePath, second.FilePath)
	assert.True(t, strings.HasSuffix(second.FilePath, "iris_rf_model_v2.json"))
	require.Len(t, f.registry.artifacts, 2)

	stillThere, err := os.ReadFile(first.FilePath)
	require.NoError(t, err)
	assert.Equal(t, firstBytes, stillThere)
}

func TestTrainAndSave_SkipsOrphanFile(t *testing.T) {
	f := newFixture(t)
	path := f.writeDataset(t, "iris.csv", irisLike(20))

	_, err := f.store.SaveModel(context.Background(), "iris_rf_model", 1, []byte("orphan"))
	require.NoError(t, err)

	artifact, err := f.trainer.TrainAndSave(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(artifact.FilePath, "iris_rf_model_v2.json"))
}

func TestTrainAndSave_InsufficientColumns(t *testing.T) {
	f := newFixture(t)
	path := f.writeDataset(t, "single.csv", "only\na\nb\nc\n")

	_, err := f.trainer.TrainAndSave(context.Background(), path)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInsufficientColumns))
	assert.Empty(t, f.registry.artifacts)
}

func TestTrainAndSave_TooFewLabeledRows(t *testing.T) {
	f := newFixture(t)
	path := f.writeDataset(t, "sparse.csv", "a,target\n1,x\n2,\n3,\n")

	_, err := f.trainer.TrainAndSave(context.Background(), path)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDataset))
}

func TestTrainAndSave_LoadFailures(t *testing.T) {
	f := newFixture(t)

	_, err := f.trainer.TrainAndSave(context.Background(), filepath.Join(f.dir, "missing.csv"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDataset))

	path := f.writeDataset(t, "notes.txt", "a,b\n1,2\n")
	_, err = f.trainer.TrainAndSave(context.Background(), path)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDataset))
}

func TestTrainAndSave_RegistryFailureRemovesFile(t *testing.T) {
	f := newFixture(t)
	f.registry.createErr = apperrors.StoreUnavailable(errors.New("db down"))
	path := f.writeDataset(t, "iris.csv", irisLike(10))

	_, err := f.trainer.TrainAndSave(context.Background(), path)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePersistenceFailure))

	entries, err := os.ReadDir(filepath.Join(f.dir, "models"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLabeledRows(t *testing.T) {
	table := &parsers.Table{
		Columns: []string{"a", "target"},
		Rows:    [][]string{{"1", "x"}, {"2", " "}, {"3", "y"}},
	}
	assert.Equal(t, [][]string{{"1", "x"}, {"3", "y"}}, LabeledRows(table))
}
