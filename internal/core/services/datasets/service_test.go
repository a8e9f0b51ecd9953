package datasets

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/storage"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/alejandroruanova/automl-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	datasets []*domain.Dataset
	saves    int
}

func (m *memoryRepo) Create(ctx context.Context, dataset *domain.Dataset) error {
	copied := *dataset
	m.datasets = append(m.datasets, &copied)
	return nil
}

func (m *memoryRepo) GetByHash(ctx context.Context, hash string) (*domain.Dataset, error) {
	for _, d := range m.datasets {
		if d.FileHash == hash {
			copied := *d
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) GetByFilename(ctx context.Context, filename string) (*domain.Dataset, error) {
	for i := len(m.datasets) - 1; i >= 0; i-- {
		if m.datasets[i].OriginalFilename == filename {
			copied := *m.datasets[i]
			return &copied, nil
		}
	}
	return nil, apperrors.RecordNotFound("dataset")
}

func (m *memoryRepo) List(ctx context.Context) ([]domain.Dataset, error) {
	out := make([]domain.Dataset, len(m.datasets))
	for i, d := range m.datasets {
		out[i] = *d
	}
	return out, nil
}

func (m *memoryRepo) Save(ctx context.Context, dataset *domain.Dataset) error {
	m.saves++
	for i, d := range m.datasets {
		if d.ID == dataset.ID {
			copied := *dataset
			m.datasets[i] = &copied
			return nil
		}
	}
	return apperrors.RecordNotFound("dataset")
}

type fakeTrainer struct {
	paths []string
	err   error
}

func (f *fakeTrainer) TrainAndSave(ctx context.Context, datasetPath string) (*domain.ModelArtifact, error) {
	f.paths = append(f.paths, datasetPath)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ModelArtifact{
		Name:     domain.ModelNameForDataset(datasetPath),
		FilePath: "/models/" + domain.ModelNameForDataset(datasetPath) + "_v1.json",
		Accuracy: 0.9,
	}, nil
}

const peopleCSV = "name,age,email,note\nann,31,ann@x.com,Dr. Smith approved\nbob,-2,bob,all good\n"

func setup(t *testing.T) (*Service, *memoryRepo, *fakeTrainer, string) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(&storage.LocalStorageConfig{BasePath: dir}, logger.Discard())
	require.NoError(t, err)

	repo := &memoryRepo{}
	trainer := &fakeTrainer{}
	svc := NewService(repo, store, parsers.NewParserFactory(nil), trainer, logger.Discard())
	return svc, repo, trainer, dir
}

func TestService_UploadProfilesAndStores(t *testing.T) {
	svc, repo, _, _ := setup(t)

	result, err := svc.Upload(context.Background(), "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)

	ds := result.Dataset
	assert.Equal(t, "people.csv", ds.OriginalFilename)
	assert.Equal(t, domain.DatasetStatusProfiled, ds.Status)
	assert.Equal(t, 2, ds.TotalRows)
	assert.Len(t, ds.FileHash, 64)
	assert.FileExists(t, ds.StoredPath)

	var columns []string
	require.NoError(t, json.Unmarshal(ds.Columns, &columns))
	assert.Equal(t, []string{"name", "age", "email", "note"}, columns)

	require.NotNil(t, result.Profile)
	assert.Equal(t, []string{"age"}, result.Profile.NumericColumns)
	assert.Len(t, repo.datasets, 1)
}

func TestService_UploadIsIdempotentByContent(t *testing.T) {
	svc, repo, _, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Upload(ctx, "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)

	second, err := svc.Upload(ctx, "copy.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Dataset.ID, second.Dataset.ID)
	assert.Len(t, repo.datasets, 1)
}

func TestService_UploadRejections(t *testing.T) {
	svc, repo, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "notes.txt", strings.NewReader("x"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnsupportedFormat))

	_, err = svc.Upload(ctx, "broken.json", strings.NewReader("{not json"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDataset))
	assert.Empty(t, repo.datasets)
}

func TestService_GetProfileAndLoad(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)

	ds, err := svc.Get(ctx, "people.csv")
	require.NoError(t, err)
	assert.Equal(t, "people.csv", ds.OriginalFilename)

	profile, err := svc.Profile(ctx, "people.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Rows)

	table, err := svc.LoadTable(ctx, "people.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob"}, table.Column("name"))

	_, err = svc.Get(ctx, "nope.csv")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRecordNotFound))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_TrainMarksDataset(t *testing.T) {
	svc, repo, trainer, _ := setup(t)
	ctx := context.Background()

	up, err := svc.Upload(ctx, "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)

	artifact, err := svc.Train(ctx, "people.csv")
	require.NoError(t, err)
	assert.Equal(t, "people_rf_model", artifact.Name)
	assert.Equal(t, []string{up.Dataset.StoredPath}, trainer.paths)

	ds, err := repo.GetByFilename(ctx, "people.csv")
	require.NoError(t, err)
	assert.Equal(t, domain.DatasetStatusTrained, ds.Status)
	assert.Equal(t, artifact.FilePath, ds.LastModelPath)
}

func TestService_TrainFailureMarksFailed(t *testing.T) {
	svc, repo, trainer, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)

	trainer.err = apperrors.TrainingFailure(errors.New("boom"))
	_, err = svc.Train(ctx, "people.csv")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTrainingFailure))

	ds, err := repo.GetByFilename(ctx, "people.csv")
	require.NoError(t, err)
	assert.Equal(t, domain.DatasetStatusFailed, ds.Status)
	assert.Equal(t, 1, repo.saves)
}

func TestService_Clean(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)

	result, err := svc.Clean(ctx, "people.csv", "note", "")
	require.NoError(t, err)
	assert.Equal(t, "note_cleaned", result.Summary.OutputColumn)
	assert.Equal(t, 1, result.Summary.EntitiesMasked)
	assert.Equal(t, []string{"note", "note_cleaned"}, result.Preview[0])
	assert.Equal(t, []string{"Dr. Smith approved", "<NAME> approved"}, result.Preview[1])

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "name,age,email,note,note_cleaned\n"))
	assert.True(t, strings.HasSuffix(result.OutputPath, "people_cleaned.csv"))

	_, err = svc.Clean(ctx, "people.csv", "missing", "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))

	_, err = svc.Clean(ctx, "people.csv", "note", "v42")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
}
