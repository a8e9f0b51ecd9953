package domain_test

import (
	"testing"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	"github.com/alejandroruanova/automl-service/internal/pkg/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestDataset_TableName(t *testing.T) {
	assert.Equal(t, "datasets", domain.Dataset{}.TableName())
}

func TestDataset_BeforeCreate(t *testing.T) {
	db := testutil.SetupPostgres(t, domain.Models()...)

	dataset := &domain.Dataset{
		OriginalFilename: "iris.csv",
		StoredPath:       "/data/uploads/1/iris.csv",
		FileHash:         "abc123",
	}

	assert.Equal(t, uuid.Nil, dataset.ID)

	err := db.Create(dataset).Error
	assert.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, dataset.ID)
	assert.Equal(t, domain.DatasetStatusUploaded, dataset.Status)
	assert.NotZero(t, dataset.CreatedAt)
}

func TestDataset_FileHashUniqueness(t *testing.T) {
	db := testutil.SetupPostgres(t, domain.Models()...)

	first := &domain.Dataset{OriginalFilename: "a.csv", StoredPath: "a", FileHash: "same_hash"}
	assert.NoError(t, db.Create(first).Error)

	second := &domain.Dataset{OriginalFilename: "b.csv", StoredPath: "b", FileHash: "same_hash"}
	assert.Error(t, db.Create(second).Error, "should fail due to UNIQUE constraint on file_hash")
}

func TestDataset_JSONColumns(t *testing.T) {
	db := testutil.SetupPostgres(t, domain.Models()...)

	dataset := &domain.Dataset{
		OriginalFilename: "iris.csv",
		StoredPath:       "iris.csv",
		FileHash:         "h1",
		Columns:          datatypes.JSON(`["sepal","petal","species"]`),
	}
	assert.NoError(t, db.Create(dataset).Error)

	var loaded domain.Dataset
	assert.NoError(t, db.First(&loaded, "id = ?", dataset.ID).Error)
	assert.JSONEq(t, `["sepal","petal","species"]`, string(loaded.Columns))
}

func TestDataset_IsValidStatus(t *testing.T) {
	tests := []struct {
		status string
		valid  bool
	}{
		{"uploaded", true},
		{"profiled", true},
		{"trained", true},
		{"failed", true},
		{"cleaning", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.valid, domain.IsValidDatasetStatus(tt.status))
		})
	}
}
