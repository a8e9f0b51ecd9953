package domain

import (
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ModelNameSuffix is appended to the dataset file stem to form the model name
const ModelNameSuffix = "_rf_model"

// ModelArtifact is the registry row for one fitted, serialized classifier.
// Rows are append-only: every training run inserts a new one.
type ModelArtifact struct {
	ID            uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null;index:idx_models_name" json:"name"`
	Accuracy      float64        `gorm:"not null" json:"accuracy"`
	FilePath      string         `gorm:"type:text;not null;uniqueIndex:idx_models_filepath" json:"filepath"`
	SourceDataset string         `gorm:"type:varchar(500)" json:"source_dataset"`
	TrainRows     int            `json:"train_rows"`
	TestRows      int            `json:"test_rows"`
	Features      datatypes.JSON `gorm:"type:jsonb" json:"features,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (ModelArtifact) TableName() string {
	return "models"
}

// DefaultDatasetStem names models of datasets whose file name has no stem
const DefaultDatasetStem = "dataset"

// ModelNameForDataset derives the registry name from a dataset path:
// the file name up to its first dot, plus ModelNameSuffix. Dotfiles such
// as ".csv" fall back to DefaultDatasetStem.
func ModelNameForDataset(datasetPath string) string {
	base := filepath.Base(datasetPath)
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}
	if strings.Trim(base, `/\`) == "" {
		base = DefaultDatasetStem
	}
	return base + ModelNameSuffix
}
