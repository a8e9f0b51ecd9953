package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Dataset statuses
const (
	DatasetStatusUploaded = "uploaded"
	DatasetStatusProfiled = "profiled"
	DatasetStatusTrained  = "trained"
	DatasetStatusFailed   = "failed"
)

// Dataset represents an uploaded tabular file
type Dataset struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OriginalFilename string         `gorm:"type:varchar(500);not null;index:idx_datasets_filename" json:"original_filename"`
	StoredPath       string         `gorm:"type:text;not null" json:"stored_path"`
	FileHash         string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"file_hash"` // For idempotency
	Format           string         `gorm:"type:varchar(20)" json:"format"`
	Status           string         `gorm:"type:varchar(50);not null;default:'uploaded'" json:"status"`
	TotalRows        int            `gorm:"default:0" json:"total_rows"`
	Columns          datatypes.JSON `gorm:"type:jsonb" json:"columns,omitempty"`
	Profile          datatypes.JSON `gorm:"type:jsonb" json:"profile,omitempty"`
	LastModelPath    string         `gorm:"type:text" json:"last_model_path,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Dataset) TableName() string {
	return "datasets"
}

// BeforeCreate GORM hook - called before creating a record
func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// ValidDatasetStatuses returns list of valid dataset statuses
func ValidDatasetStatuses() []string {
	return []string{
		DatasetStatusUploaded,
		DatasetStatusProfiled,
		DatasetStatusTrained,
		DatasetStatusFailed,
	}
}

// IsValidDatasetStatus checks if a status is valid
func IsValidDatasetStatus(status string) bool {
	for _, s := range ValidDatasetStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Models returns every persisted model, in migration order
func Models() []interface{} {
	return []interface{}{
		&FeedbackRecord{},
		&ModelArtifact{},
		&Dataset{},
		&RetrainRun{},
	}
}
