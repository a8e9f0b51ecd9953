package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RetrainRun records one pass of the feedback retraining loop
type RetrainRun struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Trigger       string    `gorm:"type:varchar(50);not null;default:'manual'" json:"trigger"`
	Status        string    `gorm:"type:varchar(20);not null;index:idx_retrain_runs_status" json:"status"`
	Reason        string    `gorm:"type:varchar(50)" json:"reason,omitempty"`
	Stage         string    `gorm:"type:varchar(20)" json:"stage,omitempty"`
	ErrorCode     string    `gorm:"type:varchar(50)" json:"error_code,omitempty"`
	FeedbackCount int64     `json:"feedback_count"`
	Threshold     int       `json:"threshold"`
	Rows          int       `json:"rows"`
	ModelPath     string    `gorm:"type:text" json:"model_path,omitempty"`
	Accuracy      *float64  `json:"accuracy,omitempty"`
	// AccuracyDelta is measured against the previous retrained run
	AccuracyDelta *float64  `json:"accuracy_delta,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index:idx_retrain_runs_created" json:"created_at"`
}

// TableName specifies the table name for GORM
func (RetrainRun) TableName() string {
	return "retrain_runs"
}

// BeforeCreate GORM hook
func (r *RetrainRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
