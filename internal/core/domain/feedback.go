package domain

import (
	"time"

	"gorm.io/gorm"
)

// DefaultRetrainThreshold is the number of corrected predictions that triggers retraining
const DefaultRetrainThreshold = 5

// FeedbackRecord stores one served prediction and an optional user correction.
// InputData and Prediction are immutable after insert; only UserCorrection changes.
type FeedbackRecord struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ModelName      string    `gorm:"type:varchar(255);index:idx_feedback_model" json:"model_name,omitempty"`
	InputData      string    `gorm:"type:text;not null" json:"input_data"`
	Prediction     string    `gorm:"type:varchar(255);not null" json:"prediction"`
	UserCorrection *string   `gorm:"type:varchar(255);index:idx_feedback_corrected" json:"user_correction"`
	Timestamp      time.Time `gorm:"autoCreateTime;not null" json:"timestamp"`
}

// TableName specifies the table name for GORM
func (FeedbackRecord) TableName() string {
	return "feedback"
}

// BeforeCreate GORM hook
func (f *FeedbackRecord) BeforeCreate(tx *gorm.DB) error {
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now().UTC()
	}
	return nil
}

// IsCorrected reports whether a user correction has been attached
func (f *FeedbackRecord) IsCorrected() bool {
	return f.UserCorrection != nil
}

// RetrainDecision is derived from the feedback store on every call and never stored
type RetrainDecision struct {
	ShouldRetrain bool  `json:"should_retrain"`
	FeedbackCount int64 `json:"feedback_count"`
	Threshold     int   `json:"threshold"`
}

// NewRetrainDecision applies the threshold rule: retrain iff count >= threshold
func NewRetrainDecision(count int64, threshold int) RetrainDecision {
	if threshold <= 0 {
		threshold = DefaultRetrainThreshold
	}
	return RetrainDecision{
		ShouldRetrain: count >= int64(threshold),
		FeedbackCount: count,
		Threshold:     threshold,
	}
}
