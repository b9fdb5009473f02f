package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessingJobStatus represents the state of a file processing job.
type ProcessingJobStatus string

const (
	ProcessingJobStatusPending    ProcessingJobStatus = "pending"
	ProcessingJobStatusProcessing ProcessingJobStatus = "processing"
	ProcessingJobStatusCompleted  ProcessingJobStatus = "completed"
	ProcessingJobStatusFailed     ProcessingJobStatus = "failed"
)

// ProcessingJob tracks the transcoding of an uploaded file from
// "processing" to "processed" or "failed".
type ProcessingJob struct {
	ID            uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	FileID        uuid.UUID           `json:"fileID" gorm:"type:uuid;not null;index"`
	Status        ProcessingJobStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Attempts      int                 `json:"attempts" gorm:"not null;default:0"`
	MaxAttempts   int                 `json:"maxAttempts" gorm:"not null;default:3"`
	LastError     *string             `json:"lastError,omitempty" gorm:"type:text"`
	NextRetryAt   *time.Time          `json:"nextRetryAt,omitempty" gorm:"index"`
	StartedAt     *time.Time          `json:"startedAt,omitempty"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
	RequestedByID *uuid.UUID          `json:"requestedByID,omitempty" gorm:"type:uuid;index"`
	CreatedAt     time.Time           `json:"createdAt" gorm:"not null"`
	UpdatedAt     time.Time           `json:"updatedAt" gorm:"not null"`
}

func (p *ProcessingJob) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (p *ProcessingJob) BeforeUpdate(_ *gorm.DB) error {
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (ProcessingJob) TableName() string {
	return "processing_jobs"
}
