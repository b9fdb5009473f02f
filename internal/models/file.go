package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FileStatus string

const (
	FileStatusProcessing FileStatus = "processing"
	FileStatusProcessed  FileStatus = "processed"
	FileStatusFailed     FileStatus = "failed"
)

func ValidFileStatus(status FileStatus) bool {
	switch status {
	case FileStatusProcessing, FileStatusProcessed, FileStatusFailed:
		return true
	default:
		return false
	}
}

// File is the metadata record of an uploaded payload. The bytes themselves
// live in the configured blob store under StorageKey.
type File struct {
	BaseModel
	OriginalName       string         `json:"originalName" gorm:"type:varchar(255);not null"`
	MimeType           string         `json:"mimeType" gorm:"type:varchar(255);not null;index"`
	Size               int64          `json:"size" gorm:"not null;default:0"`
	StorageKey         string         `json:"-" gorm:"type:text;not null"`
	OwnerID            uuid.UUID      `json:"ownerID" gorm:"type:uuid;not null;index"`
	Description        string         `json:"description" gorm:"type:text"`
	Tags               []string       `json:"tags" gorm:"type:jsonb;serializer:json"`
	IsPublic           bool           `json:"isPublic" gorm:"not null;default:false;index"`
	Checksum           string         `json:"checksum" gorm:"type:varchar(64)"`
	Status             FileStatus     `json:"status" gorm:"type:varchar(20);not null;default:'processing';index"`
	ProcessingProgress int            `json:"processingProgress" gorm:"not null;default:0"`
	DownloadCount      int64          `json:"downloadCount" gorm:"not null;default:0"`
	ErrorMessage       *string        `json:"errorMessage,omitempty" gorm:"type:text"`
	RowCount           int            `json:"rowCount" gorm:"not null;default:0"`
	Metadata           datatypes.JSON `json:"metadata,omitempty"`
	ProcessedAt        *time.Time     `json:"processedAt,omitempty"`

	Owner *User `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
}

func (File) TableName() string {
	return "files"
}

func (f *File) IsProcessed() bool {
	return f.Status == FileStatusProcessed
}

// FileBlob holds payload bytes when the database blob driver is in use.
type FileBlob struct {
	Key         string    `gorm:"column:storage_key;type:varchar(512);primaryKey"`
	ContentType string    `gorm:"type:varchar(255);not null"`
	Data        []byte    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (FileBlob) TableName() string {
	return "file_blobs"
}
