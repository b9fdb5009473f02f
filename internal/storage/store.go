package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"gorm.io/gorm"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore holds file payloads addressed by storage key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	EnsureReady(ctx context.Context) error
	Driver() string
}

// New builds the blob store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, db *gorm.DB) (BlobStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "database", "db":
		return NewDatabaseStore(db), nil
	case "minio":
		return NewMinIOClient(cfg.MinIO)
	case "s3":
		return NewS3Client(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
