package storage

import (
	"context"
	"errors"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DatabaseStore keeps payloads in the file_blobs table next to the file
// metadata.
type DatabaseStore struct {
	db *gorm.DB
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Driver() string {
	return "database"
}

func (s *DatabaseStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	blob := models.FileBlob{Key: key, ContentType: contentType, Data: data}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_type", "data", "updated_at"}),
	}).Create(&blob).Error
}

func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, error) {
	var blob models.FileBlob
	err := s.db.WithContext(ctx).Where("storage_key = ?", key).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}

func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("storage_key = ?", key).Delete(&models.FileBlob{}).Error
}

func (s *DatabaseStore) EnsureReady(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.FileBlob{})
}
