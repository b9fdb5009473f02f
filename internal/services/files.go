package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/storage"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UploadInput struct {
	Name        string
	MimeType    string
	Data        []byte
	Description string
	Tags        []string
	IsPublic    bool
}

type FileService struct {
	DB    *gorm.DB
	Blobs storage.BlobStore
}

func NewFileService(db *gorm.DB, blobs storage.BlobStore) *FileService {
	return &FileService{DB: db, Blobs: blobs}
}

// Store saves the raw payload and creates the File in "processing" state.
// Transcoding happens afterwards through the processing queue.
func (s *FileService) Store(ctx context.Context, owner *models.User, in UploadInput) (*models.File, error) {
	kind := DetectKind(in.MimeType, in.Name)
	if kind == KindUnsupported {
		return nil, ErrUnsupportedFileType
	}
	if len(in.Data) == 0 {
		return nil, validationErr("file is empty")
	}

	file := &models.File{
		BaseModel:    models.BaseModel{ID: uuid.New()},
		OriginalName: filepath.Base(in.Name),
		MimeType:     CanonicalMimeType(kind, in.MimeType, in.Name),
		Size:         int64(len(in.Data)),
		OwnerID:      owner.ID,
		Description:  in.Description,
		Tags:         NormalizeTags(in.Tags),
		IsPublic:     in.IsPublic,
		Checksum:     utils.Checksum(in.Data),
		Status:       models.FileStatusProcessing,
	}
	file.StorageKey = fmt.Sprintf("files/%s/%s%s", owner.ID, file.ID, strings.ToLower(filepath.Ext(file.OriginalName)))

	if err := s.Blobs.Put(ctx, file.StorageKey, in.Data, file.MimeType); err != nil {
		return nil, fmt.Errorf("failed to store payload: %w", err)
	}
	if err := s.DB.WithContext(ctx).Create(file).Error; err != nil {
		if delErr := s.Blobs.Delete(ctx, file.StorageKey); delErr != nil {
			logger.Error("orphan_blob_cleanup_failed", delErr, map[string]any{"storage_key": file.StorageKey})
		}
		return nil, err
	}
	return file, nil
}

// NormalizeTags trims, lower-cases and de-duplicates tags.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (s *FileService) inTxBlobs() bool {
	_, ok := s.Blobs.(*storage.DatabaseStore)
	return ok
}

// Delete removes a file, its jobs and its payload. Charts built from the
// file keep their data and lose the source reference.
func (s *FileService) Delete(ctx context.Context, file *models.File) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Chart{}).Where("source_file_id = ?", file.ID).
			Update("source_file_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", file.ID).Delete(&models.ProcessingJob{}).Error; err != nil {
			return err
		}
		if s.inTxBlobs() {
			if err := tx.Where("storage_key = ?", file.StorageKey).Delete(&models.FileBlob{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.File{}, "id = ?", file.ID).Error
	})
	if err != nil {
		return err
	}

	if !s.inTxBlobs() {
		s.deleteBlobs(ctx, []string{file.StorageKey})
	}
	return nil
}

// DeleteUser removes a user with everything they own in one transaction.
// External blob stores are cleaned after the commit.
func (s *FileService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	var keys []string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var files []models.File
		if err := tx.Select("id", "storage_key").Where("owner_id = ?", userID).Find(&files).Error; err != nil {
			return err
		}
		fileIDs := make([]uuid.UUID, len(files))
		for i, f := range files {
			fileIDs[i] = f.ID
			keys = append(keys, f.StorageKey)
		}

		if err := tx.Where("owner_id = ?", userID).Delete(&models.Chart{}).Error; err != nil {
			return err
		}
		if len(fileIDs) > 0 {
			if err := tx.Model(&models.Chart{}).Where("source_file_id IN ?", fileIDs).
				Update("source_file_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Where("file_id IN ?", fileIDs).Delete(&models.ProcessingJob{}).Error; err != nil {
				return err
			}
			if s.inTxBlobs() {
				if err := tx.Where("storage_key IN ?", keys).Delete(&models.FileBlob{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("id IN ?", fileIDs).Delete(&models.File{}).Error; err != nil {
				return err
			}
		}
		if err := DeleteNotificationsForUser(tx, userID); err != nil {
			return err
		}

		res := tx.Delete(&models.User{}, "id = ?", userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !s.inTxBlobs() {
		s.deleteBlobs(ctx, keys)
	}
	return nil
}

func (s *FileService) deleteBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.Blobs.Delete(ctx, key); err != nil {
			logger.Error("blob_delete_failed", err, map[string]any{"storage_key": key})
		}
	}
}

// IncrementDownloads bumps the counter atomically in the database.
func (s *FileService) IncrementDownloads(ctx context.Context, fileID uuid.UUID) error {
	return s.DB.WithContext(ctx).Model(&models.File{}).Where("id = ?", fileID).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error
}
