package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/database"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/storage"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupServicesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Init()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating: %v", err)
	}
	return db
}

func createServiceTestUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Test " + string(role),
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Status:       models.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	return user
}

// fakeImages stands in for libvips: it reports the image as fitted to the
// bounds without touching the bytes.
type fakeImages struct{}

func (fakeImages) Fit(data []byte, maxWidth, maxHeight, _ int) (*ImageResult, error) {
	if len(data) < 4 {
		return nil, invalidContent("unreadable image")
	}
	w, h := fitWithin(4000, 3000, maxWidth, maxHeight)
	return &ImageResult{Data: data[:len(data)/2], Width: w, Height: h, Format: "jpeg", ContentType: "image/jpeg"}, nil
}

// flakyBlobs fails the first failures Get calls.
type flakyBlobs struct {
	storage.BlobStore
	mu       sync.Mutex
	failures int
}

func (f *flakyBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, errors.New("storage temporarily unavailable")
	}
	f.mu.Unlock()
	return f.BlobStore.Get(ctx, key)
}

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{MaxSizeMB: 10, ImageMaxWidth: 1920, ImageMaxHeight: 1080, ImageQuality: 80}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
