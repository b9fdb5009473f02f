package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), GormConfig())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type recordingWriter struct {
	lines []string
}

func (w *recordingWriter) Printf(format string, args ...any) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func TestGormConfig(t *testing.T) {
	db := newSQLiteDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	t.Run("duplicate email is translated", func(t *testing.T) {
		first := models.User{Name: "A", Email: "dup@example.com", PasswordHash: "x", Role: models.UserRoleUser, Status: models.UserStatusActive}
		if err := db.Create(&first).Error; err != nil {
			t.Fatalf("create failed: %v", err)
		}
		second := models.User{Name: "B", Email: "dup@example.com", PasswordHash: "x", Role: models.UserRoleUser, Status: models.UserStatusActive}
		if err := db.Create(&second).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
			t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", err)
		}
	})

	t.Run("record not found is not logged", func(t *testing.T) {
		w := &recordingWriter{}
		quiet := db.Session(&gorm.Session{Logger: newGormLogger(w, gormlogger.Warn)})

		var user models.User
		if err := quiet.First(&user, "email = ?", "nobody@example.com").Error; !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Fatalf("expected ErrRecordNotFound, got %v", err)
		}
		if len(w.lines) != 0 {
			t.Fatalf("expected no log output, got %v", w.lines)
		}

		_ = quiet.Exec("SELECT * FROM missing_table").Error
		if len(w.lines) == 0 {
			t.Fatal("expected real errors to still be logged")
		}
	})
}

func TestMigrateAndSeedAdmin(t *testing.T) {
	db := newSQLiteDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	seed := config.AdminSeedConfig{Email: "Root@Example.com", Password: "admin12345"}
	if err := SeedAdmin(db, seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := SeedAdmin(db, seed); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	var admins []models.User
	if err := db.Find(&admins).Error; err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(admins) != 1 {
		t.Fatalf("expected exactly one seeded user, got %d", len(admins))
	}
	if admins[0].Email != "root@example.com" || !admins[0].IsAdmin() || admins[0].Name != "Administrator" {
		t.Fatalf("unexpected seeded admin: %+v", admins[0])
	}
}

func TestSeedAdminSkipsWithoutEmail(t *testing.T) {
	db := newSQLiteDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := SeedAdmin(db, config.AdminSeedConfig{}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no users, got %d", count)
	}
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	if _, err := Dialector(config.DBConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestConnectSQLite(t *testing.T) {
	cfg := &config.Config{
		DB:    config.DBConfig{Driver: "sqlite", SQLitePath: "file::memory:"},
		Admin: config.AdminSeedConfig{Email: "admin@example.com", Password: "admin12345"},
	}

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	var count int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&count)
	if count != 1 {
		t.Fatalf("expected seeded admin, got %d", count)
	}
}

// TestConnectPostgres runs against a real Postgres container and is skipped
// unless TEST_INTEGRATION is set.
func TestConnectPostgres(t *testing.T) {
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("excel_test"),
		postgres.WithUsername("excel"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	cfg := &config.Config{
		DB: config.DBConfig{
			Driver:   "postgres",
			Host:     host,
			Port:     port.Port(),
			User:     "excel",
			Password: "test-password",
			Name:     "excel_test",
			SSLMode:  "disable",
		},
		Admin: config.AdminSeedConfig{Email: "admin@example.com", Password: "admin12345"},
	}

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	chart := models.Chart{
		Title:     "Revenue",
		ChartType: models.ChartTypeBar,
		Data: models.ChartData{
			Labels:   []string{"Q1", "Q2"},
			Datasets: []models.ChartDataset{{Label: "2025", Data: []float64{1, 2}}},
		},
		OwnerID: seededAdminID(t, db),
	}
	if err := db.Create(&chart).Error; err != nil {
		t.Fatalf("failed to store chart with jsonb data: %v", err)
	}

	var loaded models.Chart
	if err := db.First(&loaded, "id = ?", chart.ID).Error; err != nil {
		t.Fatalf("failed to reload chart: %v", err)
	}
	if len(loaded.Data.Datasets) != 1 || loaded.Data.Datasets[0].Data[1] != 2 {
		t.Fatalf("chart data did not round trip: %+v", loaded.Data)
	}
}

func seededAdminID(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	var admin models.User
	if err := db.Where("role = ?", models.UserRoleAdmin).First(&admin).Error; err != nil {
		t.Fatalf("seeded admin missing: %v", err)
	}
	return admin.ID
}
