package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the configured database, migrates the schema and seeds the
// first administrator when the users table is empty.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.DB)
	if err != nil {
		return nil, err
	}

	gormCfg := GormConfig()
	if cfg.IsProduction() {
		gormCfg.Logger = newGormLogger(log.New(os.Stdout, "\r\n", log.LstdFlags), gormlogger.Error)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(cfg.DB.Driver, "sqlite") {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := SeedAdmin(db, cfg.Admin); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	return db, nil
}

// GormConfig stamps rows in UTC so that timestamps compare consistently on
// sqlite, which stores them as text. Driver errors are translated, so a
// unique violation surfaces as gorm.ErrDuplicatedKey on every dialect.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
		Logger:         newGormLogger(log.New(os.Stdout, "\r\n", log.LstdFlags), gormlogger.Warn),
	}
}

// newGormLogger skips ErrRecordNotFound: existence checks before inserts
// expect it and would otherwise log an error on every upload.
func newGormLogger(w gormlogger.Writer, level gormlogger.LogLevel) gormlogger.Interface {
	return gormlogger.New(w, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

func Dialector(cfg config.DBConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.File{},
		&models.FileBlob{},
		&models.ProcessingJob{},
		&models.Chart{},
		&models.Notification{},
		&models.NotificationRead{},
	)
}

// SeedAdmin creates the first administrator. It is a no-op once any user
// exists or when no seed email is configured.
func SeedAdmin(db *gorm.DB, seed config.AdminSeedConfig) error {
	if seed.Email == "" || seed.Password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(seed.Password)
	if err != nil {
		return err
	}

	name := seed.Name
	if name == "" {
		name = "Administrator"
	}
	admin := models.User{
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(seed.Email)),
		PasswordHash: hash,
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusActive,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	logger.Info("admin_seeded", map[string]any{"email": admin.Email})
	return nil
}
