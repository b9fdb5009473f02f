package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	DB            DBConfig
	JWT           JWTConfig
	Storage       StorageConfig
	Upload        UploadConfig
	Processing    ProcessingConfig
	Notifications NotificationConfig
	Dashboard     DashboardConfig
	Admin         AdminSeedConfig
}

type AppConfig struct {
	Name string
	Env  string
}

type ServerConfig struct {
	Port        string
	BodyLimitMB int
	CORSOrigins []string
}

type DBConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
	DownloadLinkTTL time.Duration
}

type StorageConfig struct {
	Driver string
	MinIO  MinIOConfig
	S3     S3Config
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type S3Config struct {
	Region       string
	Bucket       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type UploadConfig struct {
	MaxSizeMB      int
	ImageMaxWidth  int
	ImageMaxHeight int
	ImageQuality   int
}

type ProcessingConfig struct {
	Mode            string
	QueueBufferSize int
	MaxAttempts     int
	RetryDelays     []time.Duration
}

type NotificationConfig struct {
	CleanupInterval time.Duration
	DefaultTTL      time.Duration
}

type DashboardConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

type AdminSeedConfig struct {
	Email    string
	Password string
	Name     string
}

const (
	ProcessingModeAsync = "async"
	ProcessingModeSync  = "sync"
)

// Load reads configuration from the environment. A .env file (or the file
// named by ENV_FILE) is applied first without overriding variables that are
// already set.
func Load() *Config {
	loadDotEnv(getEnv("ENV_FILE", ".env"))

	return &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "excel-analytics"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			BodyLimitMB: getEnvAsInt("SERVER_BODY_LIMIT_MB", 60),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		DB: DBConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "excel"),
			Password:   getEnv("DB_PASSWORD", "excel_secret"),
			Name:       getEnv("DB_NAME", "excel_analytics"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "excel-analytics.db"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
			DownloadLinkTTL: getEnvAsDuration("DOWNLOAD_LINK_TTL", 15*time.Minute),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "database"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("MINIO_ACCESS_KEY", "excel"),
				SecretKey: getEnv("MINIO_SECRET_KEY", "excel_secret"),
				Bucket:    getEnv("MINIO_BUCKET", "excel-analytics"),
				UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Region:       getEnv("S3_REGION", "us-east-1"),
				Bucket:       getEnv("S3_BUCKET", "excel-analytics"),
				Endpoint:     getEnv("S3_ENDPOINT", ""),
				AccessKey:    getEnv("S3_ACCESS_KEY", ""),
				SecretKey:    getEnv("S3_SECRET_KEY", ""),
				UsePathStyle: getEnvAsBool("S3_USE_PATH_STYLE", false),
			},
		},
		Upload: UploadConfig{
			MaxSizeMB:      getEnvAsInt("UPLOAD_MAX_SIZE_MB", 50),
			ImageMaxWidth:  getEnvAsInt("IMAGE_MAX_WIDTH", 1920),
			ImageMaxHeight: getEnvAsInt("IMAGE_MAX_HEIGHT", 1080),
			ImageQuality:   getEnvAsInt("IMAGE_QUALITY", 80),
		},
		Processing: ProcessingConfig{
			Mode:            getEnv("PROCESSING_MODE", ProcessingModeAsync),
			QueueBufferSize: getEnvAsInt("PROCESSING_QUEUE_BUFFER_SIZE", 100),
			MaxAttempts:     getEnvAsInt("PROCESSING_MAX_ATTEMPTS", 3),
			RetryDelays:     getEnvAsDurationList("PROCESSING_RETRY_DELAYS", []time.Duration{5 * time.Second, 30 * time.Second, 2 * time.Minute}),
		},
		Notifications: NotificationConfig{
			CleanupInterval: getEnvAsDuration("NOTIFICATION_CLEANUP_INTERVAL", 10*time.Minute),
			DefaultTTL:      getEnvAsDuration("NOTIFICATION_DEFAULT_TTL", 30*24*time.Hour),
		},
		Dashboard: DashboardConfig{
			CacheSize: getEnvAsInt("DASHBOARD_CACHE_SIZE", 64),
			CacheTTL:  getEnvAsDuration("DASHBOARD_CACHE_TTL", time.Minute),
		},
		Admin: AdminSeedConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@example.com"),
			Password: getEnv("ADMIN_PASSWORD", "admin12345"),
			Name:     getEnv("ADMIN_NAME", "Administrator"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

func (c *Config) SyncProcessing() bool {
	return strings.EqualFold(c.Processing.Mode, ProcessingModeSync)
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxSizeMB) * 1024 * 1024
}

func loadDotEnv(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// A malformed file is reported but never fatal; the environment
		// still provides every value.
		os.Stderr.WriteString("config: ignoring " + path + ": " + err.Error() + "\n")
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvAsDurationList(key string, fallback []time.Duration) []time.Duration {
	raw := getEnvAsList(key, nil)
	if raw == nil {
		return fallback
	}
	out := make([]time.Duration, 0, len(raw))
	for _, part := range raw {
		d, err := time.ParseDuration(part)
		if err != nil {
			return fallback
		}
		out = append(out, d)
	}
	return out
}
