package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if val, ok := os.LookupEnv(key); ok {
		t.Cleanup(func() { os.Setenv(key, val) })
	}
	os.Unsetenv(key)
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no env vars set", func(t *testing.T) {
		t.Setenv("ENV_FILE", "")
		for _, key := range []string{"DB_DRIVER", "STORAGE_DRIVER", "PROCESSING_MODE", "SERVER_PORT", "CORS_ORIGINS"} {
			unsetEnv(t, key)
		}

		cfg := Load()
		if cfg.DB.Driver != "postgres" {
			t.Errorf("expected DB.Driver 'postgres', got %s", cfg.DB.Driver)
		}
		if cfg.Storage.Driver != "database" {
			t.Errorf("expected Storage.Driver 'database', got %s", cfg.Storage.Driver)
		}
		if cfg.Server.Port != "8080" {
			t.Errorf("expected Server.Port '8080', got %s", cfg.Server.Port)
		}
		if cfg.SyncProcessing() {
			t.Error("expected async processing by default")
		}
		if len(cfg.Processing.RetryDelays) != 3 {
			t.Errorf("expected 3 retry delays, got %v", cfg.Processing.RetryDelays)
		}
		if cfg.MaxUploadBytes() != 50*1024*1024 {
			t.Errorf("expected 50MB upload limit, got %d", cfg.MaxUploadBytes())
		}
		if cfg.IsProduction() {
			t.Error("expected development by default")
		}
	})

	t.Run("reads environment variables", func(t *testing.T) {
		t.Setenv("ENV_FILE", "")
		t.Setenv("APP_ENV", "Production")
		t.Setenv("DB_DRIVER", "sqlite")
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
		t.Setenv("PROCESSING_MODE", "sync")
		t.Setenv("PROCESSING_RETRY_DELAYS", "1s,10s")
		t.Setenv("NOTIFICATION_DEFAULT_TTL", "48h")
		t.Setenv("MINIO_USE_SSL", "true")

		cfg := Load()
		if !cfg.IsProduction() {
			t.Error("expected production")
		}
		if cfg.DB.Driver != "sqlite" || cfg.Server.Port != "9090" {
			t.Errorf("unexpected db/server config: %+v %+v", cfg.DB, cfg.Server)
		}
		if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example.com" {
			t.Errorf("unexpected CORS origins: %v", cfg.Server.CORSOrigins)
		}
		if !cfg.SyncProcessing() {
			t.Error("expected sync processing")
		}
		if got := cfg.Processing.RetryDelays; len(got) != 2 || got[1] != 10*time.Second {
			t.Errorf("unexpected retry delays: %v", got)
		}
		if cfg.Notifications.DefaultTTL != 48*time.Hour {
			t.Errorf("unexpected TTL: %v", cfg.Notifications.DefaultTTL)
		}
		if !cfg.Storage.MinIO.UseSSL {
			t.Error("expected MinIO SSL")
		}
	})

	t.Run("falls back on malformed values", func(t *testing.T) {
		t.Setenv("ENV_FILE", "")
		t.Setenv("JWT_EXPIRATION_HOURS", "soon")
		t.Setenv("PROCESSING_RETRY_DELAYS", "1s,never")

		cfg := Load()
		if cfg.JWT.ExpirationHours != 24 {
			t.Errorf("expected fallback 24, got %d", cfg.JWT.ExpirationHours)
		}
		if len(cfg.Processing.RetryDelays) != 3 {
			t.Errorf("expected fallback delays, got %v", cfg.Processing.RetryDelays)
		}
	})

	t.Run("loads dotenv file without overriding the environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		if err := os.WriteFile(path, []byte("UPLOAD_MAX_SIZE_MB=7\nSERVER_PORT=1111\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("ENV_FILE", path)
		t.Setenv("SERVER_PORT", "2222")
		unsetEnv(t, "UPLOAD_MAX_SIZE_MB")
		t.Cleanup(func() { os.Unsetenv("UPLOAD_MAX_SIZE_MB") })

		cfg := Load()
		if cfg.Upload.MaxSizeMB != 7 {
			t.Errorf("expected value from dotenv, got %d", cfg.Upload.MaxSizeMB)
		}
		if cfg.Server.Port != "2222" {
			t.Errorf("expected environment to win, got %s", cfg.Server.Port)
		}
	})
}
