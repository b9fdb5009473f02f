package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/database"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/services"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/storage"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/downloadtoken"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type testEnv struct {
	app           *fiber.App
	db            *gorm.DB
	notifications *services.NotificationService
}

var testSetupOnce sync.Once

// passthroughImages reports every image as already within bounds.
type passthroughImages struct{}

func (passthroughImages) Fit(data []byte, maxWidth, maxHeight, _ int) (*services.ImageResult, error) {
	return &services.ImageResult{Data: data, Width: maxWidth, Height: maxHeight, Format: "png", ContentType: "image/png"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "excel-analytics-test", Env: "test"},
		Server: config.ServerConfig{BodyLimitMB: 4},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpirationHours: 24, DownloadLinkTTL: time.Minute},
		Upload: config.UploadConfig{
			MaxSizeMB:      1,
			ImageMaxWidth:  800,
			ImageMaxHeight: 600,
			ImageQuality:   80,
		},
		Processing: config.ProcessingConfig{Mode: config.ProcessingModeSync, MaxAttempts: 1},
		Dashboard:  config.DashboardConfig{CacheSize: 8, CacheTTL: time.Minute},
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.SetOutput(io.Discard)
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	cfg := testConfig()
	blobs := storage.NewDatabaseStore(db)
	notifications := services.NewNotificationService(db, cfg.Notifications)
	transcoder := services.NewTranscoder(passthroughImages{}, cfg.Upload)

	app := NewApp(cfg, &Services{
		DB:            db,
		Blobs:         blobs,
		Files:         services.NewFileService(db, blobs),
		Queue:         services.NewProcessingQueue(db, blobs, transcoder, notifications, cfg.Processing),
		Charts:        services.NewChartService(db, blobs),
		Stats:         services.NewStatsService(db, cfg.Dashboard),
		Notifications: notifications,
		Signer:        downloadtoken.New(cfg.JWT.Secret, cfg.JWT.DownloadLinkTTL),
	})

	return &testEnv{app: app, db: db, notifications: notifications}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       models.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}
	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}
	return performRequest(t, app, method, path, body, requestHeaders)
}

// performUpload posts a multipart upload with the given extra form fields.
func performUpload(t *testing.T, app *fiber.App, token, filename string, content []byte, fields map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed writing form field: %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed creating form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed writing form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	headers := authHeaders(token)
	headers["Content-Type"] = writer.FormDataContentType()
	return performRequest(t, app, http.MethodPost, "/api/v1/files/upload", &buf, headers)
}

// uploadCSV uploads content and returns the created file's id.
func uploadCSV(t *testing.T, env *testEnv, token, filename, content string, fields map[string]string) string {
	t.Helper()
	resp := performUpload(t, env.app, token, filename, []byte(content), fields)
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusCreated)
	return dataMap(t, body)["id"].(string)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}
	return payload
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %T (%+v)", body["data"], body)
	}
	return data
}

func dataList(t *testing.T, body map[string]any) []any {
	t.Helper()
	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected array data, got %T (%+v)", body["data"], body)
	}
	return data
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
