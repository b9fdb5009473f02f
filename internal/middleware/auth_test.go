package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/database"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func setupMiddlewareTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Init()
	utils.ConfigureJWT("middleware-test-secret", 24)

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed automigrating: %v", err)
	}
	return db
}

func createMiddlewareTestUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) (*models.User, string) {
	t.Helper()
	hash, _ := utils.HashPassword("password123")
	user := &models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       models.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating token: %v", err)
	}
	return user, token
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed decoding body: %v body=%q", err, string(raw))
	}
	return body
}

func get(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestRequireAuth(t *testing.T) {
	db := setupMiddlewareTestDB(t)
	auth := NewAuthMiddleware(db)
	_, token := createMiddlewareTestUser(t, db, "auth-require@test.com", models.UserRoleUser)

	app := fiber.New()
	app.Get("/protected", auth.RequireAuth, func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		return c.JSON(fiber.Map{"email": user.Email, "userID": logger.UserIDFromContext(c)})
	})

	t.Run("missing authorization header", func(t *testing.T) {
		resp := get(t, app, "/protected", "")
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
		if body["error"] != "missing authorization header" {
			t.Fatalf("expected missing header error, got %v", body["error"])
		}
	})

	t.Run("invalid authorization format", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Basic somecreds")
		resp, _ := app.Test(req, 5000)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
		if body["error"] != "invalid authorization format" {
			t.Fatalf("expected invalid format error, got %v", body["error"])
		}
	})

	t.Run("invalid JWT token", func(t *testing.T) {
		resp := get(t, app, "/protected", "invalid-jwt-token")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("valid JWT token", func(t *testing.T) {
		resp := get(t, app, "/protected", token)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if body["email"] != "auth-require@test.com" || body["userID"] == nil {
			t.Fatalf("unexpected body %v", body)
		}
	})

	t.Run("JWT for deleted user", func(t *testing.T) {
		deleted, deletedToken := createMiddlewareTestUser(t, db, "deleted@test.com", models.UserRoleUser)
		db.Delete(deleted)

		resp := get(t, app, "/protected", deletedToken)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive, inactiveToken := createMiddlewareTestUser(t, db, "inactive@test.com", models.UserRoleUser)
		db.Model(inactive).Update("status", models.UserStatusInactive)

		resp := get(t, app, "/protected", inactiveToken)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.StatusCode)
		}
		if body["error"] != "account is inactive" {
			t.Fatalf("unexpected error %v", body["error"])
		}
	})
}

func TestAdminOnly(t *testing.T) {
	db := setupMiddlewareTestDB(t)
	auth := NewAuthMiddleware(db)
	_, userToken := createMiddlewareTestUser(t, db, "user@test.com", models.UserRoleUser)
	_, adminToken := createMiddlewareTestUser(t, db, "admin@test.com", models.UserRoleAdmin)

	app := fiber.New()
	app.Get("/admin", auth.RequireAuth, AdminOnly, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/unauthenticated", AdminOnly, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	t.Run("regular user", func(t *testing.T) {
		resp := get(t, app, "/admin", userToken)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusForbidden || body["error"] != "admin access required" {
			t.Fatalf("expected 403 admin access required, got %d %v", resp.StatusCode, body["error"])
		}
	})

	t.Run("admin", func(t *testing.T) {
		resp := get(t, app, "/admin", adminToken)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("no user in context", func(t *testing.T) {
		resp := get(t, app, "/unauthenticated", "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})
}

func TestOptionalAuth(t *testing.T) {
	db := setupMiddlewareTestDB(t)
	auth := NewAuthMiddleware(db)
	_, token := createMiddlewareTestUser(t, db, "optional@test.com", models.UserRoleUser)

	app := fiber.New()
	app.Get("/maybe", auth.OptionalAuth, func(c *fiber.Ctx) error {
		if user := GetCurrentUser(c); user != nil {
			return c.SendString(user.Email)
		}
		return c.SendString("anonymous")
	})

	testCases := []struct {
		name  string
		token string
		want  string
	}{
		{"no token", "", "anonymous"},
		{"bad token", "garbage", "anonymous"},
		{"valid token", token, "optional@test.com"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, app, "/maybe", tc.token)
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(raw) != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, string(raw))
			}
		})
	}
}
