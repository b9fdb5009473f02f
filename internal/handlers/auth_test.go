package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
)

func TestRegister(t *testing.T) {
	env := setupTestEnv(t)
	admin, _ := createTestUser(t, env.db, "admin@example.com", "password123", models.UserRoleAdmin)

	t.Run("creates user and returns token", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/v1/auth/register", map[string]any{
			"name":     "Jane Analyst",
			"email":    "  Jane@Example.com ",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)

		data := dataMap(t, body)
		if token, _ := data["token"].(string); token == "" {
			t.Fatal("expected a token")
		}
		user := data["user"].(map[string]any)
		if user["email"] != "jane@example.com" {
			t.Fatalf("expected normalized email, got %v", user["email"])
		}
		if user["role"] != "user" {
			t.Fatalf("expected role user, got %v", user["role"])
		}
		if _, ok := user["passwordHash"]; ok {
			t.Fatal("password hash must not be serialized")
		}
	})

	t.Run("admins are told about the new user", func(t *testing.T) {
		var count int64
		env.db.Model(&models.Notification{}).
			Where("recipient_id IS NULL AND title = ?", "New user registered").
			Count(&count)
		if count != 1 {
			t.Fatalf("expected 1 registration broadcast, got %d", count)
		}
		unread, err := env.notifications.UnreadCount(t.Context(), admin)
		if err != nil {
			t.Fatalf("unread count: %v", err)
		}
		if unread != 1 {
			t.Fatalf("expected admin to have 1 unread notification, got %d", unread)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/v1/auth/register", map[string]any{
			"name":     "Jane Again",
			"email":    "jane@example.com",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusConflict)
		assertEnvelopeError(t, body, "email already registered")
	})

	cases := []struct {
		name    string
		payload map[string]any
		message string
	}{
		{"invalid email", map[string]any{"name": "X", "email": "not-an-email", "password": "password123"}, "invalid email"},
		{"short password", map[string]any{"name": "X", "email": "x@example.com", "password": "short"}, "password must be at least 8 characters"},
		{"missing name", map[string]any{"name": "  ", "email": "x@example.com", "password": "password123"}, "name is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/v1/auth/register", tc.payload, nil)
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusBadRequest)
			assertEnvelopeError(t, body, tc.message)
		})
	}
}

func TestRegisterConcurrentDuplicates(t *testing.T) {
	env := setupTestEnv(t)

	const attempts = 4
	statuses := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
				strings.NewReader(`{"name":"Racer","email":"race@example.com","password":"password123"}`))
			req.Header.Set("Content-Type", "application/json")
			resp, err := env.app.Test(req, 10000)
			if err != nil {
				t.Errorf("request failed: %v", err)
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created := 0
	for _, status := range statuses {
		switch status {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Fatalf("expected only 201 or 409, got %v", statuses)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one registration to succeed, got %v", statuses)
	}
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "user@example.com", "password123", models.UserRoleUser)
	inactive, _ := createTestUser(t, env.db, "gone@example.com", "password123", models.UserRoleUser)
	env.db.Model(inactive).Update("status", models.UserStatusInactive)

	t.Run("valid credentials", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/v1/auth/login", map[string]any{
			"email":    "USER@example.com",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)

		user := dataMap(t, body)["user"].(map[string]any)
		if user["lastLogin"] == nil {
			t.Fatal("expected lastLogin to be recorded")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/v1/auth/login", map[string]any{
			"email":    "user@example.com",
			"password": "wrong-password",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "invalid credentials")
	})

	t.Run("unknown email", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/v1/auth/login", map[string]any{
			"email":    "nobody@example.com",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "invalid credentials")
	})

	t.Run("inactive account", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/v1/auth/login", map[string]any{
			"email":    "gone@example.com",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusForbidden)
		assertEnvelopeError(t, body, "account is inactive")
	})
}

func TestProfileEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "user@example.com", "password123", models.UserRoleUser)

	t.Run("me requires auth", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/v1/auth/me", nil, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "missing authorization header")
	})

	t.Run("me returns the caller", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/v1/auth/me", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if got := dataMap(t, body)["email"]; got != "user@example.com" {
			t.Fatalf("expected user@example.com, got %v", got)
		}
	})

	t.Run("update name", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/v1/auth/me", map[string]any{"name": "Renamed"}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if got := dataMap(t, body)["name"]; got != "Renamed" {
			t.Fatalf("expected Renamed, got %v", got)
		}
	})

	t.Run("change password rejects wrong old password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/v1/auth/password", map[string]any{
			"oldPassword": "nope-nope",
			"newPassword": "newpassword123",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "oldPassword is incorrect")
	})

	t.Run("change password then login with it", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/v1/auth/password", map[string]any{
			"oldPassword": "password123",
			"newPassword": "newpassword123",
		}, authHeaders(token))
		resp.Body.Close()
		assertStatus(t, resp, http.StatusOK)

		resp = performJSONRequest(t, env.app, http.MethodPost, "/api/v1/auth/login", map[string]any{
			"email":    "user@example.com",
			"password": "newpassword123",
		}, nil)
		resp.Body.Close()
		assertStatus(t, resp, http.StatusOK)
	})
}
