package handlers

import (
	"net/http"
	"testing"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "user@example.com", "password123", models.UserRoleUser)

	for _, path := range []string{"/api/admin/dashboard", "/api/admin/users", "/api/admin/files", "/api/admin/notifications"} {
		t.Run(path, func(t *testing.T) {
			resp := performRequest(t, env.app, http.MethodGet, path, nil, authHeaders(token))
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusForbidden)
			assertEnvelopeError(t, body, "admin access required")
		})
	}
}

func TestAdminDashboard(t *testing.T) {
	env := setupTestEnv(t)
	_, adminToken := createTestUser(t, env.db, "admin@example.com", "password123", models.UserRoleAdmin)
	_, userToken := createTestUser(t, env.db, "user@example.com", "password123", models.UserRoleUser)
	uploadCSV(t, env, userToken, "sales.csv", salesCSV, nil)

	t.Run("totals", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/admin/dashboard?days=7", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)

		data := dataMap(t, body)
		if data["days"] != float64(7) {
			t.Fatalf("expected days 7, got %v", data["days"])
		}
		totals := data["totals"].(map[string]any)
		if totals["users"] != float64(2) || totals["files"] != float64(1) || totals["admins"] != float64(1) {
			t.Fatalf("unexpected totals %+v", totals)
		}
		uploads := data["window"].(map[string]any)["uploads"].(map[string]any)
		if uploads["current"] != float64(1) || uploads["change"] != float64(100) {
			t.Fatalf("unexpected uploads metric %+v", uploads)
		}
	})

	t.Run("days out of range", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/admin/dashboard?days=400", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "days must be between 1 and 365")
	})

	t.Run("user summary", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/v1/analytics/summary", nil, authHeaders(userToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := dataMap(t, body)
		if data["files"] != float64(1) || data["unreadNotifications"] != float64(1) {
			t.Fatalf("unexpected summary %+v", data)
		}
	})
}

func TestAdminUserManagement(t *testing.T) {
	env := setupTestEnv(t)
	admin, adminToken := createTestUser(t, env.db, "admin@example.com", "password123", models.UserRoleAdmin)
	user, userToken := createTestUser(t, env.db, "user@example.com", "password123", models.UserRoleUser)
	uploadCSV(t, env, userToken, "sales.csv", salesCSV, nil)
	createChart(t, env, userToken)

	userPath := "/api/admin/users/" + user.ID.String()

	t.Run("list with filters", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/admin/users?role=admin", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if got := len(dataList(t, body)); got != 1 {
			t.Fatalf("expected 1 admin, got %d", got)
		}

		resp = performRequest(t, env.app, http.MethodGet, "/api/admin/users?search=USER@", nil, authHeaders(adminToken))
		body = decodeJSONMap(t, resp)
		if got := len(dataList(t, body)); got != 1 {
			t.Fatalf("expected 1 match, got %d", got)
		}
	})

	t.Run("get includes usage", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, userPath, nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := dataMap(t, body)
		if data["fileCount"] != float64(1) || data["chartCount"] != float64(1) {
			t.Fatalf("unexpected usage %+v", data)
		}
		if data["storageBytes"] != float64(len(salesCSV)) {
			t.Fatalf("expected storageBytes %d, got %v", len(salesCSV), data["storageBytes"])
		}
	})

	t.Run("deactivate blocks the user", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, userPath, map[string]any{"status": "inactive"}, authHeaders(adminToken))
		resp.Body.Close()
		assertStatus(t, resp, http.StatusOK)

		resp = performRequest(t, env.app, http.MethodGet, "/api/v1/auth/me", nil, authHeaders(userToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusForbidden)
		assertEnvelopeError(t, body, "account is inactive")
	})

	t.Run("cannot demote self", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/admin/users/"+admin.ID.String(), map[string]any{"role": "user"}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "cannot change your own role")
	})

	t.Run("cannot delete self", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/admin/users/"+admin.ID.String(), nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "cannot delete your own account")
	})

	t.Run("delete cascades", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, userPath, nil, authHeaders(adminToken))
		resp.Body.Close()
		assertStatus(t, resp, http.StatusOK)

		var files, charts, blobs int64
		env.db.Model(&models.File{}).Count(&files)
		env.db.Model(&models.Chart{}).Count(&charts)
		env.db.Model(&models.FileBlob{}).Count(&blobs)
		if files != 0 || charts != 0 || blobs != 0 {
			t.Fatalf("expected cascade, got files=%d charts=%d blobs=%d", files, charts, blobs)
		}

		resp = performRequest(t, env.app, http.MethodDelete, userPath, nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertEnvelopeError(t, body, "user not found")
	})
}

func TestAdminNotifications(t *testing.T) {
	env := setupTestEnv(t)
	_, adminToken := createTestUser(t, env.db, "admin@example.com", "password123", models.UserRoleAdmin)
	user, userToken := createTestUser(t, env.db, "user@example.com", "password123", models.UserRoleUser)

	t.Run("targeted notification reaches the user", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/admin/notifications", map[string]any{
			"recipientId": user.ID.String(),
			"title":       "Maintenance",
			"message":     "Tonight at 22:00",
			"priority":    "high",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		if got := dataMap(t, body)["priority"]; got != "high" {
			t.Fatalf("expected high priority, got %v", got)
		}

		resp = performRequest(t, env.app, http.MethodGet, "/api/v1/notifications", nil, authHeaders(userToken))
		body = decodeJSONMap(t, resp)
		if got := len(dataList(t, body)); got != 1 {
			t.Fatalf("expected 1 notification for user, got %d", got)
		}
	})

	t.Run("broadcast is admin only", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/admin/notifications", map[string]any{
			"title":   "Heads up",
			"message": "for admins",
		}, authHeaders(adminToken))
		resp.Body.Close()
		assertStatus(t, resp, http.StatusCreated)

		resp = performRequest(t, env.app, http.MethodGet, "/api/v1/notifications", nil, authHeaders(userToken))
		body := decodeJSONMap(t, resp)
		if got := len(dataList(t, body)); got != 1 {
			t.Fatalf("expected broadcast to stay hidden from user, got %d", got)
		}

		resp = performRequest(t, env.app, http.MethodGet, "/api/admin/notifications?broadcast=true", nil, authHeaders(adminToken))
		body = decodeJSONMap(t, resp)
		if got := len(dataList(t, body)); got != 1 {
			t.Fatalf("expected 1 broadcast, got %d", got)
		}
	})

	t.Run("unknown recipient", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/admin/notifications", map[string]any{
			"recipientId": "00000000-0000-0000-0000-000000000001",
			"title":       "x",
			"message":     "y",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertEnvelopeError(t, body, "recipient not found")
	})

	t.Run("invalid type", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/admin/notifications", map[string]any{
			"title":   "x",
			"message": "y",
			"type":    "shout",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "invalid notification type")
	})
}
