package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsLabelsByRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/metrics", MetricsHandler())
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "204")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/"+id, nil), 5000)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Fatalf("expected 3 requests on the route pattern, got %v", got)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), 5000)
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "excel_http_requests_total") {
		t.Fatal("expected request counter in exposition output")
	}
}
