package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/client"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Out
	Out = &buf
	t.Cleanup(func() { Out = prev })
	return &buf
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatSize(tt.input); got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"just now", time.Now(), "just now"},
		{"minutes", time.Now().Add(-5 * time.Minute), "5m ago"},
		{"hours", time.Now().Add(-3 * time.Hour), "3h ago"},
		{"days", time.Now().Add(-7 * 24 * time.Hour), "7d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativeTime(tt.at); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	t.Run("old dates are absolute", func(t *testing.T) {
		old := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
		if got := RelativeTime(old); got != "2020-01-02" {
			t.Errorf("expected 2020-01-02, got %q", got)
		}
	})
}

func TestShortMIME(t *testing.T) {
	tests := map[string]string{
		"text/csv": "csv",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xlsx",
		"image/png": "png",
		"weird":     "weird",
	}
	for in, want := range tests {
		if got := shortMIME(in); got != want {
			t.Errorf("shortMIME(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileTable(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		buf := captureOutput(t)
		FileTable(nil)
		if got := buf.String(); got != "No files found.\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("rows", func(t *testing.T) {
		buf := captureOutput(t)
		FileTable([]client.File{{
			ID:           "f1",
			OriginalName: "sales.csv",
			MimeType:     "text/csv",
			Size:         2048,
			Status:       "processed",
			RowCount:     12,
			CreatedAt:    time.Now(),
		}})
		out := buf.String()
		for _, want := range []string{"sales.csv", "2.0 KB", "csv", "processed", "12", "just now"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})
}

func TestChartDetail(t *testing.T) {
	buf := captureOutput(t)
	ChartDetail(client.Chart{
		Title:     "Revenue",
		ChartType: "bar",
		Data: client.ChartData{
			Labels:   []string{"north", "south"},
			Datasets: []client.ChartDataset{{Label: "revenue", Data: []float64{100, 12.5}}},
		},
	})
	out := buf.String()
	for _, want := range []string{"Revenue (bar)", "REVENUE", "north", "100", "12.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestNotificationTableMarksUnread(t *testing.T) {
	buf := captureOutput(t)
	NotificationTable([]client.Notification{
		{ID: "n1", Title: "File processed", Priority: "low", CreatedAt: time.Now()},
		{ID: "n2", Title: "Old news", Priority: "medium", Read: true, CreatedAt: time.Now()},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "*") {
		t.Errorf("expected unread marker on %q", lines[1])
	}
	if strings.Contains(lines[2], "*") {
		t.Errorf("unexpected unread marker on %q", lines[2])
	}
}
