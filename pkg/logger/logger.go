package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	UserID    *string        `json:"user_id,omitempty"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Logger writes one JSON object per line. Writes are serialised so lines
// from concurrent requests never interleave.
type Logger struct {
	mu     sync.Mutex
	output io.Writer
	color  bool
}

var std *Logger

func New(output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{output: output, color: output == os.Stdout}
}

// Init installs a stdout logger as the package default.
func Init() {
	std = New(os.Stdout)
}

// SetOutput replaces the package default, mostly for tests.
func SetOutput(w io.Writer) {
	std = New(w)
}

func (l *Logger) write(level Level, action string, userID *string, details map[string]any, err error) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		UserID:    userID,
		Action:    action,
		Details:   details,
	}
	if rid, ok := details["request_id"].(string); ok {
		entry.RequestID = rid
		delete(details, "request_id")
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, mErr := json.Marshal(entry)
	if mErr != nil {
		data, _ = json.Marshal(Entry{Timestamp: entry.Timestamp, Level: LevelError, Action: "log_marshal_failed", Error: mErr.Error()})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.color {
		fmt.Fprintf(l.output, "%s%s\033[0m\n", colorFor(level), data)
		return
	}
	fmt.Fprintf(l.output, "%s\n", data)
}

func colorFor(level Level) string {
	switch level {
	case LevelError:
		return "\033[31m"
	case LevelWarn:
		return "\033[33m"
	default:
		return "\033[36m"
	}
}

func (l *Logger) Info(action string, details map[string]any) {
	l.write(LevelInfo, action, nil, details, nil)
}

func (l *Logger) Warn(action string, details map[string]any) {
	l.write(LevelWarn, action, nil, details, nil)
}

func (l *Logger) Error(action string, err error, details map[string]any) {
	l.write(LevelError, action, nil, details, err)
}

func Info(action string, details map[string]any) {
	if std != nil {
		std.write(LevelInfo, action, nil, details, nil)
	}
}

func InfoWithUser(userID string, action string, details map[string]any) {
	if std != nil {
		std.write(LevelInfo, action, &userID, details, nil)
	}
}

func Warn(action string, details map[string]any) {
	if std != nil {
		std.write(LevelWarn, action, nil, details, nil)
	}
}

func WarnWithUser(userID string, action string, details map[string]any) {
	if std != nil {
		std.write(LevelWarn, action, &userID, details, nil)
	}
}

func Error(action string, err error, details map[string]any) {
	if std != nil {
		std.write(LevelError, action, nil, details, err)
	}
}

func ErrorWithUser(userID string, action string, err error, details map[string]any) {
	if std != nil {
		std.write(LevelError, action, &userID, details, err)
	}
}

// UserIDFromContext returns the authenticated user's ID stored by the auth
// middleware, if any.
func UserIDFromContext(c *fiber.Ctx) *string {
	if id, ok := c.Locals("userID").(string); ok && id != "" {
		return &id
	}
	return nil
}

var sensitiveFields = []string{"password", "oldPassword", "newPassword", "secret", "token"}

func redact(m map[string]any) {
	for _, field := range sensitiveFields {
		if _, ok := m[field]; ok {
			m[field] = "[REDACTED]"
		}
	}
}

// RequestBodySummary describes a request body for logs without leaking
// credentials or dumping uploads.
func RequestBodySummary(c *fiber.Ctx) string {
	body := c.Body()
	switch {
	case len(body) == 0:
		return "empty"
	case len(body) > 1024:
		return fmt.Sprintf("large (%d bytes)", len(body))
	}

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return fmt.Sprintf("binary (%d bytes)", len(body))
	}
	redact(m)
	out, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("binary (%d bytes)", len(body))
	}
	if len(out) > 200 {
		return string(out[:200]) + "..."
	}
	return string(out)
}

func NewRequestID() string {
	return uuid.New().String()
}
