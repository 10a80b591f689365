package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	pkglogger "github.com/rmfernandez/acadguard/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestLogSecurityEvent_FailureLogsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	audit := pkglogger.NewAuditLogger(jsonLogger(&buf))

	audit.LogSecurityEvent(pkglogger.SecurityEvent{
		Action:    "login_failed",
		Handle:    "jdoe",
		IPAddress: "198.51.100.7",
		Success:   false,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "login_failed", entry["action"])
	assert.Equal(t, "jdoe", entry["handle"])
	assert.Equal(t, false, entry["success"])
}

func TestLogSecurityEvent_SuccessLogsAtInfo(t *testing.T) {
	var buf bytes.Buffer
	audit := pkglogger.NewAuditLogger(jsonLogger(&buf))

	audit.LogSecurityEvent(pkglogger.SecurityEvent{
		Action:  "login_success",
		Success: true,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.NotContains(t, entry, "handle")
}

func TestLogBestEffortFailure(t *testing.T) {
	var buf bytes.Buffer

	pkglogger.LogBestEffortFailure(context.Background(), jsonLogger(&buf),
		"audit persistence", errors.New("connection refused"),
		slog.String("action", "login_failed"),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "best-effort operation failed", entry["msg"])
	assert.Equal(t, "audit persistence", entry["operation"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, "login_failed", entry["action"])
}
