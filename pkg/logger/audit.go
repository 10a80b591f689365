package logger

import (
	"context"
	"log/slog"
	"time"
)

// SecurityEvent is the operational-log shape of a security incident. The
// durable copy lives in the audit_events table; this stream exists so that
// incidents are visible even when the database write fails.
type SecurityEvent struct {
	Action      string
	AccountID   string
	Handle      string
	IPAddress   string
	UserAgent   string
	Success     bool
	Description string
}

// AuditLogger provides structured security logging on top of slog.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogSecurityEvent writes a security event to the operational log.
func (al *AuditLogger) LogSecurityEvent(event SecurityEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("action", event.Action),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	if event.Handle != "" {
		attrs = append(attrs, slog.String("handle", event.Handle))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.Description != "" {
		attrs = append(attrs, slog.String("description", event.Description))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

// LogBestEffortFailure records a swallowed failure from a best-effort
// operation (audit persistence, notification creation, mail send).
func LogBestEffortFailure(ctx context.Context, logger *slog.Logger, operation string, err error, attrs ...slog.Attr) {
	all := append([]slog.Attr{
		slog.String("operation", operation),
		slog.Any("error", err),
	}, attrs...)
	logger.LogAttrs(ctx, slog.LevelError, "best-effort operation failed", all...)
}
