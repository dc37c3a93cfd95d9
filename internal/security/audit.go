package security

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Security events written by the auth handlers.
const (
	EventLoginSuccess     = "login_success"
	EventLoginFailed      = "login_failed"
	EventLoginRateLimited = "login_rate_limited"
	EventLogout           = "logout"
	EventUserRegistered   = "user_registered"
	EventCSRFFailed       = "csrf_failed"
	EventAccessDenied     = "access_denied"
)

// AuditLog appends one JSON line per security event:
// {"timestamp":..., "event":..., "ip":..., "user_agent":..., "user_id":..., "success":..., "data":{...}}
type AuditLog struct {
	log    *slog.Logger
	closer io.Closer
	now    func() time.Time
}

// OpenAuditLog appends to the file at path, creating its directory when needed.
func OpenAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("security.OpenAuditLog: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("security.OpenAuditLog: %w", err)
	}
	a := NewAuditLog(f)
	a.closer = f
	return a, nil
}

// NewAuditLog writes events to w.
func NewAuditLog(w io.Writer) *AuditLog {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.LevelKey, slog.TimeKey:
				return slog.Attr{}
			case slog.MessageKey:
				a.Key = "event"
			}
			return a
		},
	})
	return &AuditLog{log: slog.New(h), now: time.Now}
}

// Event records one security event for the request.
func (a *AuditLog) Event(r *http.Request, event, userID string, success bool, data map[string]any) {
	if a == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	a.log.LogAttrs(context.Background(), slog.LevelInfo, event,
		slog.String("timestamp", a.now().UTC().Format(time.RFC3339)),
		slog.String("ip", ClientIP(r)),
		slog.String("user_agent", r.UserAgent()),
		slog.String("user_id", userID),
		slog.Bool("success", success),
		slog.Any("data", data),
	)
}

// Close closes the underlying file when the log was opened from a path.
func (a *AuditLog) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
