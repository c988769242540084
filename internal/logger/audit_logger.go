// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger records API access and background job activity.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogAPIRequest logs one served API request.
func (al *AuditLogger) LogAPIRequest(method, path string, status int, duration time.Duration, remoteAddr string) {
	al.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": float64(duration.Microseconds()) / 1000,
		"remote_addr": remoteAddr,
	}).Info("API request served")
}

// LogRateLimited logs a rejected request.
func (al *AuditLogger) LogRateLimited(path, remoteAddr string) {
	al.WithFields(logrus.Fields{
		"path":        path,
		"remote_addr": remoteAddr,
		"event_type":  "rate_limited",
	}).Warn("API request rate limited")
}

// LogWarmupRun logs a scheduled warm-up pass over upcoming races.
func (al *AuditLogger) LogWarmupRun(races, warmed, failed int, duration time.Duration) {
	entry := al.WithFields(logrus.Fields{
		"races":       races,
		"warmed":      warmed,
		"failed":      failed,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	})
	if failed > 0 {
		entry.Warn("Upcoming race warm-up finished with failures")
		return
	}
	entry.Info("Upcoming race warm-up finished")
}
