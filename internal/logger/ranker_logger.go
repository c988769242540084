// Package logger provides ranker client logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// RankerLogger provides dedicated logging for calls to the ranking model.
type RankerLogger struct {
	*logrus.Entry
}

// NewRankerLogger creates a new ranker logger.
func NewRankerLogger(baseLogger *logrus.Logger) *RankerLogger {
	return &RankerLogger{
		Entry: baseLogger.WithField("component", "ranker"),
	}
}

// LogScoreRequest logs a completed score request.
func (rl *RankerLogger) LogScoreRequest(raceID string, competitors int, latencyMs float64) {
	rl.WithFields(logrus.Fields{
		"race_id":     raceID,
		"competitors": competitors,
		"latency_ms":  latencyMs,
	}).Info("Ranker score request completed")
}

// LogScoreError logs a failed score request.
func (rl *RankerLogger) LogScoreError(raceID string, statusCode int, err error) {
	rl.WithFields(logrus.Fields{
		"race_id":     raceID,
		"status_code": statusCode,
	}).WithError(err).Error("Ranker score request failed")
}
