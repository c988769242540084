// Package logger provides simulation-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// SimulationLogger provides dedicated logging for simulation runs.
type SimulationLogger struct {
	*logrus.Entry
}

// NewSimulationLogger creates a new simulation logger.
func NewSimulationLogger(baseLogger *logrus.Logger) *SimulationLogger {
	return &SimulationLogger{
		Entry: baseLogger.WithField("component", "simulation"),
	}
}

// LogRunStarted logs the start of a simulation run.
func (sl *SimulationLogger) LogRunStarted(runID, raceID string, competitors, trials, depth, workers int, seed int64) {
	sl.WithFields(logrus.Fields{
		"run_id":      runID,
		"race_id":     raceID,
		"competitors": competitors,
		"trials":      trials,
		"depth":       depth,
		"workers":     workers,
		"seed":        seed,
	}).Debug("Simulation run started")
}

// LogRunCompleted logs a finished simulation run.
func (sl *SimulationLogger) LogRunCompleted(runID, raceID string, trials int, fallbacks int64, durationMs float64) {
	sl.WithFields(logrus.Fields{
		"run_id":      runID,
		"race_id":     raceID,
		"trials":      trials,
		"fallbacks":   fallbacks,
		"duration_ms": durationMs,
	}).Info("Simulation run completed")
}

// LogNumericFallback logs trials that fell back because the remaining mass underflowed.
func (sl *SimulationLogger) LogNumericFallback(runID, raceID, policy string, fallbacks int64, trials int) {
	sl.WithFields(logrus.Fields{
		"run_id":          runID,
		"race_id":         raceID,
		"fallback_policy": policy,
		"fallbacks":       fallbacks,
		"trials":          trials,
		"event_type":      "numeric_instability",
	}).Warn("Remaining strength underflowed; fallback selection applied")
}

// LogZeroStrengthPlacements logs trials whose lower places went to competitors
// entered with zero weight. These follow from the input, so they log at debug.
func (sl *SimulationLogger) LogZeroStrengthPlacements(runID, raceID, policy string, placements int64, trials int) {
	sl.WithFields(logrus.Fields{
		"run_id":               runID,
		"race_id":              raceID,
		"fallback_policy":      policy,
		"zero_strength_trials": placements,
		"trials":               trials,
		"event_type":           "zero_strength",
	}).Debug("Only zero-weight competitors remained; fallback selection applied")
}

// LogRunFailed logs a rejected or cancelled run.
func (sl *SimulationLogger) LogRunFailed(runID, raceID string, err error) {
	sl.WithFields(logrus.Fields{
		"run_id":  runID,
		"race_id": raceID,
	}).WithError(err).Warn("Simulation run failed")
}

// LogCacheEvent logs result cache hits and misses.
func (sl *SimulationLogger) LogCacheEvent(raceID, key string, hit bool) {
	sl.WithFields(logrus.Fields{
		"race_id":   raceID,
		"cache_key": key,
		"cache_hit": hit,
	}).Debug("Result cache lookup")
}
