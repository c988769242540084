// Package scheduler runs periodic prediction warm-up for upcoming races.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/logger"
	"github.com/yourusername/podium/internal/metrics"
	"github.com/yourusername/podium/internal/service"
)

// DefaultWarmupLimit caps the races warmed per run.
const DefaultWarmupLimit = 50

// Warmer predicts upcoming races ahead of API reads.
type Warmer interface {
	WarmUpcoming(ctx context.Context, within time.Duration, limit int) (service.WarmupReport, error)
}

// Scheduler manages scheduled warm-up jobs
type Scheduler struct {
	cron            *cron.Cron
	warmer          Warmer
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(warmer Warmer, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		warmer:          warmer,
		logger:          log,
		jobIDs:          make([]cron.EntryID, 0),
		jobTimeout:      4 * time.Minute,
		gracefulTimeout: 30 * time.Second,
	}
}

// NewFromConfig creates a scheduler with the configured warm-up job registered.
func NewFromConfig(warmer Warmer, cfg *config.SchedulerConfig, log *logrus.Logger) (*Scheduler, error) {
	s := NewScheduler(warmer, log)
	within := time.Duration(cfg.LookaheadMinutes) * time.Minute
	if err := s.ScheduleWarmup(cfg.WarmupCron, within, DefaultWarmupLimit); err != nil {
		return nil, err
	}
	return s, nil
}

// ScheduleWarmup schedules prediction of races starting within the lookahead window
func (s *Scheduler) ScheduleWarmup(cronExpression string, within time.Duration, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if within <= 0 {
		return fmt.Errorf("warm-up lookahead must be positive, got %s", within)
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() { s.runWarmup(within, limit) })
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"cron":      cronExpression,
		"lookahead": within.String(),
		"limit":     limit,
	}).Info("Scheduled prediction warm-up job")

	return nil
}

func (s *Scheduler) runWarmup(within time.Duration, limit int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	report, err := s.warmer.WarmUpcoming(ctx, within, limit)
	switch {
	case err != nil:
		metrics.RecordSchedulerJob("error")
		s.logger.WithError(err).Error("Scheduled warm-up failed")
	case report.Failed > 0:
		metrics.RecordSchedulerJob("partial")
	default:
		metrics.RecordSchedulerJob("success")
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop waits for running jobs up to the graceful timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return errors.New("timed out waiting for scheduled jobs to finish")
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
