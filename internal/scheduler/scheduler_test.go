package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/service"
)

type fakeWarmer struct {
	mu     sync.Mutex
	calls  int
	within time.Duration
	limit  int
	report service.WarmupReport
	err    error
}

func (f *fakeWarmer) WarmUpcoming(ctx context.Context, within time.Duration, limit int) (service.WarmupReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.within = within
	f.limit = limit
	return f.report, f.err
}

func TestScheduleWarmupValidation(t *testing.T) {
	s := NewScheduler(&fakeWarmer{}, nil)

	assert.Error(t, s.ScheduleWarmup("not a cron", time.Hour, 10))
	assert.Error(t, s.ScheduleWarmup("*/5 * * * *", 0, 10))
	require.NoError(t, s.ScheduleWarmup("*/5 * * * *", time.Hour, 10))
	assert.Len(t, s.Entries(), 1)
}

func TestStartRequiresJobs(t *testing.T) {
	s := NewScheduler(&fakeWarmer{}, nil)
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeWarmer{}, nil)
	require.NoError(t, s.ScheduleWarmup("@every 1h", time.Hour, 5))

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.Error(t, s.ScheduleWarmup("@every 1h", time.Hour, 5))
	assert.False(t, s.GetNextRun().IsZero())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
}

func TestRunWarmupPassesWindow(t *testing.T) {
	warmer := &fakeWarmer{report: service.WarmupReport{Races: 3, Warmed: 2, Failed: 1}}
	s := NewScheduler(warmer, nil)

	s.runWarmup(90*time.Minute, 7)
	assert.Equal(t, 1, warmer.calls)
	assert.Equal(t, 90*time.Minute, warmer.within)
	assert.Equal(t, 7, warmer.limit)

	warmer.err = errors.New("database down")
	s.runWarmup(time.Hour, 7)
	assert.Equal(t, 2, warmer.calls)
}

func TestNewFromConfig(t *testing.T) {
	warmer := &fakeWarmer{}
	s, err := NewFromConfig(warmer, &config.SchedulerConfig{Enabled: true, WarmupCron: "*/5 * * * *", LookaheadMinutes: 30}, nil)
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 1)

	_, err = NewFromConfig(warmer, &config.SchedulerConfig{Enabled: true, WarmupCron: "*/5 * * * *"}, nil)
	assert.Error(t, err)
}
