// Package simulation estimates finishing-order probabilities of a single event
// by Monte Carlo sampling of the Plackett-Luce model.
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/podium/internal/logger"
)

// cancelCheckInterval is the number of trials between context checks.
const cancelCheckInterval = 256

// Recorder receives run-level measurements.
type Recorder interface {
	RecordSimulationRun(mode, status string, trials int, fallbacks int64, duration time.Duration)
}

// Request describes one simulation call.
//
// A zero Trials or Mode means "use the engine default". A zero Depth means the
// engine default capped at the field size, so a two-runner field gets depth 2.
// Negative Trials or Depth, or an explicit Depth above the field size, are
// input errors. A zero Seed seeds from the clock.
type Request struct {
	RaceID      string
	Competitors []Competitor
	Mode        ScoreMode
	Trials      int
	Depth       int
	Seed        int64
}

// Engine runs simulations. It holds no per-run state and is safe for concurrent use.
type Engine struct {
	cfg      Config
	log      *logger.SimulationLogger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// NewEngine creates a new simulation engine
func NewEngine(cfg Config, log *logrus.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}

	e := &Engine{
		cfg: cfg,
		log: logger.NewSimulationLogger(log),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Simulate runs the request to completion. It returns either a complete result
// or an error, never a partial table.
func (e *Engine) Simulate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.New()

	req = e.withDefaults(req)
	dist, err := e.prepare(req)
	if err != nil {
		e.finish(runID, req, "invalid", 0, start, err)
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	blocks := (req.Trials + e.cfg.BlockSize - 1) / e.cfg.BlockSize
	workers := min(e.cfg.Workers, blocks)

	e.log.LogRunStarted(runID.String(), req.RaceID, dist.Len(), req.Trials, req.Depth, workers, seed)

	tally, err := e.run(ctx, dist, req, seed, blocks, workers)
	if err != nil {
		err = fmt.Errorf("simulation aborted: %w", err)
		e.finish(runID, req, "cancelled", 0, start, err)
		return nil, err
	}

	result := buildResult(dist, tally, Metadata{
		RunID:          runID,
		Trials:         req.Trials,
		Depth:          req.Depth,
		Competitors:    dist.Len(),
		Mode:           req.Mode,
		Seed:           seed,
		Workers:        workers,
		BlockSize:      e.cfg.BlockSize,
		FallbackPolicy: e.cfg.Fallback,
		Duration:       time.Since(start),
	})

	if tally.zeroStrength > 0 {
		e.log.LogZeroStrengthPlacements(runID.String(), req.RaceID, string(e.cfg.Fallback), tally.zeroStrength, req.Trials)
	}
	if tally.fallbacks > 0 {
		e.log.LogNumericFallback(runID.String(), req.RaceID, string(e.cfg.Fallback), tally.fallbacks, req.Trials)
	}
	e.finish(runID, req, "success", tally.fallbacks, start, nil)
	return result, nil
}

func (e *Engine) withDefaults(req Request) Request {
	if req.Trials == 0 {
		req.Trials = e.cfg.Trials
	}
	if req.Depth == 0 {
		req.Depth = max(min(e.cfg.Depth, len(req.Competitors)), 1)
	}
	if req.Mode == "" {
		req.Mode = e.cfg.Mode
	}
	return req
}

// prepare performs every structural check before any trial runs.
func (e *Engine) prepare(req Request) (*Distribution, error) {
	n := len(req.Competitors)
	if n < 2 {
		return nil, NewInvalidInputError("competitors", fmt.Sprintf("at least 2 competitors are required, got %d", n))
	}
	if n > e.cfg.MaxCompetitors {
		return nil, NewInvalidInputError("competitors", fmt.Sprintf("at most %d competitors are supported, got %d", e.cfg.MaxCompetitors, n))
	}
	if req.Trials < 1 {
		return nil, NewInvalidInputError("trials", fmt.Sprintf("trial count must be at least 1, got %d", req.Trials))
	}
	if req.Depth < 1 || req.Depth > n {
		return nil, NewInvalidInputError("depth", fmt.Sprintf("depth must be between 1 and %d, got %d", n, req.Depth))
	}
	return Normalize(req.Competitors, req.Mode)
}

// run partitions trials into seeded blocks, runs them on private tallies and
// reduces the tallies. Block b always uses deriveSeed(seed, b), so counters do
// not depend on worker count or scheduling.
func (e *Engine) run(ctx context.Context, dist *Distribution, req Request, seed int64, blocks, workers int) (*Tally, error) {
	tallies := make([]*Tally, workers)
	var next atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		tally := NewTally(dist.Len(), req.Depth)
		tallies[w] = tally

		g.Go(func() error {
			smp := newSampler(dist, e.cfg.Fallback)
			order := make([]int, req.Depth)
			for {
				b := int(next.Add(1) - 1)
				if b >= blocks {
					return nil
				}
				rng := rand.New(e.cfg.NewSource(deriveSeed(seed, b)))
				first := b * e.cfg.BlockSize
				last := min(first+e.cfg.BlockSize, req.Trials)
				for t := first; t < last; t++ {
					if (t-first)%cancelCheckInterval == 0 {
						if err := gctx.Err(); err != nil {
							return err
						}
					}
					tally.Record(order, smp.draw(rng, order))
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := tallies[0]
	for _, t := range tallies[1:] {
		total.Merge(t)
	}
	return total, nil
}

func (e *Engine) finish(runID uuid.UUID, req Request, status string, fallbacks int64, start time.Time, err error) {
	duration := time.Since(start)
	if err != nil {
		e.log.LogRunFailed(runID.String(), req.RaceID, err)
	} else {
		e.log.LogRunCompleted(runID.String(), req.RaceID, req.Trials, fallbacks, float64(duration.Microseconds())/1000)
	}
	if e.recorder != nil {
		trials := req.Trials
		if err != nil {
			trials = 0
		}
		e.recorder.RecordSimulationRun(string(req.Mode), status, trials, fallbacks, duration)
	}
}

// deriveSeed maps (master seed, block) to an independent stream seed with splitmix64.
func deriveSeed(master int64, block int) int64 {
	z := uint64(master) + uint64(block+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return int64(z ^ (z >> 31))
}
