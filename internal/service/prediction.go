// Package service turns ranker scores into simulated race predictions.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/logger"
	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/simulation"
)

// Simulator runs one simulation request.
type Simulator interface {
	Simulate(ctx context.Context, req simulation.Request) (*simulation.Result, error)
}

// TrialBounds limits the trial counts callers may ask for.
type TrialBounds struct {
	Min int
	Max int
}

// Check returns an input error for trials outside the bounds. Zero means the engine default.
func (b TrialBounds) Check(trials int) error {
	if trials == 0 || (b.Min == 0 && b.Max == 0) {
		return nil
	}
	if trials < b.Min || (b.Max > 0 && trials > b.Max) {
		return simulation.NewInvalidInputError("trials", fmt.Sprintf("trial count must be between %d and %d, got %d", b.Min, b.Max, trials))
	}
	return nil
}

// PredictRequest asks for the prediction of one race by id or race page URL.
type PredictRequest struct {
	Race   string
	Mode   simulation.ScoreMode
	Trials int
	Depth  int
	Seed   int64
}

// Prediction is a simulated race with runner names for display.
type Prediction struct {
	RaceID       string             `json:"race_id"`
	Race         *models.Race       `json:"race,omitempty"`
	Names        map[string]string  `json:"names"`
	ModelVersion string             `json:"model_version,omitempty"`
	Result       *simulation.Result `json:"result"`
	Cached       bool               `json:"cached"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// WarmupReport summarizes one warm-up pass.
type WarmupReport struct {
	Races    int           `json:"races"`
	Warmed   int           `json:"warmed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}

// PredictionService coordinates score lookup, simulation and caching.
type PredictionService struct {
	engine  Simulator
	scores  ScoreSource
	races   RaceLister
	lookup  raceLookup
	cache   *ResultCache
	bounds  TrialBounds
	logger  *logrus.Logger
	audit   *logger.AuditLogger
	nowFunc func() time.Time
}

// raceLookup resolves race details for display; optional.
type raceLookup interface {
	GetByExternalID(ctx context.Context, raceID string) (*models.Race, error)
}

// Option configures a PredictionService.
type Option func(*PredictionService)

// WithCache enables result caching.
func WithCache(c *ResultCache) Option {
	return func(s *PredictionService) { s.cache = c }
}

// WithRaces sets the source of upcoming races and race details.
func WithRaces(races RaceLister) Option {
	return func(s *PredictionService) {
		s.races = races
		if l, ok := races.(raceLookup); ok {
			s.lookup = l
		}
	}
}

// WithTrialBounds limits caller trial counts.
func WithTrialBounds(b TrialBounds) Option {
	return func(s *PredictionService) { s.bounds = b }
}

// WithLogger sets the service logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *PredictionService) { s.logger = l }
}

// NewPredictionService creates a new prediction service
func NewPredictionService(engine Simulator, scores ScoreSource, opts ...Option) *PredictionService {
	s := &PredictionService{
		engine:  engine,
		scores:  scores,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Discard()
	}
	s.audit = logger.NewAuditLogger(s.logger)
	return s
}

// SimulateCompetitors runs caller-supplied competitors through the engine.
func (s *PredictionService) SimulateCompetitors(ctx context.Context, req simulation.Request) (*simulation.Result, error) {
	if err := s.bounds.Check(req.Trials); err != nil {
		return nil, err
	}
	return s.engine.Simulate(ctx, req)
}

// PredictRace fetches the scores of a race and simulates its finishing order.
func (s *PredictionService) PredictRace(ctx context.Context, req PredictRequest) (*Prediction, error) {
	raceID, err := models.ExtractRaceID(req.Race)
	if err != nil {
		return nil, err
	}
	if err := s.bounds.Check(req.Trials); err != nil {
		return nil, err
	}
	if s.scores == nil {
		return nil, fmt.Errorf("%w: no score source configured", models.ErrNoScores)
	}

	scores, err := s.scores.GetScores(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores for race %s: %w", raceID, err)
	}

	key := CacheKey{
		RaceID: raceID,
		Mode:   req.Mode,
		Trials: req.Trials,
		Depth:  req.Depth,
		Seed:   req.Seed,
		Scores: fingerprintScores(scores),
	}
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			hit := *cached
			hit.Cached = true
			return &hit, nil
		}
	}

	competitors, names := competitorsFromScores(scores)
	result, err := s.engine.Simulate(ctx, simulation.Request{
		RaceID:      raceID,
		Competitors: competitors,
		Mode:        req.Mode,
		Trials:      req.Trials,
		Depth:       req.Depth,
		Seed:        req.Seed,
	})
	if err != nil {
		return nil, err
	}

	prediction := &Prediction{
		RaceID:      raceID,
		Race:        s.raceDetails(ctx, raceID),
		Names:       names,
		Result:      result,
		GeneratedAt: s.nowFunc(),
	}
	if len(scores.Scores) > 0 {
		prediction.ModelVersion = scores.Scores[0].ModelVersion
	}

	if s.cache != nil {
		s.cache.Set(key, prediction)
	}
	return prediction, nil
}

// WarmUpcoming predicts every race starting within the window with default
// parameters so API reads hit the cache. Per-race failures are counted, not returned.
func (s *PredictionService) WarmUpcoming(ctx context.Context, within time.Duration, limit int) (WarmupReport, error) {
	start := time.Now()
	if s.races == nil {
		return WarmupReport{}, errors.New("no race source configured")
	}

	races, err := s.races.GetUpcoming(ctx, within, limit)
	if err != nil {
		return WarmupReport{}, fmt.Errorf("failed to list upcoming races: %w", err)
	}

	report := WarmupReport{Races: len(races)}
	for _, race := range races {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := s.PredictRace(ctx, PredictRequest{Race: race.ExternalID}); err != nil {
			report.Failed++
			s.logger.WithError(err).WithField("race_id", race.ExternalID).Warn("Failed to warm race prediction")
			continue
		}
		report.Warmed++
	}
	report.Duration = time.Since(start)

	s.audit.LogWarmupRun(report.Races, report.Warmed, report.Failed, report.Duration)
	return report, nil
}

func (s *PredictionService) raceDetails(ctx context.Context, raceID string) *models.Race {
	if s.lookup == nil {
		return nil
	}
	race, err := s.lookup.GetByExternalID(ctx, raceID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.WithError(err).WithField("race_id", raceID).Debug("Race details unavailable")
		}
		return nil
	}
	return race
}

// competitorsFromScores keys competitors by runner number, in score order.
func competitorsFromScores(scores *models.RaceScores) ([]simulation.Competitor, map[string]string) {
	competitors := make([]simulation.Competitor, len(scores.Scores))
	names := make(map[string]string, len(scores.Scores))
	for i, sc := range scores.Scores {
		id := strconv.Itoa(sc.RunnerNumber)
		competitors[i] = simulation.Competitor{ID: id, Strength: sc.Score}
		names[id] = sc.RunnerName
	}
	return competitors, names
}
