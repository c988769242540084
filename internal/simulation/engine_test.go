package simulation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 4
	cfg.Mode = ModeWeights
	for _, m := range mutate {
		m(&cfg)
	}
	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	return engine
}

func abc() []Competitor {
	return []Competitor{
		{ID: "A", Strength: 0.5},
		{ID: "B", Strength: 0.3},
		{ID: "C", Strength: 0.2},
	}
}

func field() []Competitor {
	return []Competitor{
		{ID: "1", Strength: 0.30},
		{ID: "2", Strength: 0.25},
		{ID: "3", Strength: 0.20},
		{ID: "4", Strength: 0.15},
		{ID: "5", Strength: 0.10},
	}
}

func tolerance(trials int) float64 {
	return 3 / math.Sqrt(float64(trials))
}

func TestSimulateABCScenario(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Simulate(context.Background(), Request{
		Competitors: abc(),
		Trials:      200000,
		Depth:       3,
		Seed:        20240601,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.50, result.Win.Value("A"), 0.01)
	assert.InDelta(t, 0.20, result.Win.Value("C"), 0.01)

	top := result.Ordered.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, []string{"A", "B", "C"}, top[0].IDs)
	assert.Equal(t, 6, result.Ordered.Len())
}

func TestSimulateProbabilityInvariants(t *testing.T) {
	engine := newTestEngine(t)
	trials := 50000

	result, err := engine.Simulate(context.Background(), Request{
		Competitors: field(),
		Trials:      trials,
		Depth:       3,
		Seed:        7,
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.Win.Sum(), tolerance(trials))
	assert.InDelta(t, 1.0, result.Ordered.Sum(), 1e-9)
	assert.InDelta(t, 1.0, result.Unordered.Sum(), 1e-9)
	assert.InDelta(t, 3.0, result.Place.Sum(), 1e-9)
	// Each trial contributes three pairs out of a set of three.
	assert.InDelta(t, 3.0, result.Pairs.Sum(), 1e-9)

	for _, row := range result.Win.Rows() {
		place, ok := result.Place.Get(row.ID)
		require.True(t, ok)
		assert.GreaterOrEqual(t, place.Value, row.Value, "competitor %s", row.ID)
		assert.GreaterOrEqual(t, row.Value, 0.0)
		assert.LessOrEqual(t, place.Value, 1.0)
	}

	for _, set := range result.Unordered.Top(0) {
		a, b, c := set.IDs[0], set.IDs[1], set.IDs[2]
		perms := [][]string{{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a}}
		sum := 0.0
		for _, p := range perms {
			sum += result.Ordered.Value(p...)
		}
		assert.InDelta(t, set.Value, sum, 1e-12)
	}
}

func TestSimulateEveryCompetitorListed(t *testing.T) {
	engine := newTestEngine(t)
	competitors := []Competitor{
		{ID: "fav", Strength: 1},
		{ID: "second", Strength: 1},
		{ID: "third", Strength: 1},
		{ID: "ghost", Strength: 0},
	}

	result, err := engine.Simulate(context.Background(), Request{
		Competitors: competitors,
		Trials:      2000,
		Depth:       3,
		Seed:        3,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Win.Len())
	assert.Equal(t, 4, result.Place.Len())
	ghost, ok := result.Win.Get("ghost")
	require.True(t, ok)
	assert.Equal(t, int64(0), ghost.Count)
	assert.Equal(t, 0.0, ghost.Model)
	_, ok = result.Ordered.Get("ghost", "fav", "second")
	assert.False(t, ok)
}

func TestSimulateDeterministic(t *testing.T) {
	req := Request{Competitors: field(), Trials: 20000, Depth: 3, Seed: 42}

	first, err := newTestEngine(t).Simulate(context.Background(), req)
	require.NoError(t, err)
	second, err := newTestEngine(t).Simulate(context.Background(), req)
	require.NoError(t, err)
	single, err := newTestEngine(t, func(c *Config) { c.Workers = 1 }).Simulate(context.Background(), req)
	require.NoError(t, err)

	for _, other := range []*Result{second, single} {
		assert.Equal(t, first.Win.Rows(), other.Win.Rows())
		assert.Equal(t, first.Place.Rows(), other.Place.Rows())
		assert.Equal(t, first.Ordered.Top(0), other.Ordered.Top(0))
		assert.Equal(t, first.Unordered.Top(0), other.Unordered.Top(0))
		assert.Equal(t, first.Pairs.Top(0), other.Pairs.Top(0))
		assert.Equal(t, first.Metadata.Seed, other.Metadata.Seed)
	}
}

func TestSimulateMonotonicInStrength(t *testing.T) {
	engine := newTestEngine(t)
	trials := 20000

	for seed := int64(1); seed <= 5; seed++ {
		base := []Competitor{{ID: "A", Strength: 1}, {ID: "B", Strength: 1}, {ID: "C", Strength: 1}}
		boosted := []Competitor{{ID: "A", Strength: 1}, {ID: "B", Strength: 2}, {ID: "C", Strength: 1}}

		before, err := engine.Simulate(context.Background(), Request{Competitors: base, Trials: trials, Depth: 3, Seed: seed})
		require.NoError(t, err)
		after, err := engine.Simulate(context.Background(), Request{Competitors: boosted, Trials: trials, Depth: 3, Seed: seed})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, after.Win.Value("B"), before.Win.Value("B"), "seed %d", seed)
		assert.InDelta(t, 0.5, after.Win.Value("B"), tolerance(trials))
	}
}

func TestSimulateTwoCompetitorsClosedForm(t *testing.T) {
	engine := newTestEngine(t)
	trials := 40000
	p1, p2 := 0.7, 0.3

	result, err := engine.Simulate(context.Background(), Request{
		Competitors: []Competitor{{ID: "x", Strength: p1}, {ID: "y", Strength: p2}},
		Trials:      trials,
		Depth:       2,
		Seed:        11,
	})
	require.NoError(t, err)

	require.Equal(t, 2, result.Ordered.Len())
	xy, ok := result.Ordered.Get("x", "y")
	require.True(t, ok)
	yx, ok := result.Ordered.Get("y", "x")
	require.True(t, ok)
	assert.InDelta(t, p1/(p1+p2), xy.Value, tolerance(trials))
	assert.InDelta(t, p2/(p1+p2), yx.Value, tolerance(trials))
	assert.Equal(t, int64(trials), xy.Count+yx.Count)
	assert.InDelta(t, 1.0, result.Place.Value("y"), 1e-12)
}

func TestSimulateNearZeroStrength(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Simulate(context.Background(), Request{
		Competitors: []Competitor{
			{ID: "A", Strength: 1},
			{ID: "B", Strength: 1},
			{ID: "C", Strength: 1},
			{ID: "tiny", Strength: 1e-12},
		},
		Trials: 10000,
		Depth:  3,
		Seed:   5,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, result.Win.Value("tiny"), 1e-3)
	assert.Equal(t, int64(0), result.Metadata.Fallbacks)
}

func TestSimulateLogitsMatchesSoftmax(t *testing.T) {
	engine := newTestEngine(t)
	trials := 40000

	result, err := engine.Simulate(context.Background(), Request{
		Competitors: []Competitor{{ID: "a", Strength: 1000}, {ID: "b", Strength: 1000 - math.Log(3)}, {ID: "c", Strength: -1000}},
		Mode:        ModeLogits,
		Trials:      trials,
		Depth:       2,
		Seed:        9,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.75, result.Win.Value("a"), tolerance(trials))
	row, ok := result.Win.Get("a")
	require.True(t, ok)
	assert.InDelta(t, 0.75, row.Model, 1e-9)
}

func TestSimulateFallbackPolicies(t *testing.T) {
	competitors := []Competitor{{ID: "A", Strength: 1}, {ID: "B", Strength: 0}, {ID: "C", Strength: 0}}

	t.Run("uniform", func(t *testing.T) {
		engine := newTestEngine(t)
		trials := 10000
		result, err := engine.Simulate(context.Background(), Request{Competitors: competitors, Trials: trials, Depth: 3, Seed: 1})
		require.NoError(t, err)

		assert.Equal(t, int64(0), result.Metadata.Fallbacks)
		assert.Equal(t, int64(trials), result.Metadata.ZeroStrengthTrials)
		assert.Equal(t, FallbackUniform, result.Metadata.FallbackPolicy)
		assert.InDelta(t, 1.0, result.Win.Value("A"), 1e-12)
		assert.InDelta(t, 0.5, result.Ordered.Value("A", "B", "C"), tolerance(trials))
		assert.InDelta(t, 0.5, result.Ordered.Value("A", "C", "B"), tolerance(trials))
	})

	t.Run("input order", func(t *testing.T) {
		engine := newTestEngine(t, func(c *Config) { c.Fallback = FallbackInputOrder })
		result, err := engine.Simulate(context.Background(), Request{Competitors: competitors, Trials: 1000, Depth: 3, Seed: 1})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Ordered.Len())
		assert.InDelta(t, 1.0, result.Ordered.Value("A", "B", "C"), 1e-12)
	})
}

func TestSimulateUnderflowCountsAsFallback(t *testing.T) {
	engine := newTestEngine(t)
	trials := 2000

	result, err := engine.Simulate(context.Background(), Request{
		Competitors: []Competitor{{ID: "A", Strength: 0}, {ID: "B", Strength: -1000}, {ID: "C", Strength: -1000}},
		Mode:        ModeLogits,
		Trials:      trials,
		Depth:       3,
		Seed:        6,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(trials), result.Metadata.Fallbacks)
	assert.Equal(t, int64(0), result.Metadata.ZeroStrengthTrials)
	assert.InDelta(t, 1.0, result.Win.Value("A"), 1e-12)
}

func TestSimulateUnsetDepthFitsSmallField(t *testing.T) {
	engine := newTestEngine(t)
	competitors := []Competitor{{ID: "A", Strength: 0.7}, {ID: "B", Strength: 0.3}}

	result, err := engine.Simulate(context.Background(), Request{Competitors: competitors, Trials: 1000, Seed: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Metadata.Depth)
	assert.InDelta(t, 1.0, result.Ordered.Sum(), 1e-12)
	assert.InDelta(t, 1.0, result.Place.Value("B"), 1e-12)

	// An explicit depth above the field size is still rejected.
	_, err = engine.Simulate(context.Background(), Request{Competitors: competitors, Trials: 1000, Depth: 3})
	var inputErr *InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "depth", inputErr.Field)

	// Duplicate ids are reported as such when the depth is left unset.
	_, err = engine.Simulate(context.Background(), Request{Competitors: []Competitor{{ID: "A", Strength: 1}, {ID: "A", Strength: 2}}, Trials: 1000})
	assert.ErrorAs(t, err, new(*DuplicateCompetitorError))
}

func TestSimulateZeroTrialsUsesDefault(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) { c.Trials = 3000 })

	result, err := engine.Simulate(context.Background(), Request{Competitors: abc(), Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 3000, result.Metadata.Trials)

	_, err = engine.Simulate(context.Background(), Request{Competitors: abc(), Trials: -5})
	var inputErr *InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "trials", inputErr.Field)
}

func TestSimulateInputErrors(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name   string
		req    Request
		target interface{}
	}{
		{
			name:   "single competitor",
			req:    Request{Competitors: []Competitor{{ID: "A", Strength: 1}}, Trials: 10},
			target: new(*InvalidInputError),
		},
		{
			name:   "negative trials",
			req:    Request{Competitors: abc(), Trials: -1},
			target: new(*InvalidInputError),
		},
		{
			name:   "depth above field size",
			req:    Request{Competitors: abc(), Trials: 10, Depth: 4},
			target: new(*InvalidInputError),
		},
		{
			name:   "non-finite strength",
			req:    Request{Competitors: []Competitor{{ID: "A", Strength: math.NaN()}, {ID: "B", Strength: 1}}, Trials: 10, Depth: 2},
			target: new(*InvalidInputError),
		},
		{
			name:   "duplicate id",
			req:    Request{Competitors: []Competitor{{ID: "A", Strength: 1}, {ID: "A", Strength: 2}}, Trials: 10, Depth: 2},
			target: new(*DuplicateCompetitorError),
		},
		{
			name:   "all zero weights",
			req:    Request{Competitors: []Competitor{{ID: "A"}, {ID: "B"}}, Trials: 10, Depth: 2},
			target: new(*DegenerateInputError),
		},
		{
			name:   "negative weight",
			req:    Request{Competitors: []Competitor{{ID: "A", Strength: -1}, {ID: "B", Strength: 2}}, Trials: 10, Depth: 2},
			target: new(*DegenerateInputError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Simulate(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorAs(t, err, tt.target)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSimulateCancelled(t *testing.T) {
	engine := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Simulate(ctx, Request{Competitors: abc(), Trials: 100000, Depth: 3, Seed: 1})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSimulateDefaultsAndMetadata(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) {
		c.Trials = 5000
		c.BlockSize = 1000
	})

	result, err := engine.Simulate(context.Background(), Request{Competitors: field()})
	require.NoError(t, err)

	assert.Equal(t, 5000, result.Metadata.Trials)
	assert.Equal(t, DefaultDepth, result.Metadata.Depth)
	assert.Equal(t, 5, result.Metadata.Competitors)
	assert.Equal(t, ModeWeights, result.Metadata.Mode)
	assert.Equal(t, 4, result.Metadata.Workers)
	assert.NotZero(t, result.Metadata.Seed)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", result.Metadata.RunID.String())
	assert.Same(t, result.Distribution(), result.Ordered.dist)
}

func TestSimulateAgreesWithExactProbabilities(t *testing.T) {
	engine := newTestEngine(t)
	trials := 100000

	result, err := engine.Simulate(context.Background(), Request{Competitors: field(), Trials: trials, Depth: 3, Seed: 99})
	require.NoError(t, err)

	for _, row := range result.Ordered.Top(5) {
		exact, err := OrderProbability(result.Distribution(), row.IDs...)
		require.NoError(t, err)
		assert.InDelta(t, exact, row.Value, 4*math.Sqrt(exact*(1-exact)/float64(trials))+1e-9, "tuple %v", row.IDs)
	}
}

type fakeRecorder struct {
	statuses  []string
	trials    int
	fallbacks int64
}

func (f *fakeRecorder) RecordSimulationRun(mode, status string, trials int, fallbacks int64, duration time.Duration) {
	f.statuses = append(f.statuses, status)
	f.trials += trials
	f.fallbacks += fallbacks
}

func TestSimulateRecordsRuns(t *testing.T) {
	rec := &fakeRecorder{}
	cfg := DefaultConfig()
	cfg.Mode = ModeWeights
	engine, err := NewEngine(cfg, nil, WithRecorder(rec))
	require.NoError(t, err)

	_, err = engine.Simulate(context.Background(), Request{Competitors: abc(), Trials: 100, Seed: 1})
	require.NoError(t, err)
	_, err = engine.Simulate(context.Background(), Request{Competitors: abc()[:1], Trials: 100})
	require.Error(t, err)

	assert.Equal(t, []string{"success", "invalid"}, rec.statuses)
	assert.Equal(t, 100, rec.trials)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	_, err := NewEngine(cfg, nil)
	assert.Error(t, err)
}

func TestDeriveSeedDistinct(t *testing.T) {
	seen := make(map[int64]bool)
	for b := 0; b < 1000; b++ {
		s := deriveSeed(42, b)
		assert.False(t, seen[s], "block %d", b)
		seen[s] = true
	}
	assert.NotEqual(t, deriveSeed(1, 0), deriveSeed(2, 0))
}
