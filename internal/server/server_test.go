package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/ranker"
	"github.com/yourusername/podium/internal/service"
	"github.com/yourusername/podium/internal/simulation"
)

type fakePredictor struct {
	engine      *simulation.Engine
	lastPredict service.PredictRequest
	predictErr  error
}

func newFakePredictor(t *testing.T) *fakePredictor {
	t.Helper()
	cfg := simulation.DefaultConfig()
	cfg.Workers = 2
	engine, err := simulation.NewEngine(cfg, nil)
	require.NoError(t, err)
	return &fakePredictor{engine: engine}
}

func (f *fakePredictor) SimulateCompetitors(ctx context.Context, req simulation.Request) (*simulation.Result, error) {
	return f.engine.Simulate(ctx, req)
}

func (f *fakePredictor) PredictRace(ctx context.Context, req service.PredictRequest) (*service.Prediction, error) {
	f.lastPredict = req
	if f.predictErr != nil {
		return nil, f.predictErr
	}
	result, err := f.engine.Simulate(ctx, simulation.Request{
		RaceID:      "202405050811",
		Competitors: []simulation.Competitor{{ID: "1", Strength: 1.2}, {ID: "2", Strength: 0.4}, {ID: "3", Strength: -0.3}},
		Trials:      2000,
		Seed:        5,
	})
	if err != nil {
		return nil, err
	}
	return &service.Prediction{
		RaceID:       "202405050811",
		Names:        map[string]string{"1": "Do Deuce", "2": "Equinox", "3": "Liberty Island"},
		ModelVersion: "lgbm-7",
		Result:       result,
		GeneratedAt:  time.Date(2024, 5, 5, 6, 0, 0, 0, time.UTC),
	}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, cfg Config) (*Server, *fakePredictor) {
	t.Helper()
	pred := newFakePredictor(t)
	if cfg.ServiceName == "" {
		cfg.ServiceName = "podium"
	}
	return NewServer(cfg, pred), pred
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndLive(t *testing.T) {
	srv, _ := newTestServer(t, Config{Version: "1.2.0"})

	rec := do(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.0", health.Version)

	rec = do(t, srv.Handler(), http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReady(t *testing.T) {
	srv, _ := newTestServer(t, Config{Checks: map[string]Pinger{"database": fakePinger{}}})

	rec := do(t, srv.Handler(), http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	srv.SetReady(true)
	rec = do(t, srv.Handler(), http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var ready ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ok", ready.Checks["database"])

	srv.cfg.Checks["ranker"] = fakePinger{err: errors.New("connection refused")}
	rec = do(t, srv.Handler(), http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Contains(t, ready.Checks["ranker"], "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Config{MetricsPath: "/metrics"})
	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	srv, _ = newTestServer(t, Config{})
	rec = do(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSimulate(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/simulate", SimulateRequest{
		Competitors: []simulation.Competitor{{ID: "A", Strength: 0.5}, {ID: "B", Strength: 0.3}, {ID: "C", Strength: 0.2}},
		Mode:        "weights",
		Trials:      20000,
		Depth:       2,
		Seed:        42,
		Top:         3,
		Odds: []SelectionRequest{
			{Market: "win", IDs: []string{"A"}, Odds: "2.6"},
			{Market: "win", IDs: []string{"C"}, Odds: "4.0"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SimulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 20000, resp.Metadata.Trials)
	assert.Equal(t, int64(42), resp.Metadata.Seed)
	require.Len(t, resp.Win, 3)
	assert.Equal(t, "A", resp.Win[0].ID)
	assert.InDelta(t, 0.5, resp.Win[0].Model, 1e-12)
	assert.Len(t, resp.Ordered, 3)
	assert.Equal(t, []string{"A", "B"}, resp.Ordered[0].IDs)
	assert.InDelta(t, 0.3, resp.Ordered[0].Exact, 1e-12)
	assert.InDelta(t, resp.Ordered[0].Exact, resp.Ordered[0].Value, 0.02)

	require.Len(t, resp.ValueBets, 1)
	assert.Equal(t, []string{"A"}, resp.ValueBets[0].IDs)
}

func TestSimulateRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "malformed json", body: "{", want: "invalid request body"},
		{name: "unknown field", body: `{"runners": []}`, want: "invalid request body"},
		{name: "single competitor", body: SimulateRequest{Competitors: []simulation.Competitor{{ID: "A", Strength: 1}}}, want: "validation failed"},
		{name: "missing id", body: SimulateRequest{Competitors: []simulation.Competitor{{ID: "A", Strength: 1}, {Strength: 1}}}, want: "validation failed"},
		{name: "unknown mode", body: SimulateRequest{Competitors: []simulation.Competitor{{ID: "A"}, {ID: "B"}}, Mode: "probit"}, want: "validation failed"},
		{name: "duplicate id", body: SimulateRequest{Competitors: []simulation.Competitor{{ID: "A", Strength: 1}, {ID: "A", Strength: 2}}}, want: "duplicate"},
		{name: "depth too large", body: SimulateRequest{Competitors: []simulation.Competitor{{ID: "A", Strength: 1}, {ID: "B", Strength: 2}}, Depth: 3}, want: "depth"},
		{name: "bad odds", body: SimulateRequest{Competitors: []simulation.Competitor{{ID: "A", Strength: 1}, {ID: "B", Strength: 2}}, Odds: []SelectionRequest{{Market: "win", IDs: []string{"A"}, Odds: "0.5"}}}, want: "odds"},
		{name: "bad threshold", body: SimulateRequest{Competitors: []simulation.Competitor{{ID: "A", Strength: 1}, {ID: "B", Strength: 2}}, Threshold: "-1"}, want: "threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/simulate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.Contains(t, errResp.Error, tt.want)
		})
	}
}

func TestSimulateMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/simulate", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPrediction(t *testing.T) {
	srv, pred := newTestServer(t, Config{})

	rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/races/202405050811/prediction?mode=weights&trials=5000&depth=2&seed=9&top=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, service.PredictRequest{Race: "202405050811", Mode: simulation.ModeWeights, Trials: 5000, Depth: 2, Seed: 9}, pred.lastPredict)

	var resp PredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "202405050811", resp.RaceID)
	assert.Equal(t, "Do Deuce", resp.Names["1"])
	assert.Equal(t, "lgbm-7", resp.ModelVersion)
	assert.Len(t, resp.Ordered, 1)
	assert.Len(t, resp.Win, 3)
}

func TestPredictionQueryErrors(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	for _, query := range []string{"mode=probit", "trials=abc", "depth=-1", "seed=1.5", "top=x"} {
		t.Run(query, func(t *testing.T) {
			rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/races/202405050811/prediction?"+query, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPredictionErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("lookup: %w", models.ErrInvalidRaceID), want: http.StatusBadRequest},
		{err: fmt.Errorf("scores: %w", models.ErrNoScores), want: http.StatusNotFound},
		{err: models.ErrNotFound, want: http.StatusNotFound},
		{err: fmt.Errorf("scores: %w", ranker.ErrRankerUnavailable), want: http.StatusBadGateway},
		{err: ranker.ErrCircuitOpen, want: http.StatusServiceUnavailable},
		{err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv, pred := newTestServer(t, Config{})
			pred.predictErr = tt.err

			rec := do(t, srv.Handler(), http.MethodGet, "/api/v1/races/202405050811/prediction", nil)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "boom")
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Config{RequestsPerSecond: 0.001, Burst: 1})

	first := do(t, srv.Handler(), http.MethodGet, "/api/v1/races/202405050811/prediction", nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(t, srv.Handler(), http.MethodGet, "/api/v1/races/202405050811/prediction", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	// Health endpoints are not rate limited.
	assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodGet, "/health", nil).Code)
}

func TestStartAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t, Config{Port: 0})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, srv.Start(ctx))
	require.NotNil(t, srv.Addr())

	resp, err := http.Get("http://" + srv.Addr().String() + "/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, srv.Shutdown(context.Background()))
}
