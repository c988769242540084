package ranker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/logger"
	"github.com/yourusername/podium/internal/metrics"
	"github.com/yourusername/podium/internal/models"
)

// maxResponseBytes bounds how much of a ranker response body is read.
const maxResponseBytes = 4 << 20

// Client reads runner scores from the ranking model service over HTTP/JSON.
type Client struct {
	http     *RateLimitedHTTPClient
	baseURL  string
	apiKey   string
	log      *logger.RankerLogger
	validate *validator.Validate
}

// scoresResponse is the ranker payload for GET /api/v1/races/{race_id}/scores.
type scoresResponse struct {
	RaceID       string        `json:"race_id" validate:"required"`
	ModelVersion string        `json:"model_version"`
	ScoredAt     time.Time     `json:"scored_at"`
	Scores       []scoreRecord `json:"scores" validate:"required,min=1,dive"`
}

type scoreRecord struct {
	Number int      `json:"number" validate:"required,gt=0"`
	Name   string   `json:"name"`
	Score  *float64 `json:"score" validate:"required"`
}

// NewClient creates a ranker client from configuration
func NewClient(cfg *config.RankerConfig, log *logrus.Logger) (*Client, error) {
	httpCfg := DefaultHTTPClientConfig()
	if cfg.TimeoutSeconds > 0 {
		httpCfg.Timeout = cfg.Timeout()
	}
	httpCfg.MaxRetries = cfg.RetryAttempts
	if cfg.RequestsPerSecond > 0 {
		httpCfg.RateLimit = cfg.RequestsPerSecond
	}
	if cfg.Burst > 0 {
		httpCfg.Burst = cfg.Burst
	}
	return NewClientWithHTTPConfig(cfg.URL, cfg.APIKey, httpCfg, log)
}

// NewClientWithHTTPConfig creates a ranker client with explicit transport settings
func NewClientWithHTTPConfig(baseURL, apiKey string, httpCfg HTTPClientConfig, log *logrus.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid ranker url %q: %w", baseURL, err)
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Client{
		http:     NewRateLimitedHTTPClient(httpCfg),
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		log:      logger.NewRankerLogger(log),
		validate: validator.New(),
	}, nil
}

// GetScores returns the latest runner scores for a race.
func (c *Client) GetScores(ctx context.Context, raceID string) (*models.RaceScores, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/api/v1/races/%s/scores", c.baseURL, url.PathEscape(raceID))

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		metrics.RecordRankerRequest("error")
		c.log.LogScoreError(raceID, 0, err)
		if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRankerUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordRankerRequest("not_found")
		return nil, fmt.Errorf("%w: %s", models.ErrNoScores, raceID)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%w: status %d: %s", ErrRankerUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
		metrics.RecordRankerRequest("error")
		c.log.LogScoreError(raceID, resp.StatusCode, err)
		return nil, err
	}

	var payload scoresResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		metrics.RecordRankerRequest("invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := c.validate.Struct(&payload); err != nil {
		metrics.RecordRankerRequest("invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if payload.RaceID != raceID {
		metrics.RecordRankerRequest("invalid")
		return nil, fmt.Errorf("%w: asked for race %s, got %s", ErrInvalidResponse, raceID, payload.RaceID)
	}

	result := &models.RaceScores{RaceID: raceID, Scores: make([]models.RunnerScore, len(payload.Scores))}
	for i, s := range payload.Scores {
		result.Scores[i] = models.RunnerScore{
			RunnerNumber: s.Number,
			RunnerName:   s.Name,
			Score:        *s.Score,
			ModelVersion: payload.ModelVersion,
			ScoredAt:     payload.ScoredAt,
		}
	}

	metrics.RecordRankerRequest("success")
	c.log.LogScoreRequest(raceID, len(result.Scores), float64(time.Since(start).Microseconds())/1000)
	return result, nil
}

// HealthCheck verifies the ranker answers its health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.get(ctx, c.baseURL+"/health")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRankerUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrRankerUnavailable, resp.StatusCode)
	}
	return nil
}

// Ping satisfies the readiness checker used by the API server.
func (c *Client) Ping(ctx context.Context) error {
	return c.HealthCheck(ctx)
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.http.Do(ctx, req)
}
