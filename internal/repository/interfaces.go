package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/podium/internal/models"
)

// Querier is the subset of *pgxpool.Pool the repositories read through.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RaceRepository defines the interface for race data access
type RaceRepository interface {
	GetByExternalID(ctx context.Context, raceID string) (*models.Race, error)
	GetUpcoming(ctx context.Context, within time.Duration, limit int) ([]*models.Race, error)
}

// ScoreRepository defines the interface for ranker score access
type ScoreRepository interface {
	GetScoresByRace(ctx context.Context, raceID string) (*models.RaceScores, error)
}
