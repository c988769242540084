package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/podium/internal/models"
)

const (
	errScanRace = "failed to scan race: %w"
	raceColumns = `id, external_id, scheduled_start, track, name, distance, status, created_at, updated_at`
)

// PostgresRaceRepository implements RaceRepository for PostgreSQL
type PostgresRaceRepository struct {
	q Querier
}

// NewPostgresRaceRepository creates a new race repository
func NewPostgresRaceRepository(q Querier) RaceRepository {
	return &PostgresRaceRepository{q: q}
}

// GetByExternalID retrieves a race by its 12-digit race id
func (r *PostgresRaceRepository) GetByExternalID(ctx context.Context, raceID string) (*models.Race, error) {
	query := `SELECT ` + raceColumns + ` FROM races WHERE external_id = $1`

	race := &models.Race{}
	err := scanRace(r.q.QueryRow(ctx, query, raceID), race)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race: %w", err)
	}

	return race, nil
}

// GetUpcoming retrieves scheduled races starting within the window, soonest first
func (r *PostgresRaceRepository) GetUpcoming(ctx context.Context, within time.Duration, limit int) ([]*models.Race, error) {
	query := `SELECT ` + raceColumns + `
		FROM races
		WHERE status = 'scheduled' AND scheduled_start > NOW() AND scheduled_start <= $1
		ORDER BY scheduled_start ASC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, time.Now().Add(within), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming races: %w", err)
	}
	defer rows.Close()

	var races []*models.Race
	for rows.Next() {
		race := &models.Race{}
		if err := scanRace(rows, race); err != nil {
			return nil, fmt.Errorf(errScanRace, err)
		}
		races = append(races, race)
	}

	return races, rows.Err()
}

func scanRace(row pgx.Row, race *models.Race) error {
	return row.Scan(
		&race.ID, &race.ExternalID, &race.ScheduledStart, &race.Track, &race.Name,
		&race.Distance, &race.Status, &race.CreatedAt, &race.UpdatedAt,
	)
}
