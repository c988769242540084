package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/podium/internal/models"
)

// PostgresScoreRepository implements ScoreRepository for PostgreSQL
type PostgresScoreRepository struct {
	q Querier
}

// NewPostgresScoreRepository creates a new score repository
func NewPostgresScoreRepository(q Querier) ScoreRepository {
	return &PostgresScoreRepository{q: q}
}

// GetScoresByRace returns the latest score of every runner still declared for
// the race, ordered by runner number.
func (r *PostgresScoreRepository) GetScoresByRace(ctx context.Context, raceID string) (*models.RaceScores, error) {
	query := `
		SELECT DISTINCT ON (ru.number)
		       ru.number, ru.name, s.score, s.model_version, s.scored_at
		FROM runner_scores s
		JOIN runners ru ON ru.id = s.runner_id
		JOIN races ra ON ra.id = ru.race_id
		WHERE ra.external_id = $1 AND NOT ru.scratched
		ORDER BY ru.number ASC, s.scored_at DESC
	`

	rows, err := r.q.Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runner scores: %w", err)
	}
	defer rows.Close()

	result := &models.RaceScores{RaceID: raceID}
	for rows.Next() {
		var s models.RunnerScore
		if err := rows.Scan(&s.RunnerNumber, &s.RunnerName, &s.Score, &s.ModelVersion, &s.ScoredAt); err != nil {
			return nil, fmt.Errorf("failed to scan runner score: %w", err)
		}
		result.Scores = append(result.Scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runner scores: %w", err)
	}

	if len(result.Scores) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoScores, raceID)
	}
	return result, nil
}
