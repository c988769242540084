package service

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/repository"
)

// ScoreSource supplies ranker scores for a race.
type ScoreSource interface {
	GetScores(ctx context.Context, raceID string) (*models.RaceScores, error)
}

// RaceLister lists races that are about to start.
type RaceLister interface {
	GetUpcoming(ctx context.Context, within time.Duration, limit int) ([]*models.Race, error)
}

// repositoryScores adapts a ScoreRepository to ScoreSource.
type repositoryScores struct {
	repo repository.ScoreRepository
}

// FromScoreRepository reads scores stored in PostgreSQL.
func FromScoreRepository(repo repository.ScoreRepository) ScoreSource {
	return repositoryScores{repo: repo}
}

func (r repositoryScores) GetScores(ctx context.Context, raceID string) (*models.RaceScores, error) {
	return r.repo.GetScoresByRace(ctx, raceID)
}

// chainedScores tries each source in order until one has scores for the race.
type chainedScores []ScoreSource

// ChainScoreSources returns a source that falls through on missing scores.
// Any other error stops the chain.
func ChainScoreSources(sources ...ScoreSource) ScoreSource {
	return chainedScores(sources)
}

func (c chainedScores) GetScores(ctx context.Context, raceID string) (*models.RaceScores, error) {
	err := error(models.ErrNoScores)
	for _, src := range c {
		var scores *models.RaceScores
		scores, err = src.GetScores(ctx, raceID)
		if err == nil {
			return scores, nil
		}
		if !errors.Is(err, models.ErrNoScores) && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}
	return nil, err
}
