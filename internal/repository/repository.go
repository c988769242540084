// Package repository reads races and ranker scores from PostgreSQL.
package repository

import (
	"fmt"

	"github.com/yourusername/podium/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Race  RaceRepository
	Score ScoreRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return newRepositories(db.GetPool()), nil
}

func newRepositories(q Querier) *Repositories {
	return &Repositories{
		Race:  NewPostgresRaceRepository(q),
		Score: NewPostgresScoreRepository(q),
	}
}
