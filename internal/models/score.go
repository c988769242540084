package models

import (
	"time"
)

// RunnerScore is the ranking model output for one runner.
type RunnerScore struct {
	RunnerNumber int       `db:"runner_number" json:"number" validate:"required,gt=0"`
	RunnerName   string    `db:"runner_name" json:"name"`
	Score        float64   `db:"score" json:"score"`
	ModelVersion string    `db:"model_version" json:"model_version"`
	ScoredAt     time.Time `db:"scored_at" json:"scored_at"`
}

// RaceScores groups the latest runner scores of one race.
type RaceScores struct {
	RaceID string        `json:"race_id" validate:"required"`
	Scores []RunnerScore `json:"scores" validate:"required,min=1,dive"`
}

// Numbers returns runner numbers in score order.
func (rs *RaceScores) Numbers() []int {
	out := make([]int, len(rs.Scores))
	for i, s := range rs.Scores {
		out[i] = s.RunnerNumber
	}
	return out
}
