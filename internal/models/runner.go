package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Runner represents a runner (horse) in a race
type Runner struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RaceID    uuid.UUID `db:"race_id" json:"race_id"`
	Number    int       `db:"number" json:"number" validate:"required,gt=0"`
	Name      string    `db:"name" json:"name" validate:"required"`
	Scratched bool      `db:"scratched" json:"scratched"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CompetitorID is the identifier used for the runner in simulation tables.
// Saddle-cloth numbers are unique within a race and match market odds keys.
func (r *Runner) CompetitorID() string {
	return strconv.Itoa(r.Number)
}
