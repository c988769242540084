package models

import (
	"time"

	"github.com/google/uuid"
)

// Race represents a race event in the system
type Race struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ExternalID     string    `db:"external_id" json:"race_id" validate:"required,len=12,numeric"`
	ScheduledStart time.Time `db:"scheduled_start" json:"scheduled_start" validate:"required"`
	Track          string    `db:"track" json:"track"`
	Name           string    `db:"name" json:"name"`
	Distance       int       `db:"distance" json:"distance" validate:"gte=0"`
	Status         string    `db:"status" json:"status" validate:"oneof=scheduled started finished cancelled"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IsUpcoming checks if the race hasn't started yet
func (r *Race) IsUpcoming() bool {
	return r.Status == "scheduled" && time.Now().Before(r.ScheduledStart)
}

// TimeToStart returns the duration until race start
func (r *Race) TimeToStart() time.Duration {
	return time.Until(r.ScheduledStart)
}
