package models

import "errors"

// Custom errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrNoScores      = errors.New("no ranker scores for race")
	ErrInvalidRaceID = errors.New("invalid race id")
)
