package database

import (
	"context"
	"fmt"

	"github.com/yourusername/podium/internal/config"
)

// requiredTables are written by the ingestion and ranking jobs; podium only reads them.
var requiredTables = []string{"races", "runners", "runner_scores"}

// Initialize creates a database connection pool and verifies the score schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	for _, table := range requiredTables {
		var exists bool
		err := db.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
		}
		if !exists {
			db.Close()
			return nil, fmt.Errorf("required table %s not found; run the ranking schema migrations first", table)
		}
	}

	return db, nil
}
