package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/podium/internal/config"
)

func TestBuildPoolConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:               "db.internal",
		Port:               5433,
		Name:               "podium",
		User:               "reader",
		Password:           "secret",
		SSLMode:            "require",
		MaxConnections:     8,
		MaxIdleConnections: 2,
	}

	poolConfig, err := buildPoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(8), poolConfig.MaxConns)
	assert.Equal(t, int32(2), poolConfig.MinConns)
	assert.Equal(t, 5*time.Minute, poolConfig.MaxConnLifetime)
	assert.Equal(t, "db.internal", poolConfig.ConnConfig.Host)
	assert.Equal(t, uint16(5433), poolConfig.ConnConfig.Port)
	assert.Equal(t, "reader", poolConfig.ConnConfig.User)
	assert.Equal(t, "podium", poolConfig.ConnConfig.Database)
}

func TestBuildPoolConfigClampsIdle(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:               "localhost",
		Port:               5432,
		Name:               "podium",
		User:               "podium",
		MaxConnections:     2,
		MaxIdleConnections: 5,
	}

	poolConfig, err := buildPoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(2), poolConfig.MinConns)
}

func TestSetupTestDBPing(t *testing.T) {
	db := SetupTestDB(t)
	require.NoError(t, db.HealthCheck(context.Background()))
}
