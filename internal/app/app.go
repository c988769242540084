// Package app wires configuration into the engine, score sources, cache and
// prediction service shared by the command line tools and the API server.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/database"
	"github.com/yourusername/podium/internal/metrics"
	"github.com/yourusername/podium/internal/ranker"
	"github.com/yourusername/podium/internal/repository"
	"github.com/yourusername/podium/internal/service"
	"github.com/yourusername/podium/internal/simulation"
)

// App holds the wired dependencies. DB, Repos and Ranker are nil when disabled.
type App struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Engine  *simulation.Engine
	DB      *database.DB
	Repos   *repository.Repositories
	Ranker  *ranker.Client
	Cache   *service.ResultCache
	Service *service.PredictionService
}

// New builds every enabled dependency from cfg.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	engineCfg, err := simulation.FromConfig(&cfg.Simulation)
	if err != nil {
		return nil, fmt.Errorf("invalid simulation settings: %w", err)
	}
	var opts []simulation.Option
	if cfg.Metrics.Enabled {
		opts = append(opts, simulation.WithRecorder(metrics.NewSimulationRecorder()))
	}
	a.Engine, err = simulation.NewEngine(engineCfg, log, opts...)
	if err != nil {
		return nil, err
	}

	var sources []service.ScoreSource
	if cfg.Database.Enabled {
		a.DB, err = database.Initialize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.Repos, err = repository.NewRepositories(a.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		sources = append(sources, service.FromScoreRepository(a.Repos.Score))
		log.WithField("host", cfg.Database.Host).Info("Database connection established")
	}
	if cfg.Ranker.Enabled {
		a.Ranker, err = ranker.NewClient(&cfg.Ranker, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create ranker client: %w", err)
		}
		sources = append(sources, a.Ranker)
		log.WithField("ranker_url", cfg.Ranker.URL).Info("Ranker client initialized")
	}

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithTrialBounds(service.TrialBounds{Min: cfg.Simulation.MinTrials, Max: cfg.Simulation.MaxTrials}),
	}
	if a.Repos != nil {
		svcOpts = append(svcOpts, service.WithRaces(a.Repos.Race))
	}
	if cfg.Cache.Enabled {
		a.Cache = service.NewResultCache(cfg.Cache.TTL(), cfg.Cache.CleanupInterval(), log)
		svcOpts = append(svcOpts, service.WithCache(a.Cache))
	}

	var scores service.ScoreSource
	if len(sources) > 0 {
		scores = service.ChainScoreSources(sources...)
	}
	a.Service = service.NewPredictionService(a.Engine, scores, svcOpts...)
	return a, nil
}

// Close releases connections held by the app.
func (a *App) Close() {
	if a.Ranker != nil {
		if err := a.Ranker.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close ranker client")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
