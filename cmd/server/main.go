// Package main provides the entry point for the podium prediction API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/app"
	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/logger"
	"github.com/yourusername/podium/internal/metrics"
	"github.com/yourusername/podium/internal/scheduler"
	"github.com/yourusername/podium/internal/server"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (default config/config.yaml)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load AWS secrets if enabled
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		log.Fatalf("Failed to load secrets: %v", err)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := config.ValidateEnvironment(cfg); err != nil {
		log.Fatalf("Unsafe configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Podium prediction API starting")

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	a, err := app.New(ctx, cfg, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize dependencies")
	}
	defer a.Close()

	srvCfg := server.ConfigFromApp(cfg, appLog)
	srvCfg.Version = Version
	srvCfg.Commit = GitCommit
	if a.DB != nil {
		srvCfg.Checks["database"] = a.DB
	}
	if a.Ranker != nil {
		srvCfg.Checks["ranker"] = a.Ranker
	}
	srv := server.NewServer(srvCfg, a.Service)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.NewFromConfig(a.Service, &cfg.Scheduler, appLog)
		if err != nil {
			appLog.WithError(err).Fatal("Failed to schedule warm-up")
		}
		if err := sched.Start(); err != nil {
			appLog.WithError(err).Fatal("Failed to start scheduler")
		}
	}

	if err := srv.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start API server")
	}
	srv.SetReady(true)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	// Graceful shutdown
	srv.SetReady(false)
	if sched != nil {
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Warn("Scheduler did not stop cleanly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("API server shutdown failed")
	}

	appLog.Info("Podium prediction API stopped")
}
