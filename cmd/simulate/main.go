// Package main provides the podium command line simulator.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/logger"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	cfg        *config.Config
	appLog     *logrus.Logger
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "simulate",
		Short:        "Estimate finishing-order probabilities by Monte Carlo simulation",
		Long:         `Samples Plackett-Luce finishing orders from competitor strengths and prints win, place, ordered, unordered and pair probabilities.`,
		Version:      fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (default config/config.yaml)")
	rootCmd.AddCommand(newRunCmd(), newRaceCmd())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	// Console output owns stdout; logs go to stderr.
	appLog = logger.NewLoggerWithOutput(cfg.App.LogLevel, cfg.App.LogFormat, os.Stderr)
	return nil
}
