package simulation

import (
	"fmt"
	"math/rand"
	"runtime"

	"github.com/yourusername/podium/internal/config"
)

const (
	// DefaultTrials matches the production trade-off between latency and precision.
	DefaultTrials = 30000
	// DefaultDepth is the number of finishing positions of interest (top 3).
	DefaultDepth = 3
	// DefaultBlockSize is the number of trials that share one derived seed.
	DefaultBlockSize = 2048
	// MaxCompetitors bounds the field size so indices fit the packed tuple keys
	// and the dense pair matrix stays small.
	MaxCompetitors = 1024
)

// Config holds engine settings. Request fields override Trials, Depth and Mode per call.
type Config struct {
	Trials         int
	Depth          int
	Workers        int
	BlockSize      int
	Mode           ScoreMode
	Fallback       FallbackPolicy
	MaxCompetitors int
	NewSource      SourceFactory
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Trials:         DefaultTrials,
		Depth:          DefaultDepth,
		Workers:        runtime.NumCPU(),
		BlockSize:      DefaultBlockSize,
		Mode:           ModeLogits,
		Fallback:       FallbackUniform,
		MaxCompetitors: MaxCompetitors,
		NewSource:      rand.NewSource,
	}
}

// FromConfig converts app config to engine config
func FromConfig(cfg *config.SimulationConfig) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("simulation config is required")
	}

	out := DefaultConfig()
	if cfg.DefaultTrials > 0 {
		out.Trials = cfg.DefaultTrials
	}
	if cfg.Depth > 0 {
		out.Depth = cfg.Depth
	}
	if cfg.Workers > 0 {
		out.Workers = cfg.Workers
	}
	if cfg.BlockSize > 0 {
		out.BlockSize = cfg.BlockSize
	}
	if cfg.MaxCompetitors > 0 {
		out.MaxCompetitors = cfg.MaxCompetitors
	}
	if cfg.DefaultMode != "" {
		mode, err := ParseScoreMode(cfg.DefaultMode)
		if err != nil {
			return Config{}, err
		}
		out.Mode = mode
	}
	fallback, err := ParseFallbackPolicy(cfg.FallbackPolicy)
	if err != nil {
		return Config{}, err
	}
	out.Fallback = fallback

	return out, out.Validate()
}

// Validate validates engine config parameters
func (c Config) Validate() error {
	if c.Trials <= 0 {
		return fmt.Errorf("trials must be positive")
	}
	if c.Depth <= 0 {
		return fmt.Errorf("depth must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive")
	}
	if c.MaxCompetitors < 2 || c.MaxCompetitors > MaxCompetitors {
		return fmt.Errorf("max competitors must be between 2 and %d", MaxCompetitors)
	}
	if c.Depth > c.MaxCompetitors {
		return fmt.Errorf("depth cannot exceed max competitors")
	}
	if c.NewSource == nil {
		return fmt.Errorf("random source factory is required")
	}
	return nil
}
