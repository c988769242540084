// Package config provides configuration management for the podium simulator.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

const maxCompetitorsLimit = 1024

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	v.RegisterValidation("environment", validateEnvironment)
	v.RegisterValidation("loglevel", validateLogLevel)
	v.RegisterValidation("scoremode", validateScoreMode)
	v.RegisterValidation("fallback", validateFallback)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateScoreMode accepts the score interpretations understood by the engine
func validateScoreMode(fl validator.FieldLevel) bool {
	switch strings.ToLower(fl.Field().String()) {
	case "weights", "logits":
		return true
	default:
		return false
	}
}

func validateFallback(fl validator.FieldLevel) bool {
	switch strings.ToLower(fl.Field().String()) {
	case "uniform", "input_order":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	sim := cfg.Simulation
	if sim.MinTrials > sim.MaxTrials {
		return fmt.Errorf("simulation min_trials (%d) cannot exceed max_trials (%d)", sim.MinTrials, sim.MaxTrials)
	}
	if sim.DefaultTrials < sim.MinTrials || sim.DefaultTrials > sim.MaxTrials {
		return fmt.Errorf("simulation default_trials must be between min_trials and max_trials")
	}
	if sim.Depth > sim.MaxCompetitors {
		return fmt.Errorf("simulation depth cannot exceed max_competitors")
	}
	// The engine keeps a dense pair matrix per worker.
	if sim.MaxCompetitors > maxCompetitorsLimit {
		return fmt.Errorf("simulation max_competitors cannot exceed %d", maxCompetitorsLimit)
	}

	if cfg.Ranker.Enabled && cfg.Ranker.URL == "" {
		return fmt.Errorf("ranker url is required when the ranker is enabled")
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if cfg.Scheduler.Enabled {
		if !cfg.Database.Enabled && !cfg.Ranker.Enabled {
			return fmt.Errorf("scheduler requires the database or the ranker as a race source")
		}
		if _, err := cron.ParseStandard(cfg.Scheduler.WarmupCron); err != nil {
			return fmt.Errorf("invalid scheduler warmup_cron %q: %w", cfg.Scheduler.WarmupCron, err)
		}
	}

	if cfg.IsProduction() && cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "scoremode":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: weights, logits\n", field)
		case "fallback":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: uniform, input_order\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.Ranker.Enabled && isTestCredential(cfg.Ranker.APIKey) {
			return fmt.Errorf("production environment should not use a test ranker api key")
		}
		if cfg.App.LogLevel == "debug" {
			return fmt.Errorf("debug logging should be disabled in production")
		}
	}

	return nil
}

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	testPatterns := []string{
		"test", "demo", "example", "placeholder", "YOUR_",
	}

	for _, pattern := range testPatterns {
		if match, _ := regexp.MatchString("(?i)"+pattern, credential); match {
			return true
		}
	}

	return false
}
