package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"sxfit/internal/errors"

	"github.com/joho/godotenv"
)

// Config represents the runtime settings of a fitting process
type Config struct {
	LogLevel string
	Sampling SamplingConfig
	Build    BuildConfig
	Storage  StorageConfig
}

// SamplingConfig holds pseudo-data generation settings
type SamplingConfig struct {
	Seed uint64
	// OversampleFactor seeds the per-part event count when combining a chained signal.
	OversampleFactor float64
}

// BuildConfig holds signal construction settings
type BuildConfig struct {
	Workers int
}

// StorageConfig holds dataset persistence settings
type StorageConfig struct {
	Driver string // "sqlite" or "postgres"
	DSN    string
}

// DefaultOversampleFactor is the chained-signal seed multiplier used unless overridden.
const DefaultOversampleFactor = 10.0

// Load reads configuration from the environment, after merging any .env file, and validates it
func Load() (*Config, error) {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	seed, err := getEnvUintOrDefault("SXFIT_SEED", 42)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sampling configuration")
	}

	config := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
		Sampling: SamplingConfig{
			Seed:             seed,
			OversampleFactor: getEnvFloatOrDefault("SXFIT_OVERSAMPLE", DefaultOversampleFactor),
		},
		Build: BuildConfig{
			Workers: getEnvIntOrDefault("SXFIT_WORKERS", runtime.NumCPU()),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnvOrDefault("SXFIT_DB_DRIVER", "sqlite")),
			DSN:    getEnvOrDefault("SXFIT_DB_DSN", "sxfit.db"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Sampling.OversampleFactor <= 0 {
		return errors.ConfigInvalid("SXFIT_OVERSAMPLE must be positive")
	}
	if config.Build.Workers < 1 {
		return errors.ConfigInvalid("SXFIT_WORKERS must be at least 1")
	}
	switch config.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return errors.ConfigInvalid("SXFIT_DB_DRIVER must be sqlite or postgres")
	}
	if config.Storage.DSN == "" {
		return errors.ConfigInvalid("SXFIT_DB_DSN is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// Seeds are reproducibility inputs, so a malformed one is an error rather than a silent default.
func getEnvUintOrDefault(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be a non-negative integer")
	}
	return v, nil
}
