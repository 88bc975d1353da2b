package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	apperrors "assocdesign/internal/errors"
	"assocdesign/internal/nssm"

	"github.com/joho/godotenv"
)

// Config holds the process-level settings read from the environment. A
// scenario file overrides any of them it sets.
type Config struct {
	LogLevel    string
	Workers     int
	Seed        uint64
	NStarts     int
	LogLikFloor float64
	OutputDir   string
}

// Load reads an optional .env file (or the given files) and then the
// environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, apperrors.Wrap(err, "failed to load env file")
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.Wrap(err, "failed to load .env")
	}

	cfg := &Config{
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		Workers:     getEnvIntOrDefault("ASSOC_WORKERS", 0),
		Seed:        getEnvUintOrDefault("ASSOC_SEED", 1),
		NStarts:     getEnvIntOrDefault("ASSOC_N_STARTS", 5),
		LogLikFloor: getEnvFloatOrDefault("ASSOC_LOGLIK_FLOOR", nssm.DefaultLogLikFloor),
		OutputDir:   getEnvOrDefault("ASSOC_OUTPUT_DIR", "out"),
	}
	if err := validateConfig(cfg); err != nil {
		return nil, apperrors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Workers < 0 {
		return apperrors.ConfigInvalidf("ASSOC_WORKERS must be >= 0, got %d", cfg.Workers)
	}
	if cfg.NStarts <= 0 {
		return apperrors.ConfigInvalidf("ASSOC_N_STARTS must be positive, got %d", cfg.NStarts)
	}
	if cfg.LogLikFloor >= 0 {
		return apperrors.ConfigInvalidf("ASSOC_LOGLIK_FLOOR must be negative, got %g", cfg.LogLikFloor)
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

func getEnvUintOrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
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
