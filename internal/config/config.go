package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config carries the environment-level settings for the engine: where the
// target lives, which baseline store to use and the default time budgets.
// Per-run load shapes come from scenario definitions, not from here.
type Config struct {
	// Target
	TargetURL string

	// Baseline store: "file" or "redis"
	BaselineStore string
	BaselineDir   string
	RedisURL      string

	// Budgets (milliseconds)
	PerCallTimeoutMS int
	RunTimeoutMS     int

	// Output
	OutputDir string

	// Target authentication
	AuthToken string
	JWTSecret string
}

// Load reads configuration from the environment with sane defaults. A .env
// file in the working directory is honored when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Debug("No .env file loaded")
	}

	return &Config{
		TargetURL: getEnvOrDefault("PERF_TARGET_URL", "http://localhost:9000"),

		BaselineStore: getEnvOrDefault("PERF_BASELINE_STORE", "file"),
		BaselineDir:   getEnvOrDefault("PERF_BASELINE_DIR", "./baselines"),
		RedisURL:      getEnvOrDefault("PERF_REDIS_URL", "redis://localhost:6379/0"),

		PerCallTimeoutMS: getEnvAsIntOrDefault("PERF_CALL_TIMEOUT_MS", 30000),
		RunTimeoutMS:     getEnvAsIntOrDefault("PERF_RUN_TIMEOUT_MS", 600000),

		OutputDir: getEnvOrDefault("PERF_OUTPUT_DIR", "./test-results"),

		AuthToken: getEnvOrDefault("PERF_AUTH_TOKEN", ""),
		JWTSecret: getEnvOrDefault("PERF_JWT_SECRET", ""),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
