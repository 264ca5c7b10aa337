package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the service.
type Config struct {
	Port        string
	Environment string

	// Storage roots
	DataDir     string
	CombinedDir string

	// Source site
	BaseURL    string
	HistoryURL string

	// Pipeline tuning
	SyncWorkers  int
	HTTPTimeout  time.Duration
	FetchRetries int

	// Daily refresh time, HH:MM (24h)
	RefreshAt string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:         getEnv("PORT", "8080"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		DataDir:      getEnv("DATA_DIR", "data"),
		CombinedDir:  getEnv("COMBINED_DIR", "combined"),
		BaseURL:      getEnv("MSE_BASE_URL", "https://www.mse.mk/mk/issuers/free-market"),
		HistoryURL:   getEnv("MSE_HISTORY_URL", "https://www.mse.mk/mk/stats/symbolhistory/"),
		SyncWorkers:  getEnvInt("SYNC_WORKERS", 10),
		HTTPTimeout:  time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		FetchRetries: getEnvInt("FETCH_RETRIES", 3),
		RefreshAt:    getEnv("REFRESH_AT", "18:00"),
	}

	return config, nil
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
