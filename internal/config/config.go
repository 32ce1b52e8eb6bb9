package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Ledger API
	FireflyAPIURL   string
	FireflyAPIToken string

	// Reference store
	DatabaseURL string

	// Models
	GeminiAPIKey     string
	ExtractionModel  string
	ExtractionFormat string // "json" or "keyvalue"
	EmbeddingModel   string
	EmbeddingDim     int
	ModelTimeout     time.Duration

	// Sync
	SyncPageSize int
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is read first when present;
// real environment variables take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		FireflyAPIURL:   getEnv("FIREFLY_API_URL", "http://localhost:8080/api/v1"),
		FireflyAPIToken: getEnv("FIREFLY_API_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/firefly_assistant?sslmode=disable"),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		ExtractionModel:  getEnv("EXTRACTION_MODEL", "gemini-2.5-flash"),
		ExtractionFormat: getEnv("EXTRACTION_FORMAT", "json"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 768),
		ModelTimeout:     getEnvDuration("MODEL_TIMEOUT", 30*time.Second),

		SyncPageSize: getEnvInt("SYNC_PAGE_SIZE", 50),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
