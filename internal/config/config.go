package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// PostgreSQL connection settings.
	PGHost     string
	PGPort     string
	PGDatabase string
	PGUser     string
	PGPassword string

	// MongoDB connection settings.
	MongoURI string
	MongoDB  string

	// StoreTimeout bounds every call into either store.
	StoreTimeout time.Duration

	Port string

	// Prediction runner settings.
	APIBaseURL string
	ModelPath  string
	// PredictInterval of zero means run once and exit.
	PredictInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.PGHost = getenvDefault("PG_HOST", "localhost")
	cfg.PGPort = getenvDefault("PG_PORT", "5432")
	cfg.PGDatabase = getenvDefault("PG_DBNAME", "weather_db")
	cfg.PGUser = getenvDefault("PG_USER", "postgres")
	cfg.PGPassword = os.Getenv("PG_PASSWORD")

	cfg.MongoURI = getenvDefault("MONGO_URI", "mongodb://localhost:27017")
	cfg.MongoDB = getenvDefault("MONGO_DB", "weather_db")

	timeoutStr := getenvDefault("STORE_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_TIMEOUT: %w", err)
	}
	cfg.StoreTimeout = timeout

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.APIBaseURL = getenvDefault("API_BASE_URL", "http://127.0.0.1:8080")
	cfg.ModelPath = getenvDefault("PREDICT_MODEL_PATH", "models/rain_model.json")

	intervalStr := getenvDefault("PREDICT_INTERVAL", "0s")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICT_INTERVAL: %w", err)
	}
	cfg.PredictInterval = interval

	return cfg, nil
}

// PostgresDSN assembles a connection URL from the individual settings.
func (c *AppConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(c.PGUser),
		url.QueryEscape(c.PGPassword),
		c.PGHost,
		c.PGPort,
		c.PGDatabase,
	)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
