package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything loaded from the environment.
// Model tuning parameters live in config/model.yaml, see model.go.
type Config struct {
	// Database
	DBDriver   string // "postgres" or "sqlite"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Warehouse target (curated/features/analytics schemas)
	WarehouseDSN string

	// Upstream API keys
	FootballDataKey string
	OddsAPIKey      string

	// Data directory root (raw/processed/historical/cache)
	DataRoot string

	LogLevel string
}

// Load reads .env in dev and then the process environment, validating
// the minimum set of variables the server needs to start.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		DBDriver:        getenv("DB_DRIVER", "sqlite"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          getenv("DB_PORT", "5432"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		DBSSLMode:       getenv("DB_SSLMODE", "disable"),
		SQLitePath:      getenv("SQLITE_PATH", "data/betting_bot.db"),
		WarehouseDSN:    os.Getenv("WAREHOUSE_DSN"),
		FootballDataKey: os.Getenv("FOOTBALL_DATA_API_KEY"),
		OddsAPIKey:      os.Getenv("ODDS_API_KEY"),
		DataRoot:        getenv("DATA_ROOT", "data"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
	}

	if cfg.DBDriver == "postgres" {
		if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
			return nil, fmt.Errorf("postgres driver selected but DB_HOST/DB_USER/DB_NAME not set")
		}
	}

	return cfg, nil
}

// PostgresDSN builds the gorm postgres connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
