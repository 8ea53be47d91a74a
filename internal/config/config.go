package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	CatalogBaseURL    string
	EnrichmentBaseURL string
	ServerPort        string
	LogLevel          string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		CatalogBaseURL:    getEnv("CATALOG_BASE_URL", "https://boardgamegeek.com/xmlapi2"),
		EnrichmentBaseURL: getEnv("ENRICHMENT_BASE_URL", "https://recommendations.gameshelf.dev"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	logger.Info().
		Str("catalog_base_url", cfg.CatalogBaseURL).
		Str("enrichment_base_url", cfg.EnrichmentBaseURL).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
