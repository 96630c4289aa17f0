package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath     string
	LogLevel   string
	PidFile    string
	LogFile    string
	Background bool
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:     getEnv("DATABASE_PATH", "grappling.db"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		PidFile:    getEnv("PID_FILE", "recompute.pid"),
		LogFile:    getEnv("LOG_FILE", "recompute.log"),
		Background: getEnv("BACKGROUND", "") != "",
	}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("log_level", cfg.LogLevel).
		Str("pid_file", cfg.PidFile).
		Bool("background", cfg.Background).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
