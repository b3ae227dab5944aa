// Package config reads the server configuration from the environment,
// loading a .env file first when one is present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	ListenAddr string
	JWTSecret  string

	StorageBackend string
	DataDir        string
	PostgresDSN    string

	InitTimeout     time.Duration
	SendMaxAttempts int
	SendRetryDelay  time.Duration
	SendDefectDelay time.Duration
	BacklogCap      int

	LogLevel string
}

func Load(log zerolog.Logger) Config {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	return Config{
		ListenAddr:      stringEnv("WAPP_LISTEN_ADDR", ":8081"),
		JWTSecret:       os.Getenv("WAPP_JWT_SECRET"),
		StorageBackend:  stringEnv("WAPP_STORAGE_BACKEND", "file"),
		DataDir:         os.Getenv("WAPP_DATA_DIR"),
		PostgresDSN:     os.Getenv("WAPP_POSTGRES_DSN"),
		InitTimeout:     durationEnv(log, "WAPP_INIT_TIMEOUT", 3*time.Minute),
		SendMaxAttempts: intEnv(log, "WAPP_SEND_MAX_ATTEMPTS", 3),
		SendRetryDelay:  durationEnv(log, "WAPP_SEND_RETRY_DELAY", 800*time.Millisecond),
		SendDefectDelay: durationEnv(log, "WAPP_SEND_DEFECT_DELAY", 1200*time.Millisecond),
		BacklogCap:      intEnv(log, "WAPP_BACKLOG_CAP", 50),
		LogLevel:        stringEnv("WAPP_LOG_LEVEL", "info"),
	}
}

func stringEnv(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func intEnv(log zerolog.Logger, name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("name", name).Str("value", raw).Int("fallback", fallback).Msg("invalid integer env var")
		return fallback
	}
	return value
}

func durationEnv(log zerolog.Logger, name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Warn().Str("name", name).Str("value", raw).Stringer("fallback", fallback).Msg("invalid duration env var")
		return fallback
	}
	return value
}
