// Package config loads Stockroom configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// DefaultMaxUploadBytes caps a single attachment at 100 MiB.
const DefaultMaxUploadBytes = 100 << 20

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	DBURL       string
	DBNamespace string
	DBDatabase  string
	DBUser      string
	DBPass      string
	DBAuthLevel string

	// HTTP server
	ListenAddr string

	// Attachment storage
	StorageRoot    string
	MaxUploadBytes int64

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		DBURL:       getEnv("STOCKROOM_DB_URL", "ws://localhost:8000/rpc"),
		DBNamespace: getEnv("STOCKROOM_DB_NAMESPACE", "stockroom"),
		DBDatabase:  getEnv("STOCKROOM_DB_DATABASE", "erp"),
		DBUser:      getEnv("STOCKROOM_DB_USER", "root"),
		DBPass:      getEnv("STOCKROOM_DB_PASS", "root"),
		DBAuthLevel: getEnv("STOCKROOM_DB_AUTH_LEVEL", "root"),

		ListenAddr: getEnv("STOCKROOM_LISTEN_ADDR", ":8380"),

		StorageRoot:    getEnv("STOCKROOM_STORAGE_ROOT", "./storage"),
		MaxUploadBytes: getEnvInt64("STOCKROOM_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),

		LogFile:  getEnv("STOCKROOM_LOG_FILE", "/tmp/stockroom.log"),
		LogLevel: parseLogLevel(getEnv("STOCKROOM_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
