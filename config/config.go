package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the relay and the chat client.
type Config struct {
	Relay  RelayConfig
	Client ClientConfig
}

// RelayConfig holds settings for the relay server.
type RelayConfig struct {
	Addr               string
	AllowedOrigins     []string
	AuthoritativeLikes bool
	LikeLedgerSize     int
	MaxMessageLength   int
	RegistryBuckets    int
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
}

// ClientConfig holds settings for the terminal chat client.
type ClientConfig struct {
	RelayURL   string
	Username   string
	Store      string
	SQLitePath string
	RedisAddr  string
	InviteBase string
}

// Load returns configuration loaded from environment with fallback to defaults
func Load() *Config {
	return &Config{
		Relay: RelayConfig{
			Addr:               getEnv("RELAY_ADDR", ":3000"),
			AllowedOrigins:     getEnvAsSlice("CORS_ALLOWED_ORIGINS", "*"),
			AuthoritativeLikes: getEnvAsBool("RELAY_AUTHORITATIVE_LIKES", true),
			LikeLedgerSize:     getEnvAsInt("RELAY_LIKE_LEDGER_SIZE", 1000),
			MaxMessageLength:   getEnvAsInt("RELAY_MAX_MESSAGE_LENGTH", 4096),
			RegistryBuckets:    getEnvAsInt("RELAY_REGISTRY_BUCKETS", 32),
			WriteTimeout:       getEnvAsDuration("RELAY_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Client: ClientConfig{
			RelayURL:   getEnv("CHAT_RELAY_URL", "ws://localhost:3000/ws"),
			Username:   getEnv("CHAT_USERNAME", ""),
			Store:      getEnv("CHAT_STORE", "sqlite"),
			SQLitePath: getEnv("CHAT_SQLITE_PATH", "likechat.db"),
			RedisAddr:  getEnv("CHAT_REDIS_ADDR", "127.0.0.1:6379"),
			InviteBase: getEnv("CHAT_INVITE_BASE", "http://localhost:3000/"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err == nil {
			return intVal
		}
		slog.Warn("Invalid integer environment variable", "key", key, "value", value, "error", err)
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		boolVal, err := strconv.ParseBool(value)
		if err == nil {
			return boolVal
		}
		slog.Warn("Invalid boolean environment variable", "key", key, "value", value, "error", err)
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
		slog.Warn("Invalid duration environment variable", "key", key, "value", value, "error", err)
	}
	return fallback
}

// getEnvAsSlice splits a comma separated variable, trimming blanks.
func getEnvAsSlice(key string, fallback string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return []string{fallback}
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}
