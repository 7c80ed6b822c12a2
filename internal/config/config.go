// Package config centralises configuration parsing for the dispatch relay.
package config

import (
	"os"
	"time"
)

// Config captures runtime configuration values for the relay.
type Config struct {
	HTTPAddress     string
	APNSKeyFile     string // path to the .p8 signing key
	APNSKeyID       string
	APNSTeamID      string
	AllowedOrigin   string
	JWTSecret       string // empty disables bearer authentication
	JWTIssuer       string
	ShutdownTimeout time.Duration
}

// Load reads environment variables into Config, applying sensible defaults
// for local dev.
func Load() Config {
	return Config{
		HTTPAddress:     getEnv("HTTP_ADDRESS", ":3000"),
		APNSKeyFile:     getEnv("APNS_KEY_FILE", "AuthKey.p8"),
		APNSKeyID:       getEnv("APNS_KEY_ID", ""),
		APNSTeamID:      getEnv("APNS_TEAM_ID", ""),
		AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "*"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "liveactivity.relay"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
