/**
 * @description
 * Configuration loader for the listings backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (Database URL, Steam API key) are missing.
 * - BPTF_TOKEN holds the whole credential pool as a comma-separated list.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the three services
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	BackpackTF BackpackTFConfig
	Steam      SteamConfig
	Services   ServicesConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// BackpackTFConfig holds the marketplace API endpoints and credential pool
type BackpackTFConfig struct {
	APIURL string
	WSURL  string
	Tokens []string // rotated by the snapshot fetcher's rate limiter
	AppID  int
}

// SteamConfig holds the Steam Web API key used by the item schema
type SteamConfig struct {
	APIKey string
}

// ServicesConfig holds inter-service URLs and the edge auth secret
type ServicesConfig struct {
	AuthToken          string
	SaveUserData       bool
	WSManagerURL       string
	ListingsManagerURL string
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (k8s/prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		BackpackTF: BackpackTFConfig{
			APIURL: getEnv("BPTF_API_URL", "https://backpack.tf/api"),
			WSURL:  getEnv("BPTF_WS_URL", "wss://ws.backpack.tf/events"),
			Tokens: splitTokens(getEnv("BPTF_TOKEN", "")),
			AppID:  getEnvAsInt("APP_ID", 440),
		},
		Steam: SteamConfig{
			APIKey: sanitizeCredential(getEnv("STEAM_API_KEY", "")),
		},
		Services: ServicesConfig{
			AuthToken:          sanitizeCredential(getEnv("AUTH_TOKEN", "")),
			SaveUserData:       strings.EqualFold(getEnv("SAVE_USER_DATA", "false"), "true"),
			WSManagerURL:       getEnv("WS_MANAGER_URL", "http://localhost:8081"),
			ListingsManagerURL: getEnv("LISTINGS_MANAGER_URL", "http://localhost:8082"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Steam.APIKey == "" {
		return fmt.Errorf("STEAM_API_KEY is required")
	}
	if len(cfg.BackpackTF.Tokens) == 0 {
		// Only the snapshot fetcher needs tokens; the other services can run without them.
		fmt.Println("Warning: BPTF_TOKEN is missing. Snapshot fetching will fail.")
	}
	if cfg.Services.AuthToken == "" {
		fmt.Println("Warning: AUTH_TOKEN is missing. Edge requests will be rejected.")
	}
	return nil
}

// splitTokens parses the comma-separated credential pool, dropping empties
func splitTokens(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := sanitizeCredential(p); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
