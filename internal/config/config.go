package config

import (
	"os"
	"strconv"
)

// Config holds all runtime configuration, loaded from environment variables.
// cmd/server loads a .env file first via godotenv, so local development only
// needs a .env at the repository root.
type Config struct {
	Server ServerConfig
	Logger LoggerConfig
	Auth   AuthConfig
	Cache  CacheConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string // comma-separated; empty disables CORS
}

type LoggerConfig struct {
	Level    string // debug, info, warn, error
	Encoding string // console or json
}

type AuthConfig struct {
	JWTSecret string
	// LockoutThreshold failed logins from one IP within LockoutWindowMinutes
	// lock that IP out of the login endpoint.
	LockoutThreshold     int
	LockoutWindowMinutes int
}

type CacheConfig struct {
	// RedisAddr, when set, selects the Redis-backed store; otherwise the
	// in-process store is used.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from the environment. DATABASE_URL is consumed
// directly by the db package and is deliberately not duplicated here.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOGGER_LEVEL", "info"),
			Encoding: getEnv("LOGGER_ENCODING", "console"),
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("JWT_SECRET", ""),
			LockoutThreshold:     getEnvInt("LOGIN_LOCKOUT_THRESHOLD", 5),
			LockoutWindowMinutes: getEnvInt("LOGIN_LOCKOUT_WINDOW_MINUTES", 15),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("CACHE_REDIS_ADDR", ""),
			RedisPassword: getEnv("CACHE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("CACHE_REDIS_DB", 0),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
