package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Dispatch DispatchConfig
	DB       DBConfig
	Redis    RedisConfig
	Session  SessionConfig
	Map      MapConfig
}

type ServerConfig struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	// RateLimitRPS is per client IP. 0 disables the limiter.
	RateLimitRPS   float64
	RateLimitBurst int
}

type DispatchConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	FetchConcurrency  int
}

type DBConfig struct {
	Driver string // sqlite or postgres
	DSN    string
}

// RedisConfig with an empty Host means sessions stay in process memory.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type MapConfig struct {
	DepotName     string
	DepotLocation string
}

// Load returns application configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               getEnv("DISPATCH_PORT", "8080"),
			Env:                getEnv("APP_ENV", "development"),
			LogLevel:           getEnv("LOG_LEVEL", ""),
			CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 20),
			RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
		},
		Dispatch: DispatchConfig{
			BaseURL:           getEnv("DISPATCH_API_BASE_URL", "http://localhost:8000"),
			Timeout:           getEnvDuration("DISPATCH_API_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getEnvFloat("DISPATCH_API_RPS", 0),
			Burst:             getEnvInt("DISPATCH_API_BURST", 10),
			FetchConcurrency:  getEnvInt("DISPATCH_FETCH_CONCURRENCY", 8),
		},
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DB_DSN", "dispatch.db"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", "dev-session-secret"),
			TTL:    getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		},
		Map: MapConfig{
			DepotName:     getEnv("DEPOT_NAME", "Houses of Parliament"),
			DepotLocation: getEnv("DEPOT_LOCATION", "51.4995 -0.1248"),
		},
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
