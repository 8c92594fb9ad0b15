package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	MigrationsPath    string

	// JWT
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	// Rate limiting. An empty RedisURL keeps counters in process memory.
	RedisURL             string
	RateLimitMaxAttempts int
	RateLimitWindow      time.Duration

	// Budget evaluation
	BudgetEvalBatch       bool
	BudgetEvalConcurrency int

	// ServiceKey guards operator-only endpoints. Empty disables them.
	ServiceKey string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "fintrack"),
		DBPassword:        getEnv("DB_PASSWORD", "fintrack"),
		DBName:            getEnv("DB_NAME", "fintrack"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "file://migrations"),

		JWTSecret:          getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		AccessTokenExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		RefreshTokenExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),

		RedisURL:             getEnv("REDIS_URL", ""),
		RateLimitMaxAttempts: getEnvAsInt("RATE_LIMIT_MAX_ATTEMPTS", 10),
		RateLimitWindow:      getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),

		BudgetEvalBatch:       getEnvAsBool("BUDGET_EVAL_BATCH", false),
		BudgetEvalConcurrency: getEnvAsInt("BUDGET_EVAL_CONCURRENCY", 4),

		ServiceKey: getEnv("SERVICE_KEY", ""),
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Set replaces the process-wide configuration. Used by tests and the
// acceptance suite to run against a known configuration.
func Set(c *Config) {
	appConfig = c
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if valueStr != "" {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, valueStr, defaultValue)
	}
	return defaultValue
}
