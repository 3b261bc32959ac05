package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// Engine
	DefaultTimezone         string
	ConsecutiveFailureLimit int
	ActionTimeout           time.Duration
	ResolverPageSize        int
	AccountActionsPerMinute float64

	// Periodic driver
	SweepSchedule    string
	SweepConcurrency int

	// Collaborators
	ActionBackendURL   string
	ActionBackendToken string
	OpenAIAPIKey       string
	OpenAIModel        string
	ProspectSource     string // mongo, postgres or mysql
	ProspectSQLDSN     string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8000"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go_outreach"),
		SkipAuth:    getEnvBool("SKIP_AUTH", false),
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-outreach"),

		DefaultTimezone:         getEnv("DEFAULT_TIMEZONE", "UTC"),
		ConsecutiveFailureLimit: getEnvInt("CONSECUTIVE_FAILURE_LIMIT", 3),
		ActionTimeout:           getEnvDuration("ACTION_TIMEOUT", 30*time.Second),
		ResolverPageSize:        getEnvInt("RESOLVER_PAGE_SIZE", 50),
		AccountActionsPerMinute: getEnvFloat("ACCOUNT_ACTIONS_PER_MINUTE", 6),

		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@every 5m"),
		SweepConcurrency: getEnvInt("SWEEP_CONCURRENCY", 4),

		ActionBackendURL:   getEnv("ACTION_BACKEND_URL", ""),
		ActionBackendToken: getEnv("ACTION_BACKEND_TOKEN", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ProspectSource:     getEnv("PROSPECT_SOURCE", "mongo"),
		ProspectSQLDSN:     getEnv("PROSPECT_SQL_DSN", ""),
	}, nil
}

// Location resolves DefaultTimezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		log.Printf("Unknown DEFAULT_TIMEZONE %q, using UTC", c.DefaultTimezone)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Invalid %s=%q, using %v", key, value, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}
