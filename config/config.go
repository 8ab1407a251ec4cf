package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string
	Port        string
	GoEnv       string
	LogLevel    string

	Auth0Domain   string
	Auth0Audience string

	// External public-store sync. Absent credentials disable the sync
	// bridge; the rest of the system runs fully offline.
	SyncBaseURL      string
	SyncStoreID      string
	SyncServiceEmail string
	SyncPrivateKey   string // PEM-encoded RSA private key
	SyncTokenURL     string
	SyncIntervalSec  int

	// Production planning settings, passed into the services as values so
	// tests can pin them.
	OverheadPerLoaf  decimal.Decimal
	OrderCutoffHours int
}

var configInstance *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try the environment-specific file first, then fall back to .env.
	// In production the variables are set directly, so missing files are fine.
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	overhead, err := decimal.NewFromString(getEnv("OVERHEAD_PER_LOAF", "0.75"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERHEAD_PER_LOAF: %w", err)
	}

	config := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		Port:             getEnv("PORT", "8080"),
		GoEnv:            env,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Auth0Domain:      getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:    getEnv("AUTH0_AUDIENCE", ""),
		SyncBaseURL:      getEnv("SYNC_BASE_URL", ""),
		SyncStoreID:      getEnv("SYNC_STORE_ID", ""),
		SyncServiceEmail: getEnv("SYNC_SERVICE_EMAIL", ""),
		SyncPrivateKey:   getEnv("SYNC_PRIVATE_KEY", ""),
		SyncTokenURL:     getEnv("SYNC_TOKEN_URL", ""),
		SyncIntervalSec:  getEnvInt("SYNC_INTERVAL_SECONDS", 60),
		OverheadPerLoaf:  overhead,
		OrderCutoffHours: getEnvInt("ORDER_CUTOFF_HOURS", 36),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	configInstance = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// HasSyncCredentials reports whether the external-store sync bridge can be
// started. The credentials are required for sync only; every other part of
// the system keeps working without them.
func (c *Config) HasSyncCredentials() bool {
	return c.SyncBaseURL != "" && c.SyncStoreID != "" &&
		c.SyncServiceEmail != "" && c.SyncPrivateKey != "" && c.SyncTokenURL != ""
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// GetConfig returns the loaded configuration instance
func GetConfig() *Config {
	return configInstance
}

// SetConfig sets the configuration instance (primarily for testing)
func SetConfig(c *Config) {
	configInstance = c
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
