package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Journal drivers
const (
	JournalDriverNone     = "none"
	JournalDriverRedis    = "redis"
	JournalDriverPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	App      AppConfig
	API      APIConfig
	Ledger   LedgerConfig
	Drain    DrainConfig
	Journal  JournalConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name        string
	Environment string
	Port        string
	Debug       bool
}

// APIConfig holds HTTP server configuration
type APIConfig struct {
	TimeoutSeconds int
	MaxRequestSize int64
}

// LedgerConfig holds the contract client bootstrap parameters.
// RPCURL, PrivateKey and ContractAddress are opaque to the drain loop.
type LedgerConfig struct {
	RPCURL              string
	PrivateKey          string
	ContractAddress     string
	ChainID             int64
	Timeout             time.Duration
	ReceiptPollInterval time.Duration
	GasLimit            uint64
}

// DrainConfig holds drain worker options
type DrainConfig struct {
	Interval time.Duration
}

// JournalConfig selects where order outcomes are recorded
type JournalConfig struct {
	Driver     string
	RedisKey   string
	RedisLimit int64
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxIdle  int
	MaxOpen  int
	MaxLife  time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// AuthConfig holds optional bearer token configuration for order intake
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	chainID, err := getEnvInt64Strict("CHAIN_ID", 0)
	if err != nil {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "dca-batcher"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8787"),
			Debug:       getEnvBool("APP_DEBUG", false),
		},
		API: APIConfig{
			TimeoutSeconds: getEnvInt("API_TIMEOUT", 30),
			MaxRequestSize: getEnvInt64("API_MAX_REQUEST_SIZE", 64*1024),
		},
		Ledger: LedgerConfig{
			RPCURL:              getEnv("RPC_URL", ""),
			PrivateKey:          getEnv("PRIVATE_KEY", ""),
			ContractAddress:     getEnv("CONTRACT_ADDRESS", ""),
			ChainID:             chainID,
			Timeout:             getEnvDuration("LEDGER_TIMEOUT", 60*time.Second),
			ReceiptPollInterval: getEnvDuration("RECEIPT_POLL_INTERVAL", time.Second),
			GasLimit:            uint64(getEnvInt64("LEDGER_GAS_LIMIT", 0)),
		},
		Drain: DrainConfig{
			Interval: getEnvDuration("DRAIN_INTERVAL", 5*time.Second),
		},
		Journal: JournalConfig{
			Driver:     strings.ToLower(getEnv("JOURNAL_DRIVER", JournalDriverNone)),
			RedisKey:   getEnv("JOURNAL_REDIS_KEY", "dca:outcomes"),
			RedisLimit: getEnvInt64("JOURNAL_REDIS_LIMIT", 1000),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "dca_batcher"),
			User:     getEnv("DB_USER", "dca"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxIdle:  getEnvInt("DB_MAX_IDLE", 2),
			MaxOpen:  getEnvInt("DB_MAX_OPEN", 5),
			MaxLife:  getEnvDuration("DB_MAX_LIFE", time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 5),
		},
		Auth: AuthConfig{
			Secret:   getEnv("AUTH_SECRET", ""),
			Issuer:   getEnv("AUTH_ISSUER", "dca-batcher"),
			Audience: getEnv("AUTH_AUDIENCE", ""),
		},
	}

	return config, nil
}

// GetDSN returns database connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// GetRedisAddr returns Redis connection address
func (r *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// IsDevelopment returns true if environment is development
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if environment is production
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// AuthEnabled reports whether order intake requires a bearer token
func (a *AuthConfig) AuthEnabled() bool {
	return strings.TrimSpace(a.Secret) != ""
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64Strict fails on malformed values instead of silently falling back.
func getEnvInt64Strict(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return intValue, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates configuration
func (c *Config) Validate() error {
	var missing []string
	if c.Ledger.RPCURL == "" {
		missing = append(missing, "RPC_URL")
	}
	if c.Ledger.PrivateKey == "" {
		missing = append(missing, "PRIVATE_KEY")
	}
	if c.Ledger.ContractAddress == "" {
		missing = append(missing, "CONTRACT_ADDRESS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s in environment", strings.Join(missing, ", "))
	}

	if c.Drain.Interval <= 0 {
		return fmt.Errorf("drain interval must be positive")
	}
	if c.Ledger.Timeout <= 0 {
		return fmt.Errorf("ledger timeout must be positive")
	}
	if c.Ledger.ReceiptPollInterval <= 0 {
		return fmt.Errorf("receipt poll interval must be positive")
	}

	switch c.Journal.Driver {
	case JournalDriverNone, JournalDriverRedis, JournalDriverPostgres:
	default:
		return fmt.Errorf("unknown journal driver %q", c.Journal.Driver)
	}

	return nil
}

// Print prints configuration (excluding sensitive data)
func (c *Config) Print() {
	fmt.Printf("=== Configuration ===\n")
	fmt.Printf("App Name: %s\n", c.App.Name)
	fmt.Printf("Environment: %s\n", c.App.Environment)
	fmt.Printf("Port: %s\n", c.App.Port)
	fmt.Printf("Contract: %s\n", c.Ledger.ContractAddress)
	fmt.Printf("Drain Interval: %v\n", c.Drain.Interval)
	fmt.Printf("Ledger Timeout: %v\n", c.Ledger.Timeout)
	fmt.Printf("Journal: %s\n", c.Journal.Driver)
	fmt.Printf("Auth Enabled: %v\n", c.Auth.AuthEnabled())
	fmt.Printf("====================\n")
}
