package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Typesense    TypesenseConfig
	Places       PlacesConfig
	OTEL         OTELConfig
	Orchestrator OrchestratorConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env       string
	SessionID string
}

// IsDevelopment reports whether the process runs in development build mode
func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	SSEPort        int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	Enabled bool
	URL     string
	APIKey  string
}

// PlacesConfig holds places provider configuration
type PlacesConfig struct {
	Provider   string
	APIKey     string
	Country    string
	MaxResults int
	// MemoryStoreSize bounds the in-process result store used without Redis
	MemoryStoreSize int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// OrchestratorConfig holds address search orchestration settings
type OrchestratorConfig struct {
	EnableStateValidation    bool
	EnableLogging            bool
	MaxOperationsBeforeReset int
	Alerts                   entities.AlertConfig
}

// DefaultOrchestratorConfig returns the orchestration defaults for an environment
func DefaultOrchestratorConfig(env string) OrchestratorConfig {
	return OrchestratorConfig{
		EnableStateValidation:    env == "development",
		EnableLogging:            true,
		MaxOperationsBeforeReset: 10000,
		Alerts:                   entities.DefaultAlertConfig(),
	}
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	env := getEnv("APP_ENV", "production")
	defaults := DefaultOrchestratorConfig(env)

	cfg := &Config{
		App: AppConfig{
			Env:       env,
			SessionID: getEnv("SESSION_ID", "default"),
		},
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			SSEPort:        getEnvAsInt("SSE_PORT", 8081),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "address_finder"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:   getEnvAsBool("REDIS_ENABLED", true),
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvAsInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "addressfinder:"),
			TTL:       time.Duration(getEnvAsInt("REDIS_TTL_SECONDS", 0)) * time.Second,
		},
		Typesense: TypesenseConfig{
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		Places: PlacesConfig{
			Provider:        getEnv("PLACES_PROVIDER", "mock"),
			APIKey:          getEnv("PLACES_API_KEY", ""),
			Country:         getEnv("PLACES_COUNTRY", "au"),
			MaxResults:      getEnvAsInt("PLACES_MAX_RESULTS", 5),
			MemoryStoreSize: getEnvAsInt("MEMORY_STORE_SIZE", 1024),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "address-finder"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Orchestrator: OrchestratorConfig{
			EnableStateValidation:    getEnvAsBool("ENABLE_STATE_VALIDATION", defaults.EnableStateValidation),
			EnableLogging:            getEnvAsBool("ENABLE_LOGGING", defaults.EnableLogging),
			MaxOperationsBeforeReset: getEnvAsInt("MAX_OPERATIONS_BEFORE_RESET", defaults.MaxOperationsBeforeReset),
			Alerts: entities.AlertConfig{
				SlowOperationThresholdMs: getEnvAsFloat("ALERT_SLOW_OPERATION_MS", defaults.Alerts.SlowOperationThresholdMs),
				LowCacheHitRateThreshold: getEnvAsFloat("ALERT_LOW_CACHE_HIT_RATE", defaults.Alerts.LowCacheHitRateThreshold),
				HighErrorRateThreshold:   getEnvAsFloat("ALERT_HIGH_ERROR_RATE", defaults.Alerts.HighErrorRateThreshold),
				MinOperationsForAlert:    getEnvAsInt("ALERT_MIN_OPERATIONS", defaults.Alerts.MinOperationsForAlert),
				AlertCooldownMs:          int64(getEnvAsInt("ALERT_COOLDOWN_MS", int(defaults.Alerts.AlertCooldownMs))),
			},
		},
	}

	if err := cfg.Orchestrator.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the orchestrator cannot run with
func (c OrchestratorConfig) Validate() error {
	if c.MaxOperationsBeforeReset <= 0 {
		return fmt.Errorf("MAX_OPERATIONS_BEFORE_RESET must be positive, got %d", c.MaxOperationsBeforeReset)
	}
	if c.Alerts.SlowOperationThresholdMs <= 0 {
		return fmt.Errorf("ALERT_SLOW_OPERATION_MS must be positive, got %v", c.Alerts.SlowOperationThresholdMs)
	}
	if c.Alerts.LowCacheHitRateThreshold < 0 || c.Alerts.LowCacheHitRateThreshold > 1 {
		return fmt.Errorf("ALERT_LOW_CACHE_HIT_RATE must be within [0,1], got %v", c.Alerts.LowCacheHitRateThreshold)
	}
	if c.Alerts.HighErrorRateThreshold <= 0 || c.Alerts.HighErrorRateThreshold > 1 {
		return fmt.Errorf("ALERT_HIGH_ERROR_RATE must be within (0,1], got %v", c.Alerts.HighErrorRateThreshold)
	}
	if c.Alerts.AlertCooldownMs < 0 {
		return fmt.Errorf("ALERT_COOLDOWN_MS must not be negative, got %d", c.Alerts.AlertCooldownMs)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
