package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	CORS      CORSConfig
	Engine    EngineConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        // Default: "127.0.0.1"
	Port            int           // Default: 8080
	ShutdownTimeout time.Duration // Default: 30s
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // Default: "info" (trace, debug, info, warn, error, fatal, panic)
	Environment string // production|development|staging|test (affects format)
}

// CORSConfig holds CORS middleware settings
type CORSConfig struct {
	AllowAll    bool   // Default: false
	FrontendURL string // Used when AllowAll=false
}

// EngineConfig holds startup overrides for the dedup engine.
// Zero values keep the engine defaults.
type EngineConfig struct {
	OverallThreshold   float64 // Default: 0 (use engine default)
	BatchSize          int     // Default: 0 (use engine default)
	MaxCandidates      int     // Default: 0 (use engine default)
	EnableCaching      bool    // Default: true
	ParallelProcessing bool    // Default: false
}

// SchedulerConfig holds maintenance scheduler settings
type SchedulerConfig struct {
	Enabled        bool   // Default: true
	CacheClearSpec string // Cron spec with seconds field. Default: hourly
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// Constants for default values
const (
	DefaultServerHost      = "127.0.0.1"
	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 30 * time.Second
	DefaultLogLevel        = "info"
	DefaultEnvironment     = "development"
	DefaultCacheClearSpec  = "0 0 * * * *"
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", DefaultServerHost),
			Port:            getEnvAsInt("PORT", DefaultServerPort),
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", DefaultLogLevel),
			Environment: getEnv("APP_ENV", DefaultEnvironment),
		},
		CORS: CORSConfig{
			AllowAll:    getEnvAsBool("CORS_ALLOW_ALL", false),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Engine: EngineConfig{
			OverallThreshold:   getEnvAsFloat("DEDUP_OVERALL_THRESHOLD", 0),
			BatchSize:          getEnvAsInt("DEDUP_BATCH_SIZE", 0),
			MaxCandidates:      getEnvAsInt("DEDUP_MAX_CANDIDATES", 0),
			EnableCaching:      getEnvAsBool("DEDUP_ENABLE_CACHING", true),
			ParallelProcessing: getEnvAsBool("DEDUP_PARALLEL", false),
		},
		Scheduler: SchedulerConfig{
			Enabled:        getEnvAsBool("MAINTENANCE_ENABLED", true),
			CacheClearSpec: getEnv("CACHE_CLEAR_CRON", DefaultCacheClearSpec),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	var errors ValidationErrors

	// Server port range
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "PORT",
			Message: fmt.Sprintf("port must be between 0 and 65535, got %d", c.Server.Port),
		})
	}

	// Log level validation
	validLogLevels := []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}
	if !contains(validLogLevels, strings.ToLower(c.Logger.Level)) {
		errors = append(errors, ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("invalid log level %q, must be one of: %v", c.Logger.Level, validLogLevels),
		})
	}

	// Environment validation
	validEnvs := []string{"production", "development", "staging", "test"}
	if !contains(validEnvs, c.Logger.Environment) {
		errors = append(errors, ValidationError{
			Field:   "APP_ENV",
			Message: fmt.Sprintf("invalid environment %q, must be one of: %v", c.Logger.Environment, validEnvs),
		})
	}

	// Engine overrides must stay in range when set
	if c.Engine.OverallThreshold < 0 || c.Engine.OverallThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "DEDUP_OVERALL_THRESHOLD",
			Message: fmt.Sprintf("threshold must be between 0 and 1, got %v", c.Engine.OverallThreshold),
		})
	}
	if c.Engine.BatchSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "DEDUP_BATCH_SIZE",
			Message: fmt.Sprintf("batch size must not be negative, got %d", c.Engine.BatchSize),
		})
	}
	if c.Engine.MaxCandidates < 0 {
		errors = append(errors, ValidationError{
			Field:   "DEDUP_MAX_CANDIDATES",
			Message: fmt.Sprintf("max candidates must not be negative, got %d", c.Engine.MaxCandidates),
		})
	}

	// Dependency validation: cron spec required if scheduler enabled
	if c.Scheduler.Enabled && c.Scheduler.CacheClearSpec == "" {
		errors = append(errors, ValidationError{
			Field:   "CACHE_CLEAR_CRON",
			Message: "cron spec is required when MAINTENANCE_ENABLED is true",
		})
	}

	// CORS validation: FrontendURL should be set if not allowing all
	if !c.CORS.AllowAll && c.CORS.FrontendURL == "" {
		errors = append(errors, ValidationError{
			Field:   "FRONTEND_URL",
			Message: "frontend URL should be set when CORS_ALLOW_ALL is false",
		})
	}

	if len(errors) > 0 {
		return errors
	}

	return nil
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Logger.Environment == "production"
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Logger.Environment == "development"
}

// GetBindAddress returns the server bind address in format "host:port"
func (c *Config) GetBindAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper functions for parsing environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// TestConfig creates a test configuration with sensible defaults for testing
func TestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultServerHost,
			Port:            0, // Random port for tests
			ShutdownTimeout: 5 * time.Second,
		},
		Logger: LoggerConfig{
			Level:       "debug",
			Environment: "test",
		},
		CORS: CORSConfig{
			AllowAll:    true,
			FrontendURL: "http://localhost:3000",
		},
		Engine: EngineConfig{
			EnableCaching: true,
		},
		Scheduler: SchedulerConfig{
			Enabled:        false,
			CacheClearSpec: DefaultCacheClearSpec,
		},
	}
}
