package config

import (
	"os"
	"strings"
	"testing"
)

// WithEnv is a test helper that sets environment variables for the duration of a test
func WithEnv(t *testing.T, key, value string) {
	t.Helper()
	original := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if original == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, original)
		}
	})
}

func TestConfig_Load_ValidConfig(t *testing.T) {
	WithEnv(t, "APP_ENV", "development")
	WithEnv(t, "LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Logger.Environment != "development" {
		t.Errorf("Expected APP_ENV=development, got %s", cfg.Logger.Environment)
	}

	if cfg.Logger.Level != "debug" {
		t.Errorf("Expected LOG_LEVEL=debug, got %s", cfg.Logger.Level)
	}
}

func TestConfig_Load_Defaults(t *testing.T) {
	WithEnv(t, "APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Server.Host != DefaultServerHost {
		t.Errorf("Expected default server host %q, got %q", DefaultServerHost, cfg.Server.Host)
	}

	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Expected default server port %d, got %d", DefaultServerPort, cfg.Server.Port)
	}

	if cfg.Logger.Level != DefaultLogLevel {
		t.Errorf("Expected default log level %q, got %q", DefaultLogLevel, cfg.Logger.Level)
	}

	if !cfg.Engine.EnableCaching {
		t.Error("Expected caching enabled by default")
	}

	if cfg.Scheduler.CacheClearSpec != DefaultCacheClearSpec {
		t.Errorf("Expected default cache clear spec %q, got %q", DefaultCacheClearSpec, cfg.Scheduler.CacheClearSpec)
	}
}

func TestConfig_Validate_InvalidPort(t *testing.T) {
	WithEnv(t, "PORT", "99999")
	WithEnv(t, "APP_ENV", "development")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected error for invalid port")
	}

	if verr, ok := err.(ValidationErrors); ok {
		found := false
		for _, e := range verr {
			if e.Field == "PORT" {
				found = true
				break
			}
		}
		if !found {
			t.Error("Expected validation error for PORT")
		}
	} else {
		t.Errorf("Expected ValidationErrors, got %T", err)
	}
}

func TestConfig_Validate_InvalidLogLevel(t *testing.T) {
	WithEnv(t, "LOG_LEVEL", "invalid")
	WithEnv(t, "APP_ENV", "development")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected error for invalid log level")
	}

	if verr, ok := err.(ValidationErrors); ok {
		found := false
		for _, e := range verr {
			if e.Field == "LOG_LEVEL" {
				found = true
				break
			}
		}
		if !found {
			t.Error("Expected validation error for LOG_LEVEL")
		}
	}
}

func TestConfig_Validate_InvalidThreshold(t *testing.T) {
	WithEnv(t, "APP_ENV", "development")
	WithEnv(t, "DEDUP_OVERALL_THRESHOLD", "1.5")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected error for out-of-range threshold")
	}

	if verr, ok := err.(ValidationErrors); ok {
		found := false
		for _, e := range verr {
			if e.Field == "DEDUP_OVERALL_THRESHOLD" {
				found = true
				break
			}
		}
		if !found {
			t.Error("Expected validation error for DEDUP_OVERALL_THRESHOLD")
		}
	}
}

func TestConfig_Validate_SchedulerDependency(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Host: DefaultServerHost, Port: DefaultServerPort},
		Logger:    LoggerConfig{Level: "info", Environment: "development"},
		CORS:      CORSConfig{AllowAll: true},
		Scheduler: SchedulerConfig{Enabled: true, CacheClearSpec: ""},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error when CACHE_CLEAR_CRON is empty but scheduler is enabled")
	}

	if verr, ok := err.(ValidationErrors); ok {
		found := false
		for _, e := range verr {
			if e.Field == "CACHE_CLEAR_CRON" {
				found = true
				break
			}
		}
		if !found {
			t.Error("Expected validation error for CACHE_CLEAR_CRON")
		}
	}
}

func TestConfig_TypeConversions(t *testing.T) {
	WithEnv(t, "APP_ENV", "development")
	WithEnv(t, "PORT", "3000")
	WithEnv(t, "CORS_ALLOW_ALL", "true")
	WithEnv(t, "DEDUP_BATCH_SIZE", "50")
	WithEnv(t, "DEDUP_OVERALL_THRESHOLD", "0.85")
	WithEnv(t, "DEDUP_PARALLEL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Test int conversion
	if cfg.Server.Port != 3000 {
		t.Errorf("Expected PORT=3000 (int), got %d", cfg.Server.Port)
	}

	if cfg.Engine.BatchSize != 50 {
		t.Errorf("Expected DEDUP_BATCH_SIZE=50 (int), got %d", cfg.Engine.BatchSize)
	}

	// Test float conversion
	if cfg.Engine.OverallThreshold != 0.85 {
		t.Errorf("Expected DEDUP_OVERALL_THRESHOLD=0.85 (float), got %v", cfg.Engine.OverallThreshold)
	}

	// Test bool conversions
	if !cfg.CORS.AllowAll {
		t.Error("Expected CORS_ALLOW_ALL=true (bool), got false")
	}

	if !cfg.Engine.ParallelProcessing {
		t.Error("Expected DEDUP_PARALLEL=true (bool), got false")
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
		{"test", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &Config{
				Logger: LoggerConfig{
					Environment: tt.env,
				},
			}
			if got := cfg.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_GetBindAddress(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"127.0.0.1", 8080, "127.0.0.1:8080"},
		{"0.0.0.0", 3000, "0.0.0.0:3000"},
		{"localhost", 9000, "localhost:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{
					Host: tt.host,
					Port: tt.port,
				},
			}
			if got := cfg.GetBindAddress(); got != tt.want {
				t.Errorf("GetBindAddress() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_ValidationErrorFormat(t *testing.T) {
	WithEnv(t, "APP_ENV", "invalid")
	WithEnv(t, "LOG_LEVEL", "invalid")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected validation errors")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "configuration validation failed:") {
		t.Error("Expected error message to start with 'configuration validation failed:'")
	}

	if !strings.Contains(errStr, "APP_ENV") {
		t.Error("Expected error message to contain APP_ENV")
	}
	if !strings.Contains(errStr, "LOG_LEVEL") {
		t.Error("Expected error message to contain LOG_LEVEL")
	}
}

func TestConfig_TestConfigIsValid(t *testing.T) {
	if err := TestConfig().Validate(); err != nil {
		t.Errorf("TestConfig() should validate cleanly, got %v", err)
	}
}
