// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Memory backend identifiers.
const (
	MemoryBackendPostgres = "postgres"
	MemoryBackendSQLite   = "sqlite"
	MemoryBackendInMemory = "memory"
)

// LLM provider identifiers.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// Config holds all runtime settings.
type Config struct {
	// Server
	Port        string
	FrontendURL string

	// Analytics database (read-only allowlist queries)
	DBURL     string
	DBTimeout time.Duration

	// Conversation memory
	MemoryBackend string
	MemoryDBURL   string
	SQLitePath    string
	MemoryTTL     time.Duration

	// LLM
	LLMProvider     string
	GeminiAPIKey    string
	GeminiModel     string
	OpenRouterKey   string
	OpenRouterModel string
	LLMTimeout      time.Duration

	// Feature flags
	UseLLMRouter       bool
	UseLLMPlanner      bool
	PresentationUseLLM bool
	DemoMode           bool
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8000"),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),

		DBURL:     os.Getenv("DB_URL"),
		DBTimeout: secondsEnv("DB_TIMEOUT_SECONDS", 30),

		MemoryBackend: getEnvOrDefault("MEMORY_BACKEND", MemoryBackendInMemory),
		MemoryDBURL:   os.Getenv("MEMORY_DB_URL"),
		SQLitePath:    getEnvOrDefault("SQLITE_PATH", "./data/mirador.db"),
		MemoryTTL:     time.Duration(intEnv("MEMORY_TTL_HOURS", 24*7)) * time.Hour,

		LLMProvider:     getEnvOrDefault("LLM_PROVIDER", ProviderGemini),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenRouterKey:   os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel: getEnvOrDefault("OPENROUTER_MODEL", "google/gemini-2.0-flash-001"),
		LLMTimeout:      secondsEnv("LLM_TIMEOUT_SECONDS", 60),

		UseLLMRouter:       boolEnv("USE_LLM_ROUTER", true),
		UseLLMPlanner:      boolEnv("USE_LLM_PLANNER", false),
		PresentationUseLLM: boolEnv("PRESENTATION_USE_LLM", false),
		DemoMode:           boolEnv("DEMO_MODE", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.MemoryBackend {
	case MemoryBackendPostgres, MemoryBackendSQLite, MemoryBackendInMemory:
	default:
		return fmt.Errorf("invalid MEMORY_BACKEND %q: must be one of postgres, sqlite, memory", c.MemoryBackend)
	}

	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenRouter:
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q: must be gemini or openrouter", c.LLMProvider)
	}

	if c.MemoryBackend == MemoryBackendPostgres && c.MemoryDSN() == "" {
		return fmt.Errorf("MEMORY_BACKEND=postgres requires MEMORY_DB_URL or DB_URL")
	}

	if !c.DemoMode && c.DBURL == "" {
		return fmt.Errorf("DB_URL is required unless DEMO_MODE is enabled")
	}

	return nil
}

// MemoryDSN returns the connection string for the postgres memory backend,
// falling back to the analytics DB when no dedicated URL is set.
func (c *Config) MemoryDSN() string {
	if c.MemoryDBURL != "" {
		return c.MemoryDBURL
	}
	return c.DBURL
}

// LLMConfigured reports whether the selected provider has credentials.
func (c *Config) LLMConfigured() bool {
	switch c.LLMProvider {
	case ProviderOpenRouter:
		return c.OpenRouterKey != ""
	default:
		return c.GeminiAPIKey != ""
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func intEnv(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func secondsEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(intEnv(key, defaultSeconds)) * time.Second
}

func boolEnv(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if val == "" {
		return defaultVal
	}
	switch val {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultVal
}
