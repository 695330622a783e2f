package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type Config struct {
	HTTPPort          string
	LogLevel          string
	GeminiModel       string
	GeminiAPIKey      string // CLI only; the server takes keys from sessions
	StylesheetPath    string
	PersonasPath      string
	SessionStore      string
	DatabaseURL       string
	MaxToolIterations int
	WikipediaLang     string
	ToolTimeout       time.Duration
	SearchMaxResults  int
	SecureCookies     bool
}

var AppConfig Config

// LoadConfig fills AppConfig from the environment (and .env if present).
func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	AppConfig = cfg
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		StylesheetPath:    getEnv("STYLESHEET_PATH", "style.css"),
		PersonasPath:      getEnv("PERSONAS_PATH", ""),
		SessionStore:      strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
		DatabaseURL:       getEnv("DATABASE_URL", "toolchat.db"),
		MaxToolIterations: getEnvAsInt("MAX_TOOL_ITERATIONS", 15),
		WikipediaLang:     getEnv("WIKIPEDIA_LANG", "en"),
		ToolTimeout:       getEnvAsDuration("TOOL_TIMEOUT", 15*time.Second),
		SearchMaxResults:  getEnvAsInt("SEARCH_MAX_RESULTS", 5),
		SecureCookies:     getEnvAsBool("SECURE_COOKIES", false),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields the server cannot start without.
func (c Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}
	if c.GeminiModel == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	switch c.SessionStore {
	case StoreMemory:
	case StoreSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_STORE=%s", StoreSQLite)
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q (want %q or %q)", c.SessionStore, StoreMemory, StoreSQLite)
	}
	if c.MaxToolIterations <= 0 {
		return fmt.Errorf("MAX_TOOL_ITERATIONS must be > 0")
	}
	if c.SearchMaxResults <= 0 {
		return fmt.Errorf("SEARCH_MAX_RESULTS must be > 0")
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("TOOL_TIMEOUT must be > 0")
	}
	return nil
}

func (c Config) Debug() bool {
	return c.LogLevel == "DEBUG"
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(strings.TrimSpace(valueStr)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(strings.TrimSpace(valueStr)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(strings.TrimSpace(valueStr)); err == nil {
		return value
	}
	return defaultValue
}
