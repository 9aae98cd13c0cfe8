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
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	GeneratorMock   = "mock"
	GeneratorGemini = "gemini"
	GeneratorOpenAI = "openai"

	AnalyzerMock = "mock"
	AnalyzerHTTP = "http"
)

type Config struct {
	HTTPPort  string
	LogLevel  string
	JWTSecret string

	StoreBackend string
	DatabaseURL  string // SQLite file path
	PostgresURL  string

	GeneratorBackend string
	GeminiAPIKey     string
	GeminiModel      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	MockMinDelay     time.Duration
	MockJitter       time.Duration

	PageAnalyzer     string
	PageFetchTimeout time.Duration

	RateLimitRPS   int
	RateLimitBurst int
	SessionIdleTTL time.Duration

	TUIUser string
}

var AppConfig Config

// LoadConfig populates AppConfig from the environment (and .env when present).
// Invalid configuration is fatal.
func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	AppConfig = cfg
}

// Load reads the configuration from the current environment without touching AppConfig.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:  getEnv("HTTP_PORT", "8080"),
		LogLevel:  strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		JWTSecret: getEnv("JWT_SECRET", ""),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreSQLite)),
		DatabaseURL:  getEnv("DATABASE_URL", "chat_agent.db"),
		PostgresURL:  getEnv("POSTGRES_URL", ""),

		GeneratorBackend: strings.ToLower(getEnv("GENERATOR_BACKEND", GeneratorMock)),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		MockMinDelay:     time.Duration(getEnvAsInt("MOCK_MIN_DELAY_MS", 1000)) * time.Millisecond,
		MockJitter:       time.Duration(getEnvAsInt("MOCK_JITTER_MS", 2000)) * time.Millisecond,

		PageAnalyzer:     strings.ToLower(getEnv("PAGE_ANALYZER", AnalyzerMock)),
		PageFetchTimeout: time.Duration(getEnvAsInt("PAGE_FETCH_TIMEOUT_SEC", 10)) * time.Second,

		RateLimitRPS:   getEnvAsInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 10),
		SessionIdleTTL: time.Duration(getEnvAsInt("SESSION_IDLE_TTL_MIN", 60)) * time.Minute,

		TUIUser: getEnv("TUI_USER", "local"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required for the postgres store backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.GeneratorBackend {
	case GeneratorMock:
	case GeneratorGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini generator backend")
		}
	case GeneratorOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai generator backend")
		}
	default:
		return fmt.Errorf("unknown GENERATOR_BACKEND %q", c.GeneratorBackend)
	}

	switch c.PageAnalyzer {
	case AnalyzerMock, AnalyzerHTTP:
	default:
		return fmt.Errorf("unknown PAGE_ANALYZER %q", c.PageAnalyzer)
	}

	if c.MockMinDelay < 0 || c.MockJitter < 0 {
		return fmt.Errorf("mock delays must not be negative")
	}
	return nil
}

// RequireJWTSecret is checked by the HTTP server only; the terminal client has no tokens.
func (c Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
