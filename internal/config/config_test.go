package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("GENERATOR_BACKEND", "mock")
	t.Setenv("PAGE_ANALYZER", "mock")
	t.Setenv("MOCK_MIN_DELAY_MS", "250")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MockMinDelay != 250*time.Millisecond {
		t.Errorf("MockMinDelay = %v, want 250ms", cfg.MockMinDelay)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q, want DEBUG", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	base := Config{StoreBackend: StoreSQLite, GeneratorBackend: GeneratorMock, PageAnalyzer: AnalyzerMock}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown store", func(c *Config) { c.StoreBackend = "mongo" }, true},
		{"postgres without url", func(c *Config) { c.StoreBackend = StorePostgres }, true},
		{"postgres with url", func(c *Config) { c.StoreBackend = StorePostgres; c.PostgresURL = "postgres://x" }, false},
		{"gemini without key", func(c *Config) { c.GeneratorBackend = GeneratorGemini }, true},
		{"openai with key", func(c *Config) { c.GeneratorBackend = GeneratorOpenAI; c.OpenAIAPIKey = "k" }, false},
		{"unknown analyzer", func(c *Config) { c.PageAnalyzer = "browser" }, true},
		{"negative delay", func(c *Config) { c.MockJitter = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireJWTSecret(t *testing.T) {
	if err := (Config{}).RequireJWTSecret(); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if err := (Config{JWTSecret: "s"}).RequireJWTSecret(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
