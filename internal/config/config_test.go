package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_PORT", "SESSION_STORE", "MAX_TOOL_ITERATIONS", "TOOL_TIMEOUT", "GEMINI_MODEL", "LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.HTTPPort)
	}
	if cfg.SessionStore != StoreMemory {
		t.Errorf("expected memory store, got %q", cfg.SessionStore)
	}
	if cfg.MaxToolIterations != 15 {
		t.Errorf("expected 15 tool iterations, got %d", cfg.MaxToolIterations)
	}
	if cfg.ToolTimeout != 15*time.Second {
		t.Errorf("expected 15s tool timeout, got %s", cfg.ToolTimeout)
	}
	if cfg.Debug() {
		t.Error("expected INFO log level by default")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SESSION_STORE", "SQLite")
	t.Setenv("DATABASE_URL", "/tmp/x.db")
	t.Setenv("TOOL_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_TOOL_ITERATIONS", "not-a-number")
	t.Setenv("SECURE_COOKIES", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "9090" || cfg.SessionStore != StoreSQLite || cfg.DatabaseURL != "/tmp/x.db" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.ToolTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %s", cfg.ToolTimeout)
	}
	if !cfg.Debug() {
		t.Error("expected debug mode")
	}
	if cfg.MaxToolIterations != 15 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.MaxToolIterations)
	}
	if !cfg.SecureCookies {
		t.Error("expected secure cookies")
	}
}

func TestValidate_Rejects(t *testing.T) {
	base := Config{HTTPPort: "8080", GeminiModel: "m", SessionStore: StoreMemory, MaxToolIterations: 1, SearchMaxResults: 1, ToolTimeout: time.Second}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	cases := map[string]func(c *Config){
		"empty port":    func(c *Config) { c.HTTPPort = "" },
		"unknown store": func(c *Config) { c.SessionStore = "redis" },
		"sqlite no db":  func(c *Config) { c.SessionStore = StoreSQLite; c.DatabaseURL = "" },
		"zero iters":    func(c *Config) { c.MaxToolIterations = 0 },
		"zero timeout":  func(c *Config) { c.ToolTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadPersonas_Embedded(t *testing.T) {
	personas, err := LoadPersonas("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := make(map[string]Persona)
	for _, p := range personas {
		ids[p.ID] = p
	}
	movies, ok := ids["movies"]
	if !ok {
		t.Fatal("expected embedded movies persona")
	}
	if movies.AssistantAvatar != "🎬" {
		t.Errorf("expected movie avatar, got %q", movies.AssistantAvatar)
	}
	if !strings.Contains(movies.SystemPrompt, "Cinema Expert") {
		t.Errorf("unexpected movie system prompt: %q", movies.SystemPrompt)
	}
	if len(movies.Tools) != 2 {
		t.Errorf("expected two tools, got %v", movies.Tools)
	}
	ask, ok := ids["ask"]
	if !ok {
		t.Fatal("expected embedded ask persona")
	}
	if strings.Join(ask.Tools, ",") != "duckduckgo_search,wikipedia,web_fetch" {
		t.Errorf("expected ask to read pages as well as search, got %v", ask.Tools)
	}
}

func TestLoadPersonas_FileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	doc := "personas:\n  - id: books\n    system_prompt: You recommend books.\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write personas: %v", err)
	}

	personas, err := LoadPersonas(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(personas) != 1 {
		t.Fatalf("expected 1 persona, got %d", len(personas))
	}
	p := personas[0]
	if p.Title != "books" || p.Heading != "books" || p.Spinner == "" || p.AssistantAvatar == "" {
		t.Errorf("defaults not applied: %+v", p)
	}
}

func TestParsePersonas_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":          "personas: []",
		"bad yaml":       "personas: [",
		"bad id":         "personas:\n  - id: Bad/Id\n    system_prompt: x\n",
		"duplicate":      "personas:\n  - id: a\n    system_prompt: x\n  - id: a\n    system_prompt: y\n",
		"missing prompt": "personas:\n  - id: a\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePersonas([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
