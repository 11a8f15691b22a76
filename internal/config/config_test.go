package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearEnv pins every override variable so ambient shell configuration
// cannot leak into tests that call Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"TUTORCTL_PROVIDER", "TUTORCTL_MODEL", "TUTORCTL_LANG",
		"LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL",
		"ANTHROPIC_API_KEY", "TAVILY_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q, want %q", cfg.Provider, "openai")
	}
	if cfg.Language != LangEnglish {
		t.Errorf("Language = %q, want %q", cfg.Language, LangEnglish)
	}
	if cfg.Context.ReferenceBudget != 12000 {
		t.Errorf("ReferenceBudget = %d, want 12000", cfg.Context.ReferenceBudget)
	}
	if cfg.Context.HistoryWindow != 6 {
		t.Errorf("HistoryWindow = %d, want 6", cfg.Context.HistoryWindow)
	}
	if cfg.Context.SearchWithReference {
		t.Error("SearchWithReference should default to false")
	}
	if cfg.Store.Backend != "snapshot" {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, "snapshot")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
provider: anthropic
language: ar
context:
  reference_budget: 4000
  history_window: 10
  search_with_reference: true
store:
  backend: sqlite
providers:
  anthropic:
    api_key: test-key
    model: claude-sonnet-4-20250514
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider != "anthropic" {
		t.Errorf("Provider = %q, want %q", cfg.Provider, "anthropic")
	}
	if cfg.Language != LangArabic {
		t.Errorf("Language = %q, want %q", cfg.Language, LangArabic)
	}
	if cfg.Context.ReferenceBudget != 4000 {
		t.Errorf("ReferenceBudget = %d, want 4000", cfg.Context.ReferenceBudget)
	}
	if !cfg.Context.SearchWithReference {
		t.Error("SearchWithReference = false, want true")
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, "sqlite")
	}
	pc := cfg.GetProviderConfig("anthropic")
	if pc.APIKey != "test-key" {
		t.Errorf("APIKey = %q, want %q", pc.APIKey, "test-key")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("provider: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load should fail on malformed yaml")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q, want default %q", cfg.Provider, "openai")
	}
}

func TestNormalizeClampsBadValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
language: fr
context:
  reference_budget: -1
  history_window: 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Language != LangEnglish {
		t.Errorf("unrecognized language should fall back to en, got %q", cfg.Language)
	}
	if cfg.Context.ReferenceBudget != 12000 {
		t.Errorf("ReferenceBudget = %d, want clamped default 12000", cfg.Context.ReferenceBudget)
	}
	if cfg.Context.HistoryWindow != 6 {
		t.Errorf("HistoryWindow = %d, want clamped default 6", cfg.Context.HistoryWindow)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TUTORCTL_PROVIDER", "deepseek")
	t.Setenv("TUTORCTL_LANG", "ar")
	t.Setenv("LLM_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "deepseek" {
		t.Errorf("Provider = %q, want %q", cfg.Provider, "deepseek")
	}
	if cfg.Language != LangArabic {
		t.Errorf("Language = %q, want %q", cfg.Language, LangArabic)
	}
	if cfg.GetProviderConfig("deepseek").APIKey != "env-key" {
		t.Errorf("APIKey = %q, want %q", cfg.GetProviderConfig("deepseek").APIKey, "env-key")
	}
}
