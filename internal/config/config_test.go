package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestDefaults verifies built-in values are used when the file does not exist.
func TestDefaults(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("PA_SERVER_PORT", "")

	s, err := Open(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := s.GetString("defaults.model", ""); got != "mistral-small-latest" {
		t.Errorf("defaults.model = %q, want %q", got, "mistral-small-latest")
	}
	if got := s.GetString("defaults.provider", ""); got != "api" {
		t.Errorf("defaults.provider = %q, want %q", got, "api")
	}

	cfg := s.Settings()
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Mistral.BaseURL != "https://api.mistral.ai/v1" {
		t.Errorf("Mistral.BaseURL = %q", cfg.Mistral.BaseURL)
	}
	if cfg.Mistral.Timeout != 30*time.Second {
		t.Errorf("Mistral.Timeout = %v, want 30s", cfg.Mistral.Timeout)
	}
	if cfg.Mistral.APIKey != "" {
		t.Errorf("Mistral.APIKey = %q, want empty", cfg.Mistral.APIKey)
	}
	if diff := cmp.Diff([]string{"*"}, cfg.CORS.AllowedOrigins); diff != "" {
		t.Errorf("CORS.AllowedOrigins mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_MissingPathReturnsDefault(t *testing.T) {
	s := NewMemory(map[string]any{
		"mistral": map[string]any{"base_url": "http://x"},
	})

	if got := s.Get("mistral.nope", "fallback"); got != "fallback" {
		t.Errorf("Get(missing) = %v, want fallback", got)
	}
	// Walking through a scalar must not panic.
	if got := s.Get("mistral.base_url.deeper", 42); got != 42 {
		t.Errorf("Get(through scalar) = %v, want 42", got)
	}
	if got := s.Get("", "empty"); got != "empty" {
		t.Errorf("Get(empty key) = %v, want empty", got)
	}
}

func TestGetInt_CoercesStrings(t *testing.T) {
	s := NewMemory(map[string]any{
		"server": map[string]any{"port": "9001", "bad": "abc"},
	})

	if got := s.GetInt("server.port", 0); got != 9001 {
		t.Errorf("GetInt = %d, want 9001", got)
	}
	if got := s.GetInt("server.bad", 7); got != 7 {
		t.Errorf("GetInt(bad) = %d, want default 7", got)
	}
}

func TestSet_CreatesNestedAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Set("defaults.model", "mistral-medium-latest"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("brand.new.key", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reloaded.GetString("defaults.model", ""); got != "mistral-medium-latest" {
		t.Errorf("defaults.model after reload = %q", got)
	}
	if got := reloaded.GetString("brand.new.key", ""); got != "v" {
		t.Errorf("brand.new.key after reload = %q", got)
	}
	// Defaults loaded before the first Set are written out too.
	if got := reloaded.GetString("mistral.base_url", ""); got != "https://api.mistral.ai/v1" {
		t.Errorf("mistral.base_url after reload = %q", got)
	}
}

func TestSet_ThroughScalarFails(t *testing.T) {
	s := NewMemory(map[string]any{"mistral": "oops"})

	err := s.Set("mistral.api_key", "k")
	if err == nil {
		t.Fatal("expected error when an intermediate key is not a mapping")
	}
	if !strings.Contains(err.Error(), "not a mapping") {
		t.Errorf("error = %q", err)
	}
}

func TestOpen_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "models: [unclosed")
	if _, err := Open(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOpen_EmptyFile(t *testing.T) {
	path := writeTempConfig(t, "")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.GetString("defaults.model", "fallback"); got != "fallback" {
		t.Errorf("empty file should not carry defaults, got %q", got)
	}
	if got := s.Settings().Defaults.Model; got != DefaultModel {
		t.Errorf("Settings().Defaults.Model = %q, want %q", got, DefaultModel)
	}
}

// TestYAMLParsing verifies that all fields are correctly read from a YAML file.
func TestYAMLParsing(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")
	content := `
server:
  host: 127.0.0.1
  port: 5000
log:
  level: debug
defaults:
  provider: api
  model: mistral-large-latest
mistral:
  api_key: file-key
  base_url: http://custom/v1/
  timeout: 2.5
`
	s, err := Open(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	cfg := s.Settings()
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 5000 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Defaults.Model != "mistral-large-latest" {
		t.Errorf("Defaults.Model = %q", cfg.Defaults.Model)
	}
	if cfg.Mistral.APIKey != "file-key" {
		t.Errorf("Mistral.APIKey = %q", cfg.Mistral.APIKey)
	}
	if cfg.Mistral.BaseURL != "http://custom/v1" {
		t.Errorf("Mistral.BaseURL = %q, want trailing slash trimmed", cfg.Mistral.BaseURL)
	}
	if cfg.Mistral.Timeout != 2500*time.Millisecond {
		t.Errorf("Mistral.Timeout = %v", cfg.Mistral.Timeout)
	}
}

// TestEnvOverride verifies that environment variables override file values.
func TestEnvOverride(t *testing.T) {
	s := NewMemory(map[string]any{
		"server": map[string]any{"port": 5000},
	})
	t.Setenv("PA_SERVER_PORT", "6000")
	t.Setenv("PA_LOG_LEVEL", "debug")

	cfg := s.Settings()
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	// The override is not written into the store.
	if got := s.GetInt("server.port", 0); got != 5000 {
		t.Errorf("store server.port = %d, want 5000", got)
	}
}

func TestTracingExporter(t *testing.T) {
	t.Setenv("PA_TRACING_EXPORTER", "")
	if got := NewMemory(nil).Settings().Tracing.Exporter; got != "none" {
		t.Errorf("default Tracing.Exporter = %q, want none", got)
	}

	s := NewMemory(map[string]any{"tracing": map[string]any{"exporter": "none"}})
	t.Setenv("PA_TRACING_EXPORTER", "STDOUT")
	if got := s.Settings().Tracing.Exporter; got != "stdout" {
		t.Errorf("Tracing.Exporter = %q, want stdout", got)
	}
}

func TestEnvOverride_InvalidIntKeepsFileValue(t *testing.T) {
	s := NewMemory(map[string]any{
		"server": map[string]any{"port": 5000},
	})
	t.Setenv("PA_SERVER_PORT", "not-a-port")

	if got := s.Settings().Server.Port; got != 5000 {
		t.Errorf("Server.Port = %d, want 5000", got)
	}
}

func TestAPIKey_EnvOnlyWhenConfigEmpty(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "env-key")

	withKey := NewMemory(map[string]any{
		"mistral": map[string]any{"api_key": "file-key"},
	})
	if got := withKey.Mistral().APIKey; got != "file-key" {
		t.Errorf("APIKey = %q, want file-key (config wins when set)", got)
	}

	empty := NewMemory(map[string]any{
		"mistral": map[string]any{"api_key": ""},
	})
	if got := empty.Mistral().APIKey; got != "env-key" {
		t.Errorf("APIKey = %q, want env-key", got)
	}
}

func TestCatalog(t *testing.T) {
	s := NewMemory(map[string]any{
		"models": map[string]any{
			"api": map[string]any{
				"available": []any{
					map[string]any{"name": "mistral-small-latest", "id": "mistral-small"},
					map[string]any{"id": "nameless"},
					"garbage",
					map[string]any{"name": "open-mixtral", "description": "MoE"},
				},
			},
		},
	})

	want := []ModelEntry{
		{Name: "mistral-small-latest", ID: "mistral-small"},
		{Name: "open-mixtral", Description: "MoE"},
	}
	if diff := cmp.Diff(want, s.Catalog()); diff != "" {
		t.Errorf("Catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_FromYAMLFile(t *testing.T) {
	path := writeTempConfig(t, `
models:
  api:
    available:
      - name: a
        id: a-id
      - name: b
`)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := s.Catalog()
	if len(got) != 2 || got[0].Name != "a" || got[0].ID != "a-id" || got[1].Name != "b" {
		t.Errorf("Catalog = %+v", got)
	}
}

func TestSetKey_TypedAndMasked(t *testing.T) {
	s := NewMemory(nil)
	t.Setenv("MISTRAL_API_KEY", "")

	if err := SetKey(s, "server.port", "9100"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if v := s.Get("server.port", nil); v != 9100 {
		t.Errorf("server.port stored as %#v, want int 9100", v)
	}
	if err := SetKey(s, "server.port", "nope"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := SetKey(s, "mistral.api_key", "sk-abcdef1234"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := SetKey(s, "models.api.available", "x"); err == nil {
		t.Error("expected error when overwriting the catalog list")
	}

	var apiKey string
	for _, k := range ShowAll(s) {
		if k.Key == "mistral.api_key" {
			apiKey = k.Value
		}
	}
	if apiKey != "****1234" {
		t.Errorf("masked api key = %q, want ****1234", apiKey)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PA_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PA_TEST_DOTENV", "")
	os.Unsetenv("PA_TEST_DOTENV")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("PA_TEST_DOTENV"); got != "from-file" {
		t.Errorf("PA_TEST_DOTENV = %q", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file should not error, got %v", err)
	}
}
