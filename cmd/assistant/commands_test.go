package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

// newTestServer answers "METHOD /path" keys with canned JSON. Keys may be
// prefixed with a status code, e.g. "400 POST /api/models/switch".
func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}
		if resp, ok := responses["400 "+key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not Found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

// execute runs the root command against the test server and captures stdout.
func execute(t *testing.T, ts *testServer, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(""))
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		serverURL = ""
		configPath = ""
	}()

	full := []string{"--no-color"}
	if ts != nil {
		full = append(full, "--server", ts.server.URL)
	}
	rootCmd.SetArgs(append(full, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestModelsList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/models/available": `{"api":[
			{"name":"mistral-small-latest","provider":"api","type":"api","available":true,"current":true},
			{"name":"mistral-medium-latest","provider":"api","type":"api","available":false,"current":false}
		],"current":{"provider":"api","name":"mistral-small-latest"},"system":{}}`,
	})

	out, err := execute(t, ts, "models", "list")
	if err != nil {
		t.Fatalf("models list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "* mistral-small-latest") || !strings.HasSuffix(lines[0], "available") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "mistral-medium-latest") || !strings.HasSuffix(lines[1], "unavailable") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestModelsSwitch(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/models/switch": `{"success":true,"message":"Модель переключена на mistral-medium-latest","current_model":{}}`,
	})

	if _, err := execute(t, ts, "models", "switch", "mistral-medium-latest"); err != nil {
		t.Fatalf("models switch: %v", err)
	}
	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Body != `{"model_name":"mistral-medium-latest"}` {
		t.Errorf("body = %s", ts.requests[0].Body)
	}
}

func TestModelsSwitch_RejectedShowsDetail(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"400 POST /api/models/switch": `{"detail":"Не удалось переключиться на модель nope"}`,
	})

	_, err := execute(t, ts, "models", "switch", "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "server returned 400: Не удалось переключиться на модель nope" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestModelsSwitch_MissingArg(t *testing.T) {
	if _, err := execute(t, nil, "models", "switch"); err == nil {
		t.Fatal("expected error for missing model name")
	}
}

func TestModelsCurrent(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/models/current": `{"provider":"api","name":"mistral-small-latest","info":{"name":"mistral-small-latest","api_key_set":true},"available":true}`,
	})

	if _, err := execute(t, ts, "models", "current"); err != nil {
		t.Fatalf("models current: %v", err)
	}
	if ts.requests[0].Path != "/api/models/current" {
		t.Errorf("path = %s", ts.requests[0].Path)
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"healthy","timestamp":"t","current_model":{"provider":"api","name":"m","available":true},"system":{"cpu_cores":8,"total_ram_gb":16}}`,
	})

	if _, err := execute(t, ts, "status"); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestStatus_ServerDown(t *testing.T) {
	client := &apiClient{baseURL: "http://127.0.0.1:1", httpClient: http.DefaultClient}

	err := showStatus(context.Background(), client)
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestPrompt_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "today.json")
	if err := os.WriteFile(path, []byte(`{"date":"2025-03-14","tasks":[{"title":"Спорт","done":true}]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, nil, "prompt", path)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if !strings.Contains(out, "Дата: 2025-03-14") || !strings.Contains(out, "- ✅ Выполнено [средний]: Спорт") {
		t.Errorf("output = %q", out)
	}
}

func TestPrompt_Stdin(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(`{"date":"2025-01-01"}`))
	rootCmd.SetArgs([]string{"--no-color", "prompt"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if !strings.Contains(out.String(), "Нет задач") {
		t.Errorf("output = %q", out.String())
	}
}

func TestPrompt_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`[1,2]`), 0o600)

	_, err := execute(t, nil, "prompt", path)
	if err == nil || !strings.Contains(err.Error(), "decoding context") {
		t.Errorf("err = %v", err)
	}
}

func TestConfigSetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := execute(t, nil, "--config", path, "config", "set", "server.port", "9090"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, err := execute(t, nil, "--config", path, "config", "get", "server.port")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(out) != "9090" {
		t.Errorf("config get = %q", out)
	}

	store, err := config.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := store.GetInt("server.port", 0); got != 9090 {
		t.Errorf("persisted server.port = %d", got)
	}
	if got := store.GetString("defaults.model", ""); got != "mistral-small-latest" {
		t.Errorf("defaults lost on first write, defaults.model = %q", got)
	}
}

func TestConfigSet_InvalidValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := execute(t, nil, "--config", path, "config", "set", "server.port", "abc"); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestConfigGet_Mapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("mistral:\n  base_url: http://local\n  timeout: 5\n"), 0o600)

	out, err := execute(t, nil, "--config", path, "config", "get", "mistral")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if !strings.Contains(out, "base_url: http://local") || !strings.Contains(out, "timeout: 5") {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, nil, "--config", path, "config", "get", "nope.missing"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestConfigShow_MasksKey(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("mistral:\n  api_key: sk-abcdef123456\n"), 0o600)

	out, err := execute(t, nil, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-abcdef123456") {
		t.Error("api key printed in clear")
	}
	if !strings.Contains(out, "****3456") {
		t.Errorf("masked key missing: %q", out)
	}
}

func TestDecodeJSON_PlainError(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.WriteHeader(http.StatusBadGateway)
	rr.WriteString("upstream down")

	var v any
	err := decodeJSON(rr.Result(), &v)
	if err == nil || err.Error() != "server returned 502: upstream down" {
		t.Errorf("err = %v", err)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		level string
		debug bool
		info  bool
	}{
		{"debug", true, true},
		{"DEBUG", true, true},
		{"info", false, true},
		{"", false, true},
		{"warn", false, false},
	}
	for _, tt := range tests {
		l := newLogger(tt.level, &bytes.Buffer{})
		if got := l.Enabled(ctx, slog.LevelDebug); got != tt.debug {
			t.Errorf("%q: debug enabled = %v", tt.level, got)
		}
		if got := l.Enabled(ctx, slog.LevelInfo); got != tt.info {
			t.Errorf("%q: info enabled = %v", tt.level, got)
		}
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestStartTracing(t *testing.T) {
	if _, err := startTracing("zipkin"); err == nil {
		t.Error("expected error for unknown exporter")
	}
	stop, err := startTracing("none")
	if err != nil {
		t.Fatalf("startTracing(none): %v", err)
	}
	stop()
}
