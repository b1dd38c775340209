package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	defaultPath   = "config.yaml"
	configPathEnv = "PA_CONFIG"
)

// Store is a nested key-path mapping backed by a YAML file. Keys are dotted
// paths ("mistral.base_url"). Reads take a caller-supplied default; every Set
// rewrites the whole file before returning.
type Store struct {
	path string

	mu   sync.RWMutex
	data map[string]any
}

// DefaultPath returns the config file path from $PA_CONFIG, or config.yaml in
// the working directory.
func DefaultPath() string {
	if p := os.Getenv(configPathEnv); p != "" {
		return p
	}
	return defaultPath
}

// Open loads the YAML file at path. A missing file yields the built-in
// defaults; the file is not created until the first Set.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		s.data = defaults()
		return s, nil
	}

	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if data == nil {
		data = make(map[string]any)
	}
	s.data = data
	return s, nil
}

// NewMemory returns a Store that is never written to disk. A nil data map
// starts from the built-in defaults.
func NewMemory(data map[string]any) *Store {
	if data == nil {
		data = defaults()
	}
	return &Store{data: data}
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file without overriding
// variables already present in the environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Path returns the backing file path, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Get walks the dotted key path and returns the value found there, or def
// when any segment is missing or a non-mapping is encountered on the way.
func (s *Store) Get(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := lookup(s.data, key)
	if !ok {
		return def
	}
	return v
}

// GetString returns the value at key as a string, or def when the key is
// missing or not representable as text.
func (s *Store) GetString(key, def string) string {
	v := s.Get(key, nil)
	if v == nil {
		return def
	}
	str, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return str
}

// GetInt returns the value at key as an int, or def.
func (s *Store) GetInt(key string, def int) int {
	v := s.Get(key, nil)
	if v == nil {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

// GetFloat returns the value at key as a float64, or def.
func (s *Store) GetFloat(key string, def float64) float64 {
	v := s.Get(key, nil)
	if v == nil {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// GetStringSlice returns the list at key as strings, or def.
func (s *Store) GetStringSlice(key string, def []string) []string {
	v := s.Get(key, nil)
	if v == nil {
		return def
	}
	out, err := cast.ToStringSliceE(v)
	if err != nil {
		return def
	}
	return out
}

// Set stores value at the dotted key path, creating intermediate mappings as
// needed, and persists the file synchronously.
func (s *Store) Set(key string, value any) error {
	parts := splitKey(key)
	if len(parts) == 0 {
		return fmt.Errorf("empty config key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.data
	for i, k := range parts[:len(parts)-1] {
		next, ok := node[k]
		if !ok || next == nil {
			child := make(map[string]any)
			node[k] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("config key %q is not a mapping", strings.Join(parts[:i+1], "."))
		}
		node = child
	}
	node[parts[len(parts)-1]] = value

	return s.save()
}

// save writes the mapping to disk. Caller must hold s.mu.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	out, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(s.path, out, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", s.path, err)
	}
	slog.Debug("config saved", "path", s.path)
	return nil
}

func lookup(data map[string]any, key string) (any, bool) {
	parts := splitKey(key)
	if len(parts) == 0 {
		return nil, false
	}
	var cur any = data
	for _, k := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func splitKey(key string) []string {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	return strings.Split(key, ".")
}

func defaults() map[string]any {
	return map[string]any{
		"models": map[string]any{
			"api": map[string]any{
				"default": "mistral-small-latest",
				"available": []any{
					map[string]any{"name": "mistral-small-latest", "id": "mistral-small"},
					map[string]any{"name": "mistral-medium-latest", "id": "mistral-medium"},
				},
			},
		},
		"defaults": map[string]any{
			"provider": "api",
			"model":    "mistral-small-latest",
		},
		"mistral": map[string]any{
			"api_key":  "",
			"base_url": "https://api.mistral.ai/v1",
			"timeout":  30,
		},
	}
}
