package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Settings is the typed view of the Store that the process runs with.
// Environment variables are applied on top of file values but never written
// back to the file.
type Settings struct {
	Server   ServerConfig
	Log      LogConfig
	CORS     CORSConfig
	Mistral  MistralConfig
	Defaults DefaultsConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LogConfig struct {
	Level string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// MistralConfig holds everything a Mistral client needs.
type MistralConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// TracingConfig selects where OpenTelemetry spans go: "none" or "stdout".
type TracingConfig struct {
	Exporter string
}

type DefaultsConfig struct {
	Provider string
	Model    string
}

// ModelEntry is one item of the models.api.available catalog.
type ModelEntry struct {
	Name        string `json:"name" yaml:"name"`
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

const (
	DefaultModel   = "mistral-small-latest"
	DefaultBaseURL = "https://api.mistral.ai/v1"
	DefaultTimeout = 30 * time.Second

	// APIKeyEnv is consulted only when mistral.api_key is empty.
	APIKeyEnv = "MISTRAL_API_KEY"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
	kList
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	def     any
	apply   func(cfg *Settings, v any)
	extract func(cfg Settings) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "PA_SERVER_HOST", def: "0.0.0.0",
		apply:   func(cfg *Settings, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Settings) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "PA_SERVER_PORT", def: 8000,
		apply:   func(cfg *Settings, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Settings) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "PA_LOG_LEVEL", def: "info",
		apply:   func(cfg *Settings, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Settings) any { return cfg.Log.Level },
	},
	{
		key: "cors.allowed_origins", typ: kList, env: "PA_CORS_ALLOWED_ORIGINS", def: []string{"*"},
		apply:   func(cfg *Settings, v any) { cfg.CORS.AllowedOrigins = v.([]string) },
		extract: func(cfg Settings) any { return strings.Join(cfg.CORS.AllowedOrigins, ",") },
	},
	{
		key: "defaults.provider", typ: kString, def: "api",
		apply:   func(cfg *Settings, v any) { cfg.Defaults.Provider = v.(string) },
		extract: func(cfg Settings) any { return cfg.Defaults.Provider },
	},
	{
		key: "defaults.model", typ: kString, def: DefaultModel,
		apply:   func(cfg *Settings, v any) { cfg.Defaults.Model = v.(string) },
		extract: func(cfg Settings) any { return cfg.Defaults.Model },
	},
	{
		key: "mistral.base_url", typ: kString, env: "PA_MISTRAL_BASE_URL", def: DefaultBaseURL,
		apply:   func(cfg *Settings, v any) { cfg.Mistral.BaseURL = strings.TrimRight(v.(string), "/") },
		extract: func(cfg Settings) any { return cfg.Mistral.BaseURL },
	},
	{
		key: "mistral.timeout", typ: kFloat, env: "PA_MISTRAL_TIMEOUT", def: DefaultTimeout.Seconds(),
		apply: func(cfg *Settings, v any) {
			cfg.Mistral.Timeout = time.Duration(v.(float64) * float64(time.Second))
		},
		extract: func(cfg Settings) any { return cfg.Mistral.Timeout.Seconds() },
	},
	{
		key: "tracing.exporter", typ: kString, env: "PA_TRACING_EXPORTER", def: "none",
		apply:   func(cfg *Settings, v any) { cfg.Tracing.Exporter = strings.ToLower(v.(string)) },
		extract: func(cfg Settings) any { return cfg.Tracing.Exporter },
	},
	{
		key: "mistral.api_key", typ: kString, env: APIKeyEnv, secret: true, def: "",
		apply:   func(cfg *Settings, v any) { cfg.Mistral.APIKey = v.(string) },
		extract: func(cfg Settings) any { return cfg.Mistral.APIKey },
	},
}

// Settings resolves every known key against the file, built-in defaults and
// the environment.
func (s *Store) Settings() Settings {
	var cfg Settings
	for _, sp := range specs {
		sp.apply(&cfg, s.resolve(sp))
	}
	return cfg
}

// Mistral returns the client settings for the Mistral API.
func (s *Store) Mistral() MistralConfig {
	return s.Settings().Mistral
}

// Catalog returns the statically configured model list. Entries without a
// name are skipped.
func (s *Store) Catalog() []ModelEntry {
	raw, err := cast.ToSliceE(s.Get("models.api.available", nil))
	if err != nil {
		return nil
	}
	out := make([]ModelEntry, 0, len(raw))
	for _, item := range raw {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		e := ModelEntry{
			Name:        cast.ToString(m["name"]),
			ID:          cast.ToString(m["id"]),
			Description: cast.ToString(m["description"]),
		}
		if e.Name == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// resolve returns the effective typed value for a key. Env vars override the
// file, except for secrets where the env var only fills an empty file value.
func (s *Store) resolve(sp keySpec) any {
	v := s.fileValue(sp)

	raw := ""
	if sp.env != "" {
		raw = os.Getenv(sp.env)
	}
	if raw == "" {
		return v
	}
	if sp.secret && v != "" {
		return v
	}

	parsed, err := parseTyped(sp.typ, raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using config value.\n", sp.env, raw, err)
		return v
	}
	return parsed
}

func (s *Store) fileValue(sp keySpec) any {
	switch sp.typ {
	case kInt:
		return s.GetInt(sp.key, sp.def.(int))
	case kFloat:
		return s.GetFloat(sp.key, sp.def.(float64))
	case kList:
		return s.GetStringSlice(sp.key, sp.def.([]string))
	default:
		return s.GetString(sp.key, sp.def.(string))
	}
}

func parseTyped(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kList:
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return raw, nil
	}
}
