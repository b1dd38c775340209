package config

import (
	"fmt"
	"strings"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all known key/value pairs as the process would see them.
// Secrets are masked.
func ShowAll(s *Store) []KeyInfo {
	cfg := s.Settings()
	var result []KeyInfo
	for _, sp := range specs {
		val := fmt.Sprintf("%v", sp.extract(cfg))
		if sp.secret {
			val = maskSecret(val)
		}
		result = append(result, KeyInfo{
			Key:    sp.key,
			EnvVar: sp.env,
			Value:  val,
		})
	}
	return result
}

// SetKey parses value according to the key's type and writes it to the store.
// Arbitrary dotted paths outside the known keys are stored as strings.
func SetKey(s *Store, key, value string) error {
	for _, sp := range specs {
		if sp.key != key {
			continue
		}
		v, err := parseTyped(sp.typ, value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return s.Set(key, v)
	}
	if strings.HasPrefix(key, "models.api.available") {
		return fmt.Errorf("the model catalog is a list; edit it in %s", s.Path())
	}
	return s.Set(key, value)
}

// ValidKeys returns the names of all known config keys.
func ValidKeys() []string {
	keys := make([]string, 0, len(specs))
	for _, sp := range specs {
		keys = append(keys, sp.key)
	}
	return keys
}

func maskSecret(v string) string {
	if v == "" {
		return "(not set)"
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
