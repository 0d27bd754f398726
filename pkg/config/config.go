// Package config loads the YAML configuration document and provides
// dotted-path access to its values.
//
// The document is read once at startup. Lookups take a dotted path such as
// "gcp.project" and a default returned when the path is absent or holds a
// value of the wrong kind.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the parsed configuration document.
type Config struct {
	root map[string]any
}

// Load reads configuration from a file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	root := make(map[string]any)
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode YAML document: %w", err)
	}
	return &Config{root: root}, nil
}

// Get returns the raw value at a dotted path, or def when the path is absent.
func (c *Config) Get(path string, def any) any {
	cur := any(c.root)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		cur, ok = m[part]
		if !ok {
			return def
		}
	}
	return cur
}

// String returns the string at path, or def when absent or not a string.
func (c *Config) String(path, def string) string {
	if v, ok := c.Get(path, def).(string); ok {
		return v
	}
	return def
}

// Int returns the integer at path, or def when absent or not numeric.
func (c *Config) Int(path string, def int) int {
	switch v := c.Get(path, def).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Bool returns the boolean at path, or def when absent or not a boolean.
func (c *Config) Bool(path string, def bool) bool {
	if v, ok := c.Get(path, def).(bool); ok {
		return v
	}
	return def
}

// Duration returns the duration at path, or def when absent or malformed.
// Strings use Go duration syntax ("30s", "5m"); bare numbers are seconds.
func (c *Config) Duration(path string, def time.Duration) time.Duration {
	switch v := c.Get(path, def).(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return def
		}
		return d
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	default:
		return def
	}
}

// StringSlice returns the list of strings at path, or def when absent or not
// a list. Non-string elements are skipped.
func (c *Config) StringSlice(path string, def []string) []string {
	list, ok := c.Get(path, nil).([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Section returns the mapping at path, or nil when absent or not a mapping.
func (c *Config) Section(path string) map[string]any {
	if m, ok := c.Get(path, nil).(map[string]any); ok {
		return m
	}
	return nil
}
