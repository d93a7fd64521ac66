// Package config loads injector settings from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings are the externally configurable injector options.
type Settings struct {
	// AutoBindings enables just-in-time binding of unbound struct types.
	AutoBindings bool `yaml:"auto_bindings"`

	// MaxDepth bounds the length of a dependency chain. Zero keeps the default.
	MaxDepth int `yaml:"max_depth"`

	// DefaultScope is the lifetime of bindings declared without a scope:
	// singleton, immediate, thread or per_lookup.
	DefaultScope string `yaml:"default_scope"`

	// LogLevel enables logging at the given zap level (debug, info, warn, error).
	// Empty disables logging.
	LogLevel string `yaml:"log_level"`

	Metrics MetricsSettings `yaml:"metrics"`
}

// MetricsSettings configures the Prometheus collectors of the injector.
type MetricsSettings struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		MaxDepth:     256,
		DefaultScope: "singleton",
		Metrics:      MetricsSettings{Namespace: "nasc"},
	}
}

// LoadFile reads settings from a YAML file on top of the defaults.
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read injector config: %w", err)
	}
	return Parse(data)
}

// Parse reads settings from raw YAML bytes on top of the defaults.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse injector config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Environment variables read by LoadEnv.
const (
	EnvAutoBindings     = "NASC_AUTO_BINDINGS"
	EnvMaxDepth         = "NASC_MAX_DEPTH"
	EnvDefaultScope     = "NASC_DEFAULT_SCOPE"
	EnvLogLevel         = "NASC_LOG_LEVEL"
	EnvMetricsEnabled   = "NASC_METRICS_ENABLED"
	EnvMetricsNamespace = "NASC_METRICS_NAMESPACE"
)

// LoadEnv loads the given .env files (".env" when none is given) into the
// process environment and reads settings from it. Missing .env files are
// skipped; a file that exists but cannot be parsed is an error.
func LoadEnv(envFiles ...string) (Settings, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		// .env may not exist in production
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return Default().FromEnv()
}

// FromEnv returns a copy of s overridden by the NASC_* environment variables.
func (s Settings) FromEnv() (Settings, error) {
	var err error
	if s.AutoBindings, err = envBool(EnvAutoBindings, s.AutoBindings); err != nil {
		return Settings{}, err
	}
	if s.MaxDepth, err = envInt(EnvMaxDepth, s.MaxDepth); err != nil {
		return Settings{}, err
	}
	s.DefaultScope = env(EnvDefaultScope, s.DefaultScope)
	s.LogLevel = env(EnvLogLevel, s.LogLevel)
	if s.Metrics.Enabled, err = envBool(EnvMetricsEnabled, s.Metrics.Enabled); err != nil {
		return Settings{}, err
	}
	s.Metrics.Namespace = env(EnvMetricsNamespace, s.Metrics.Namespace)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks value ranges. Scope names are checked by the injector.
func (s Settings) Validate() error {
	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", s.MaxDepth)
	}
	switch strings.ToLower(s.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", s.LogLevel)
	}
	return nil
}

func env(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, defaultVal int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
