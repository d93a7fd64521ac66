package nasc

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/toutaio/toutago-nasc/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultMaxDepth bounds the length of a dependency chain unless overridden.
const DefaultMaxDepth = 256

// Options configure an Injector.
type Options struct {
	// AutoBindings lets unbound struct types be built on demand.
	AutoBindings bool

	// MaxDepth bounds the length of a dependency chain.
	MaxDepth int

	// DefaultScope is used by bindings declared without a scope.
	DefaultScope Scope

	Logger *zap.Logger

	// Metrics receives the injector collectors. Nil disables metrics.
	Metrics          prometheus.Registerer
	MetricsNamespace string
}

func defaultOptions() *Options {
	return &Options{
		MaxDepth:         DefaultMaxDepth,
		DefaultScope:     SingletonScope{},
		Logger:           zap.NewNop(),
		MetricsNamespace: "nasc",
	}
}

// Option is a function that configures an Injector.
type Option func(*Options) error

// WithAutoBindings enables or disables just-in-time binding of unbound
// struct types. Disabled by default.
func WithAutoBindings(enabled bool) Option {
	return func(o *Options) error {
		o.AutoBindings = enabled
		return nil
	}
}

// WithLogger sets the logger used by the injector and its registry.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		o.Logger = logger
		return nil
	}
}

// WithMetrics registers the injector collectors with reg, under the given
// namespace ("nasc" when omitted).
func WithMetrics(reg prometheus.Registerer, namespace ...string) Option {
	return func(o *Options) error {
		o.Metrics = reg
		if ns := firstOr(namespace, ""); ns != "" {
			o.MetricsNamespace = ns
		}
		return nil
	}
}

// WithMaxDepth bounds the length of a dependency chain.
func WithMaxDepth(depth int) Option {
	return func(o *Options) error {
		if depth <= 0 {
			return fmt.Errorf("max depth must be positive, got %d", depth)
		}
		o.MaxDepth = depth
		return nil
	}
}

// WithDefaultScope sets the scope of bindings declared without one.
func WithDefaultScope(scope Scope) Option {
	return func(o *Options) error {
		if scope == nil {
			return fmt.Errorf("default scope cannot be nil")
		}
		o.DefaultScope = scope
		return nil
	}
}

// WithSettings applies settings loaded by the config package.
//
// Example:
//
//	settings, err := config.LoadFile("nasc.yaml")
//	injector, err := nasc.New(modules, nasc.WithSettings(settings))
func WithSettings(s config.Settings) Option {
	return func(o *Options) error {
		if err := s.Validate(); err != nil {
			return err
		}

		scope, err := Lifetime(s.DefaultScope).Scope()
		if err != nil {
			return err
		}
		o.DefaultScope = scope
		o.AutoBindings = s.AutoBindings
		if s.MaxDepth > 0 {
			o.MaxDepth = s.MaxDepth
		}

		if s.LogLevel != "" {
			logger, err := newLogger(s.LogLevel)
			if err != nil {
				return err
			}
			o.Logger = logger
		}

		if s.Metrics.Enabled {
			o.Metrics = prometheus.DefaultRegisterer
		}
		if s.Metrics.Namespace != "" {
			o.MetricsNamespace = s.Metrics.Namespace
		}
		return nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
