package nasc

import (
	"fmt"
	"strings"
)

// Lifetime is the configuration name of a built-in scope.
type Lifetime string

const (
	// LifetimeSingleton shares one lazily built instance. This is the default
	// scope of class, provider and factory bindings.
	LifetimeSingleton Lifetime = "singleton"

	// LifetimeImmediate shares one instance built while resolving the graph.
	LifetimeImmediate Lifetime = "immediate"

	// LifetimeThread shares one instance per goroutine.
	LifetimeThread Lifetime = "thread"

	// LifetimePerLookup creates a new instance on every Get.
	LifetimePerLookup Lifetime = "per_lookup"
)

// String returns the string representation of the lifetime.
func (l Lifetime) String() string {
	return string(l)
}

// Scope returns the built-in scope configured by this lifetime.
func (l Lifetime) Scope() (Scope, error) {
	switch Lifetime(strings.ToLower(strings.TrimSpace(string(l)))) {
	case LifetimeSingleton, "":
		return SingletonScope{}, nil
	case LifetimeImmediate:
		return ImmediateScope{}, nil
	case LifetimeThread:
		return ThreadScope{}, nil
	case LifetimePerLookup, "transient":
		return PerLookupScope{}, nil
	default:
		return nil, fmt.Errorf("unknown lifetime %q", string(l))
	}
}

// builtinScopes are registered as instances in every injector. Each call
// returns a ThreadScope with its own thread registry.
func builtinScopes() []Scope {
	return []Scope{SingletonScope{}, ImmediateScope{}, ThreadScope{threads: newThreadRegistry()}, PerLookupScope{}}
}
