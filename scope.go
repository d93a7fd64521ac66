package nasc

import "fmt"

// Scope is a policy controlling the lifetime of the instances a provider
// produces. It wraps a raw provider into one that caches (or not) its values.
//
// Scopes are themselves resolved through the injector under the target of
// their Go type, so a custom Scope is bound like any other instance:
//
//	b.Bind(nasc.TargetOf[*RequestScope](), nasc.ToInstance(&RequestScope{}))
type Scope interface {
	ScopedProvider(inner Provider) (Provider, error)
}

// Initializable represents a service that requires initialization.
// Initialize is called right after the instance is constructed by the injector.
//
// Example:
//
//	type Service struct {}
//	func (s *Service) Initialize() error {
//	    return s.setup()
//	}
type Initializable interface {
	Initialize() error
}

// PerLookupScope never caches: every Get builds a new instance.
type PerLookupScope struct{}

// ScopedProvider returns inner unchanged.
func (PerLookupScope) ScopedProvider(inner Provider) (Provider, error) {
	return inner, nil
}

// SingletonScope builds the instance lazily on the first Get and returns the
// same instance afterwards. The first computation happens exactly once, even
// under concurrent callers.
type SingletonScope struct{}

// ScopedProvider wraps inner into a caching provider.
func (SingletonScope) ScopedProvider(inner Provider) (Provider, error) {
	return newSingletonProvider(inner), nil
}

// ImmediateScope is a SingletonScope whose instance is built when the
// provider is wrapped, that is while the injector resolves the graph.
type ImmediateScope struct{}

// ScopedProvider wraps inner into a caching provider and computes its value.
func (ImmediateScope) ScopedProvider(inner Provider) (Provider, error) {
	provider := newSingletonProvider(inner)
	if _, err := provider.Get(); err != nil {
		return nil, fmt.Errorf("eager instantiation failed: %w", err)
	}
	return provider, nil
}

// ThreadScope caches one instance per calling goroutine.
//
// Cached instances live until their goroutine calls Injector.ReleaseThread.
// A goroutine that resolves thread-scoped targets, such as an HTTP request
// handler, should release them before it exits:
//
//	defer injector.ReleaseThread()
type ThreadScope struct {
	threads *threadRegistry
}

// ScopedProvider wraps inner into a per-goroutine caching provider.
func (s ThreadScope) ScopedProvider(inner Provider) (Provider, error) {
	provider := &threadScopedProvider{inner: inner}
	s.threads.add(provider)
	return provider, nil
}
