package nasc

import (
	"sync"

	"github.com/toutaio/toutago-nasc/registry"
	"go.uber.org/zap"
)

// providerCreator turns targets into providers. It consults the registry
// first, then the container-shape factories, then the JIT factory.
//
// Built providers are cached per target and per registered binding so that a
// scoped provider, and therefore a singleton instance, is shared by every
// part of the graph that depends on it.
type providerCreator struct {
	adapters  []bindingAdapter
	factories []providerFactory

	mu        sync.Mutex
	byTarget  map[Target]Provider
	byBinding map[*registry.RegisteredBinding]Provider
}

func newProviderCreator() *providerCreator {
	return &providerCreator{
		adapters: []bindingAdapter{
			instanceAdapter{},
			selfAdapter{},
			classAdapter{},
			providerAdapter{},
			factoryAdapter{},
			multiAdapter{},
			exposedAdapter{},
		},
		factories: []providerFactory{
			providerOfFactory{},
			optionalFactory{},
			listFactory{},
			tupleFactory{},
			setFactory{},
			jitFactory{},
		},
		byTarget:  make(map[Target]Provider),
		byBinding: make(map[*registry.RegisteredBinding]Provider),
	}
}

// getProvider returns the provider of ctx's target.
func (c *providerCreator) getProvider(ctx *InjectionContext) (Provider, error) {
	target := ctx.target
	if provider, ok := c.cachedTarget(target); ok {
		return provider, nil
	}

	// Targets a private registry does not bind are resolved by its parent.
	if parent := ctx.state.parent; parent != nil && !ctx.state.registry.Has(target) && parent.has(target) {
		provider, err := parent.creator.getProvider(ctx.withState(parent))
		if err != nil {
			return nil, err
		}
		return c.storeTarget(target, provider), nil
	}

	if target.IsPlaceholder() {
		resolved, err := ctx.state.registry.Resolve(target)
		if err != nil {
			// Get logs ambiguous names.
			ctx.state.registry.Get(target)
			return nil, &NoBindingFoundError{Target: target, Path: ctx.Path()}
		}
		provider, err := c.getProvider(ctx.retarget(resolved))
		if err != nil {
			return nil, err
		}
		return c.storeTarget(target, provider), nil
	}

	var provider Provider
	var err error
	if bindings := ctx.state.registry.Get(target); len(bindings) > 0 {
		// Last registered wins for singular targets. Multi-bindings gather
		// all their siblings inside the adapter.
		provider, err = c.providerForBinding(ctx, bindings[len(bindings)-1])
	} else {
		provider, err = c.fromFactories(ctx)
	}
	if err != nil {
		return nil, err
	}
	return c.storeTarget(target, provider), nil
}

// getProviders returns one provider per binding of ctx's target, in
// registration order. Without bindings it falls back to the single provider
// the factories can build.
func (c *providerCreator) getProviders(ctx *InjectionContext) ([]Provider, error) {
	bindings := ctx.state.registry.Get(ctx.target)
	if parent := ctx.state.parent; len(bindings) == 0 && parent != nil && parent.has(ctx.target) {
		return parent.creator.getProviders(ctx.withState(parent))
	}
	if len(bindings) == 0 {
		provider, err := c.getProvider(ctx)
		if err != nil {
			return nil, err
		}
		return []Provider{provider}, nil
	}

	providers := make([]Provider, 0, len(bindings))
	for _, rb := range bindings {
		provider, err := c.providerForBinding(ctx, rb)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

// hasExplicit reports whether target, or the element target of a container
// shape, has bindings of its own.
func (c *providerCreator) hasExplicit(state *InjectionState, target Target) bool {
	if state.has(target) {
		return true
	}
	if inner, ok := innerTarget(target); ok {
		return c.hasExplicit(state, inner)
	}
	return false
}

func (c *providerCreator) providerForBinding(ctx *InjectionContext, rb *registry.RegisteredBinding) (Provider, error) {
	c.mu.Lock()
	provider, ok := c.byBinding[rb]
	c.mu.Unlock()
	if ok {
		return provider, nil
	}

	for _, adapter := range c.adapters {
		if !adapter.accept(rb.Binding) {
			continue
		}
		provider, err := adapter.create(rb, ctx)
		if err != nil {
			return nil, err
		}

		kind := bindingKind(rb.Binding)
		ctx.state.metrics.providerBuilt(kind)
		ctx.state.logger.Debug("provider built",
			zap.Stringer("target", ctx.target),
			zap.String("kind", kind),
			zap.String("source", rb.Source))

		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.byBinding[rb]; ok {
			return existing, nil
		}
		c.byBinding[rb] = provider
		return provider, nil
	}

	return nil, &BindingError{Target: rb.Target(), Reason: "no adapter accepts binding of type " + bindingKind(rb.Binding)}
}

func (c *providerCreator) fromFactories(ctx *InjectionContext) (Provider, error) {
	if ctx.target.Type == nil {
		return nil, &NoBindingFoundError{Target: ctx.target, Path: ctx.Path()}
	}
	for _, factory := range c.factories {
		if !factory.accept(ctx.target, ctx.state) {
			continue
		}
		provider, err := factory.create(ctx)
		if err != nil {
			return nil, err
		}
		ctx.state.metrics.providerBuilt(factory.name())
		ctx.state.logger.Debug("provider built",
			zap.Stringer("target", ctx.target),
			zap.String("kind", factory.name()))
		return provider, nil
	}
	return nil, &NoBindingFoundError{Target: ctx.target, Path: ctx.Path()}
}

func (c *providerCreator) cachedTarget(target Target) (Provider, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	provider, ok := c.byTarget[target]
	return provider, ok
}

// storeTarget caches provider unless another resolution got there first, in
// which case the earlier provider is kept and returned.
func (c *providerCreator) storeTarget(target Target, provider Provider) Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byTarget[target]; ok {
		return existing
	}
	c.byTarget[target] = provider
	return provider
}
