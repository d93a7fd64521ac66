package nasc

import (
	"fmt"
	"reflect"

	"github.com/toutaio/toutago-nasc/registry"
	"go.uber.org/zap"
)

// bindingAdapter turns one binding variant into a provider.
type bindingAdapter interface {
	accept(b registry.Binding) bool
	create(rb *registry.RegisteredBinding, ctx *InjectionContext) (Provider, error)
}

// instanceAdapter serves InstanceBindings. Instances are never scoped.
type instanceAdapter struct{}

func (instanceAdapter) accept(b registry.Binding) bool {
	_, ok := b.(*InstanceBinding)
	return ok
}

func (instanceAdapter) create(rb *registry.RegisteredBinding, _ *InjectionContext) (Provider, error) {
	return &instanceProvider{instance: rb.Binding.(*InstanceBinding).Instance}, nil
}

// selfAdapter serves ClassBindings that build their own target type.
type selfAdapter struct{}

func (selfAdapter) accept(b registry.Binding) bool {
	cb, ok := b.(*ClassBinding)
	return ok && cb.IsSelf()
}

func (selfAdapter) create(rb *registry.RegisteredBinding, ctx *InjectionContext) (Provider, error) {
	b := rb.Binding.(*ClassBinding)
	return buildClassProvider(ctx, b.BoundType(), b.Constructor, b.Params, b.Scope)
}

// classAdapter serves ClassBindings to another type. An explicit binding of
// the bound type is reused; otherwise the bound type is built in place.
type classAdapter struct{}

func (classAdapter) accept(b registry.Binding) bool {
	cb, ok := b.(*ClassBinding)
	return ok && !cb.IsSelf()
}

func (classAdapter) create(rb *registry.RegisteredBinding, ctx *InjectionContext) (Provider, error) {
	b := rb.Binding.(*ClassBinding)
	bound := registry.TargetFor(b.BoundType(), b.Named)

	child, err := ctx.Child(bound)
	if err != nil {
		return nil, err
	}
	if b.Constructor == nil && len(b.Params) == 0 && ctx.state.has(bound) {
		return ctx.state.creator.getProvider(child)
	}
	return buildClassProvider(child, b.BoundType(), b.Constructor, b.Params, b.Scope)
}

// providerAdapter serves ProviderBindings by flattening the provider of a
// provider into a provider of the value.
type providerAdapter struct{}

func (providerAdapter) accept(b registry.Binding) bool {
	_, ok := b.(*ProviderBinding)
	return ok
}

func (providerAdapter) create(rb *registry.RegisteredBinding, ctx *InjectionContext) (Provider, error) {
	b := rb.Binding.(*ProviderBinding)

	var outer Provider = &instanceProvider{instance: b.Provider}
	if b.ProviderType != nil {
		var err error
		outer, err = collaboratorProvider(ctx, b.ProviderType, b.Named, b.Scope)
		if err != nil {
			return nil, err
		}
	}
	return scoped(ctx, b.Scope, &fromProviderProvider{outer: outer}, b.Type)
}

// factoryAdapter serves FactoryBindings: the factory is injected, then its
// Create method produces the value.
type factoryAdapter struct{}

func (factoryAdapter) accept(b registry.Binding) bool {
	_, ok := b.(*FactoryBinding)
	return ok
}

func (factoryAdapter) create(rb *registry.RegisteredBinding, ctx *InjectionContext) (Provider, error) {
	b := rb.Binding.(*FactoryBinding)

	var factory Provider = &instanceProvider{instance: b.Factory}
	if b.FactoryType != nil || ctx.state.has(registry.TargetFor(b.collaboratorType(), b.Named)) {
		var err error
		factory, err = collaboratorProvider(ctx, b.collaboratorType(), b.Named, b.Scope)
		if err != nil {
			return nil, err
		}
	}
	return scoped(ctx, b.Scope, &fromFactoryProvider{factory: factory}, b.Type)
}

// multiAdapter serves MultiBindings. Every MultiBinding registered for the
// target contributes its items, in registration order.
type multiAdapter struct{}

func (multiAdapter) accept(b registry.Binding) bool {
	_, ok := b.(*MultiBinding)
	return ok
}

func (multiAdapter) create(rb *registry.RegisteredBinding, ctx *InjectionContext) (Provider, error) {
	last := rb.Binding.(*MultiBinding)

	var items []Provider
	for _, sibling := range ctx.state.registry.Get(rb.Target()) {
		mb, ok := sibling.Binding.(*MultiBinding)
		if !ok {
			continue
		}
		for i, item := range mb.Items {
			if err := mb.validateItem(i, item); err != nil {
				return nil, err
			}
			provider, err := itemProvider(ctx, mb, item)
			if err != nil {
				return nil, err
			}
			items = append(items, provider)
		}
	}

	raw := &listProvider{elem: last.ItemType, items: items}
	return scoped(ctx, last.Scope, raw, rb.Binding.TargetType())
}

// exposedAdapter serves ExposedBindings by resolving the target inside the
// private module that binds it.
type exposedAdapter struct{}

func (exposedAdapter) accept(b registry.Binding) bool {
	_, ok := b.(*ExposedBinding)
	return ok
}

func (exposedAdapter) create(rb *registry.RegisteredBinding, ctx *InjectionContext) (Provider, error) {
	b := rb.Binding.(*ExposedBinding)
	private := ctx.state.private(b.Private)
	return private.creator.getProvider(ctx.retarget(rb.Target()).withState(private))
}

func itemProvider(ctx *InjectionContext, mb *MultiBinding, item ItemBinding) (Provider, error) {
	switch {
	case item.Instance != nil:
		return &instanceProvider{instance: item.Instance}, nil
	case item.Provider != nil:
		return item.Provider, nil
	default:
		class := item.Class
		if class == nil {
			class = mb.ItemType
		}
		child, err := ctx.Child(registry.TargetFor(class, mb.Named))
		if err != nil {
			return nil, err
		}
		// Items are rebuilt each time the sequence is; the sequence itself
		// carries the scope.
		return buildClassProvider(child, class, item.Constructor, item.Params, PerLookupScope{})
	}
}

// buildClassProvider resolves one child provider per constructor parameter
// and wraps the resulting construction provider in scope.
func buildClassProvider(ctx *InjectionContext, bound reflect.Type, constructor any, specs []ParamSpec, scope Scope) (Provider, error) {
	info, err := introspect(ctx.state.cache, bound, constructor, specs)
	if err != nil {
		return nil, withPath(err, ctx)
	}

	args := make([]Provider, len(info.params))
	for i, p := range info.params {
		if args[i], err = resolveParameter(ctx, bound, p); err != nil {
			return nil, err
		}
	}

	return scoped(ctx, scope, &classProvider{info: info, args: args}, bound)
}

// resolveParameter finds the provider of one constructor parameter.
//
// An explicitly named parameter is only looked up under that name. Otherwise
// the parameter name is tried as annotation when something is bound under it,
// then the bare type. The default value is used when neither is bound.
func resolveParameter(ctx *InjectionContext, owner reflect.Type, p parameter) (Provider, error) {
	creator := ctx.state.creator

	var candidates []Target
	if p.named != "" {
		candidates = []Target{registry.TargetFor(p.typ, p.named)}
	} else {
		if byName := registry.TargetFor(p.typ, p.name); p.name != "" && creator.hasExplicit(ctx.state, byName) {
			candidates = append(candidates, byName)
		}
		candidates = append(candidates, registry.TargetFor(p.typ, ""))
	}

	var lastErr error
	for _, target := range candidates {
		child, err := ctx.Child(target)
		if err != nil {
			return nil, err
		}
		provider, err := creator.getProvider(child)
		if err == nil {
			return provider, nil
		}
		if !noBindingFor(err, target) {
			return nil, err
		}
		lastErr = err
	}

	if p.hasDefault {
		ctx.state.logger.Debug("using default value",
			zap.Stringer("type", owner),
			zap.String("parameter", p.name))
		return &instanceProvider{instance: p.defaultValue.Interface()}, nil
	}

	return nil, &NonInjectableTypeError{
		Type:      owner,
		Parameter: parameterLabel(p),
		Reason:    "no binding and no default value",
		Path:      ctx.Path(),
		Cause:     lastErr,
	}
}

// collaboratorProvider resolves a provider or factory type. A binding of the
// type under the same annotation is reused; otherwise the type is built in
// place with the given scope.
func collaboratorProvider(ctx *InjectionContext, typ reflect.Type, annotation string, scope Scope) (Provider, error) {
	target := registry.TargetFor(typ, annotation)
	child, err := ctx.Child(target)
	if err != nil {
		return nil, err
	}
	if ctx.state.has(target) {
		return ctx.state.creator.getProvider(child)
	}
	return buildClassProvider(child, typ, nil, nil, scope)
}

// scoped resolves scope through the injector and wraps raw with it. A nil
// scope stands for the injector's default scope.
func scoped(ctx *InjectionContext, scope Scope, raw Provider, owner reflect.Type) (Provider, error) {
	if scope == nil {
		scope = ctx.state.options.DefaultScope
	}

	child, err := ctx.Child(registry.TargetFor(reflect.TypeOf(scope), ""))
	if err != nil {
		return nil, err
	}
	scopeProvider, err := ctx.state.creator.getProvider(child)
	if err != nil {
		return nil, &NonInjectableTypeError{
			Type:   owner,
			Reason: fmt.Sprintf("scope %T cannot be resolved", scope),
			Path:   ctx.Path(),
			Cause:  err,
		}
	}

	value, err := scopeProvider.Get()
	if err != nil {
		return nil, &NonInjectableTypeError{Type: owner, Reason: "scope instantiation failed", Path: ctx.Path(), Cause: err}
	}
	resolved, ok := value.(Scope)
	if !ok {
		return nil, &NonInjectableTypeError{
			Type:   owner,
			Reason: fmt.Sprintf("%T bound as scope does not implement Scope", value),
			Path:   ctx.Path(),
		}
	}

	provider, err := resolved.ScopedProvider(raw)
	if err != nil {
		return nil, &NonInjectableTypeError{
			Type:   owner,
			Reason: fmt.Sprintf("scope %T rejected the provider", resolved),
			Path:   ctx.Path(),
			Cause:  err,
		}
	}
	return provider, nil
}

// withPath attaches the resolution path to a NonInjectableTypeError.
func withPath(err error, ctx *InjectionContext) error {
	if ni, ok := err.(*NonInjectableTypeError); ok && ni.Path == nil {
		ni.Path = ctx.Path()
	}
	return err
}

func parameterLabel(p parameter) string {
	if p.name != "" {
		return p.name
	}
	return p.typ.String()
}
