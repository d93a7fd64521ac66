package nasc

import (
	"fmt"
	"reflect"
)

// providerFactory builds providers for targets that have no binding of their
// own, based on the shape of the target type.
type providerFactory interface {
	name() string
	accept(target Target, state *InjectionState) bool
	create(ctx *InjectionContext) (Provider, error)
}

// providerOfFactory serves ProviderOf[T] with a provider that resolves T lazily.
type providerOfFactory struct{}

func (providerOfFactory) name() string { return "provider_of" }

func (providerOfFactory) accept(target Target, _ *InjectionState) bool {
	return isShape(target.Type, providerShapeType)
}

func (providerOfFactory) create(ctx *InjectionContext) (Provider, error) {
	inner, _ := innerTarget(ctx.target)
	holder := reflect.New(ctx.target.Type)
	holder.Interface().(providerBinder).bindProvider(&lazyProvider{target: inner, state: ctx.state})
	return &instanceProvider{instance: holder.Elem().Interface()}, nil
}

// optionalFactory serves Optional[T]: T's value when T resolves, an empty
// Optional when T has no binding.
type optionalFactory struct{}

func (optionalFactory) name() string { return "optional" }

func (optionalFactory) accept(target Target, _ *InjectionState) bool {
	return isShape(target.Type, optionalShapeType)
}

func (optionalFactory) create(ctx *InjectionContext) (Provider, error) {
	optionalType := ctx.target.Type
	inner, _ := innerTarget(ctx.target)

	child, err := ctx.Child(inner)
	if err != nil {
		return nil, err
	}
	provider, err := ctx.state.creator.getProvider(child)
	if err != nil {
		if noBindingFor(err, inner) {
			return &instanceProvider{instance: reflect.Zero(optionalType).Interface()}, nil
		}
		return nil, err
	}

	return ProviderFunc(func() (any, error) {
		value, err := provider.Get()
		if err != nil {
			return nil, err
		}
		holder := reflect.New(optionalType)
		if err := holder.Interface().(optionalSetter).setOptional(value); err != nil {
			return nil, err
		}
		return holder.Elem().Interface(), nil
	}), nil
}

// listFactory serves []T with one item per binding of T.
type listFactory struct{}

func (listFactory) name() string { return "list" }

func (listFactory) accept(target Target, _ *InjectionState) bool {
	return target.Type != nil && target.Type.Kind() == reflect.Slice
}

func (listFactory) create(ctx *InjectionContext) (Provider, error) {
	inner, _ := innerTarget(ctx.target)

	child, err := ctx.Child(inner)
	if err != nil {
		return nil, err
	}
	items, err := ctx.state.creator.getProviders(child)
	if err != nil {
		if noBindingFor(err, inner) {
			return nil, &NoBindingFoundError{Target: ctx.target, Path: ctx.Path()}
		}
		return nil, err
	}
	return &listProvider{elem: inner.Type, items: items}, nil
}

// sequenceProvider resolves the []T target matching a tuple or set target,
// so multi-bindings and per-binding lists are both honoured.
func sequenceProvider(ctx *InjectionContext) (Provider, error) {
	inner, _ := innerTarget(ctx.target)
	list := Target{Type: reflect.SliceOf(inner.Type), Annotation: inner.Annotation}

	child, err := ctx.Child(list)
	if err != nil {
		return nil, err
	}
	provider, err := ctx.state.creator.getProvider(child)
	if err != nil {
		if noBindingFor(err, list) {
			return nil, &NoBindingFoundError{Target: ctx.target, Path: ctx.Path()}
		}
		return nil, err
	}
	return provider, nil
}

// tupleFactory serves Tuple[T] from the []T provider.
type tupleFactory struct{}

func (tupleFactory) name() string { return "tuple" }

func (tupleFactory) accept(target Target, _ *InjectionState) bool {
	return isShape(target.Type, tupleShapeType)
}

func (tupleFactory) create(ctx *InjectionContext) (Provider, error) {
	tupleType := ctx.target.Type
	list, err := sequenceProvider(ctx)
	if err != nil {
		return nil, err
	}

	return ProviderFunc(func() (any, error) {
		items, err := list.Get()
		if err != nil {
			return nil, err
		}
		holder := reflect.New(tupleType)
		if err := holder.Interface().(tupleFiller).fillTuple(items); err != nil {
			return nil, err
		}
		return holder.Elem().Interface(), nil
	}), nil
}

// setFactory serves map[T]struct{} from the []T provider.
type setFactory struct{}

func (setFactory) name() string { return "set" }

func (setFactory) accept(target Target, _ *InjectionState) bool {
	return isSet(target.Type)
}

func (setFactory) create(ctx *InjectionContext) (Provider, error) {
	setType := ctx.target.Type
	list, err := sequenceProvider(ctx)
	if err != nil {
		return nil, err
	}

	return ProviderFunc(func() (any, error) {
		items, err := list.Get()
		if err != nil {
			return nil, err
		}
		rv := reflect.ValueOf(items)
		set := reflect.MakeMapWithSize(setType, rv.Len())
		member := reflect.Zero(setType.Elem())
		for i := 0; i < rv.Len(); i++ {
			key := rv.Index(i)
			if !key.Type().Comparable() {
				return nil, fmt.Errorf("set item %d of type %v is not comparable", i, key.Type())
			}
			set.SetMapIndex(key, member)
		}
		return set.Interface(), nil
	}), nil
}

// jitFactory binds unbound constructible types to themselves when auto
// bindings are enabled. Annotated targets are never bound implicitly.
type jitFactory struct{}

func (jitFactory) name() string { return "jit" }

func (jitFactory) accept(target Target, state *InjectionState) bool {
	return state.options.AutoBindings && target.Annotation == "" && constructible(target.Type)
}

func (jitFactory) create(ctx *InjectionContext) (Provider, error) {
	binding := NewSelfBinding(ctx.target.Type, nil, "")
	return buildClassProvider(ctx, binding.BoundType(), nil, nil, binding.Scope)
}
