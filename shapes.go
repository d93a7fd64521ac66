package nasc

import (
	"fmt"
	"reflect"
	"sync"
)

// Optional is injected with the value bound for T, or left empty when T has
// no binding.
//
// Example:
//
//	type Service struct {
//	    Cache nasc.Optional[Cache]
//	}
//
//	if cache, ok := s.Cache.Get(); ok {
//	    cache.Put(key, value)
//	}
type Optional[T any] struct {
	value   T
	present bool
}

// Some returns an Optional holding value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

// None returns an empty Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// Present reports whether a value was injected.
func (o Optional[T]) Present() bool {
	return o.present
}

// OrElse returns the value, or fallback when empty.
func (o Optional[T]) OrElse(fallback T) T {
	if o.present {
		return o.value
	}
	return fallback
}

func (Optional[T]) optionalElem() reflect.Type { return typeOf[T]() }

func (o *Optional[T]) setOptional(value any) error {
	rv, err := assignable(value, typeOf[T]())
	if err != nil {
		return err
	}
	reflect.ValueOf(&o.value).Elem().Set(rv)
	o.present = true
	return nil
}

// Tuple is an immutable sequence injected with every value bound for T.
type Tuple[T any] struct {
	items []T
}

// TupleOf returns a Tuple holding a copy of items.
func TupleOf[T any](items ...T) Tuple[T] {
	return Tuple[T]{items: append([]T(nil), items...)}
}

// Len returns the number of items.
func (t Tuple[T]) Len() int {
	return len(t.items)
}

// At returns the item at index i.
func (t Tuple[T]) At(i int) T {
	return t.items[i]
}

// Items returns a copy of the items.
func (t Tuple[T]) Items() []T {
	return append([]T(nil), t.items...)
}

func (Tuple[T]) tupleElem() reflect.Type { return typeOf[T]() }

func (t *Tuple[T]) fillTuple(list any) error {
	items, ok := list.([]T)
	if !ok {
		return fmt.Errorf("expected []%v, got %T", typeOf[T](), list)
	}
	t.items = append([]T(nil), items...)
	return nil
}

// ProviderOf is injected with a lazy provider of T. Nothing is built until
// Get is called, which lets a type depend on a provider of itself or of a
// type that depends back on it.
type ProviderOf[T any] struct {
	provider Provider
}

// Get builds or returns an instance of T according to T's scope.
func (p ProviderOf[T]) Get() (T, error) {
	var zero T
	if p.provider == nil {
		return zero, fmt.Errorf("provider of %v is not bound to an injector", typeOf[T]())
	}
	value, err := p.provider.Get()
	if err != nil {
		return zero, err
	}
	return valueAs[T](value)
}

func (ProviderOf[T]) providerElem() reflect.Type { return typeOf[T]() }

func (p *ProviderOf[T]) bindProvider(provider Provider) {
	p.provider = provider
}

type (
	optionalShape interface{ optionalElem() reflect.Type }
	tupleShape    interface{ tupleElem() reflect.Type }
	providerShape interface{ providerElem() reflect.Type }

	optionalSetter interface{ setOptional(value any) error }
	tupleFiller    interface{ fillTuple(list any) error }
	providerBinder interface{ bindProvider(provider Provider) }
)

var (
	optionalShapeType = reflect.TypeOf((*optionalShape)(nil)).Elem()
	tupleShapeType    = reflect.TypeOf((*tupleShape)(nil)).Elem()
	providerShapeType = reflect.TypeOf((*providerShape)(nil)).Elem()
)

func isShape(t reflect.Type, shape reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Struct && t.Implements(shape)
}

// isSet reports whether t is a map[T]struct{} used as a set.
func isSet(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Map &&
		t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}

// innerTarget returns the element target of a container-shaped target.
func innerTarget(target Target) (Target, bool) {
	t := target.Type
	inner := Target{Annotation: target.Annotation}
	switch {
	case t == nil:
		return target, false
	case isShape(t, providerShapeType):
		inner.Type = reflect.Zero(t).Interface().(providerShape).providerElem()
	case isShape(t, optionalShapeType):
		inner.Type = reflect.Zero(t).Interface().(optionalShape).optionalElem()
	case isShape(t, tupleShapeType):
		inner.Type = reflect.Zero(t).Interface().(tupleShape).tupleElem()
	case t.Kind() == reflect.Slice:
		inner.Type = t.Elem()
	case isSet(t):
		inner.Type = t.Key()
	default:
		return target, false
	}
	return inner, true
}

// lazyProvider resolves its target on first use, outside of the resolution
// that created it.
type lazyProvider struct {
	target Target
	state  *InjectionState

	mu       sync.Mutex
	resolved Provider
	active   sync.Map // goroutine id -> struct{}, callers inside Get
}

func (p *lazyProvider) Get() (any, error) {
	gid := goroutineID()
	if _, busy := p.active.Load(gid); busy {
		return nil, &CircularDependencyError{Path: []Target{p.target, p.target}}
	}

	p.mu.Lock()
	provider := p.resolved
	if provider == nil {
		var err error
		provider, err = p.state.creator.getProvider(newInjectionContext(p.target, p.state))
		if err != nil {
			p.mu.Unlock()
			return nil, err
		}
		p.resolved = provider
	}
	p.mu.Unlock()

	p.active.Store(gid, struct{}{})
	defer p.active.Delete(gid)
	return provider.Get()
}

// valueAs converts a resolved value to T. A nil value yields T's zero value.
func valueAs[T any](value any) (T, error) {
	var zero T
	rv, err := assignable(value, typeOf[T]())
	if err != nil {
		return zero, err
	}
	if v, ok := rv.Interface().(T); ok {
		return v, nil
	}
	return zero, nil
}
