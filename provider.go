package nasc

import (
	"fmt"
	"reflect"
)

// Provider produces one instance of a bound type on each call to Get.
// Whether the instance is shared between calls is decided by the Scope that
// wrapped the provider.
type Provider interface {
	Get() (any, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func() (any, error)

// Get calls f.
func (f ProviderFunc) Get() (any, error) {
	return f()
}

// Factory is a collaborator that creates instances on demand.
// Its own dependencies are injected before Create is called.
//
// Example:
//
//	type ConnectionFactory struct {
//	    Config *Config
//	}
//
//	func (f *ConnectionFactory) Create() (any, error) {
//	    return Dial(f.Config.DSN)
//	}
type Factory interface {
	Create() (any, error)
}

// instanceProvider always returns the same, already constructed value.
type instanceProvider struct {
	instance any
}

func (p *instanceProvider) Get() (any, error) {
	return p.instance, nil
}

// fromProviderProvider flattens a provider of providers.
type fromProviderProvider struct {
	outer Provider
}

func (p *fromProviderProvider) Get() (any, error) {
	value, err := p.outer.Get()
	if err != nil {
		return nil, err
	}
	inner, ok := value.(Provider)
	if !ok {
		return nil, fmt.Errorf("expected a Provider, got %T", value)
	}
	return inner.Get()
}

// fromFactoryProvider resolves a Factory and calls Create on it.
type fromFactoryProvider struct {
	factory Provider
}

func (p *fromFactoryProvider) Get() (any, error) {
	value, err := p.factory.Get()
	if err != nil {
		return nil, err
	}
	factory, ok := value.(Factory)
	if !ok {
		return nil, fmt.Errorf("expected a Factory, got %T", value)
	}
	return factory.Create()
}

// listProvider gathers the values of its item providers into a []elem.
type listProvider struct {
	elem  reflect.Type
	items []Provider
}

func (p *listProvider) Get() (any, error) {
	list := reflect.MakeSlice(reflect.SliceOf(p.elem), 0, len(p.items))
	for i, item := range p.items {
		value, err := item.Get()
		if err != nil {
			return nil, err
		}
		rv, err := assignable(value, p.elem)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		list = reflect.Append(list, rv)
	}
	return list.Interface(), nil
}

// assignable converts value into a reflect.Value of type t, using the zero
// value of t for nil.
func assignable(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) && rv.Kind() == t.Kind() {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("value of type %v is not assignable to %v", rv.Type(), t)
}
