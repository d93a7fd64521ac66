package nasc

import (
	"fmt"
	"reflect"

	"github.com/toutaio/toutago-nasc/registry"
)

var (
	providerInterface = reflect.TypeOf((*Provider)(nil)).Elem()
	factoryInterface  = reflect.TypeOf((*Factory)(nil)).Elem()
)

// InstanceBinding binds a target to an already constructed value.
type InstanceBinding struct {
	Type     reflect.Type
	Instance any
	Named    string
}

func (b *InstanceBinding) TargetType() reflect.Type { return b.Type }
func (b *InstanceBinding) Annotation() string       { return b.Named }

// Validate checks that the instance can be assigned to the target type.
func (b *InstanceBinding) Validate() error {
	if b.Type == nil {
		return &BindingError{Reason: "target type cannot be nil"}
	}
	if _, err := assignable(b.Instance, b.Type); err != nil {
		return &BindingError{Target: targetOf(b), Reason: err.Error()}
	}
	return nil
}

// ClassBinding binds a target to a type built by the injector. When Bound is
// nil or equal to Type, the binding is a self binding.
//
// The bound type is built from Constructor when set, otherwise from its
// exported struct fields.
type ClassBinding struct {
	Type        reflect.Type
	Bound       reflect.Type
	Constructor any
	Params      []ParamSpec
	Scope       Scope
	Named       string
}

// NewSelfBinding returns a binding that builds t for the target t.
func NewSelfBinding(t reflect.Type, scope Scope, annotation string) *ClassBinding {
	return &ClassBinding{Type: t, Scope: scope, Named: annotation}
}

func (b *ClassBinding) TargetType() reflect.Type { return b.Type }
func (b *ClassBinding) Annotation() string       { return b.Named }

// BoundType returns the type that is actually constructed.
func (b *ClassBinding) BoundType() reflect.Type {
	if b.Bound != nil {
		return b.Bound
	}
	return b.Type
}

// IsSelf reports whether the binding builds its own target type.
func (b *ClassBinding) IsSelf() bool {
	return b.BoundType() == b.Type
}

// Validate checks that the bound type can stand in for the target type.
func (b *ClassBinding) Validate() error {
	if b.Type == nil {
		return &BindingError{Reason: "target type cannot be nil"}
	}
	if !b.BoundType().AssignableTo(b.Type) {
		return &BindingError{
			Target: targetOf(b),
			Reason: fmt.Sprintf("bound type %v is not assignable to %v", b.BoundType(), b.Type),
		}
	}
	if b.Constructor == nil && !constructible(b.BoundType()) {
		return &BindingError{
			Target: targetOf(b),
			Reason: fmt.Sprintf("%v needs a constructor function", b.BoundType()),
		}
	}
	return nil
}

// ProviderBinding binds a target to a Provider. The provider is either given
// as an instance or as a type that the injector builds first.
type ProviderBinding struct {
	Type         reflect.Type
	Provider     Provider
	ProviderType reflect.Type
	Scope        Scope
	Named        string
}

func (b *ProviderBinding) TargetType() reflect.Type { return b.Type }
func (b *ProviderBinding) Annotation() string       { return b.Named }

// Validate checks that exactly one provider source is set.
func (b *ProviderBinding) Validate() error {
	if b.Type == nil {
		return &BindingError{Reason: "target type cannot be nil"}
	}
	if (b.Provider == nil) == (b.ProviderType == nil) {
		return &BindingError{Target: targetOf(b), Reason: "exactly one of Provider and ProviderType must be set"}
	}
	if b.ProviderType != nil && !b.ProviderType.Implements(providerInterface) {
		return &BindingError{Target: targetOf(b), Reason: fmt.Sprintf("%v does not implement Provider", b.ProviderType)}
	}
	return nil
}

// FactoryBinding binds a target to the result of Factory.Create. The factory
// is either given as an instance or as a type that the injector builds first.
type FactoryBinding struct {
	Type        reflect.Type
	Factory     Factory
	FactoryType reflect.Type
	Scope       Scope
	Named       string
}

func (b *FactoryBinding) TargetType() reflect.Type { return b.Type }
func (b *FactoryBinding) Annotation() string       { return b.Named }

// Validate checks that exactly one factory source is set.
func (b *FactoryBinding) Validate() error {
	if b.Type == nil {
		return &BindingError{Reason: "target type cannot be nil"}
	}
	if (b.Factory == nil) == (b.FactoryType == nil) {
		return &BindingError{Target: targetOf(b), Reason: "exactly one of Factory and FactoryType must be set"}
	}
	if b.FactoryType != nil && !b.FactoryType.Implements(factoryInterface) {
		return &BindingError{Target: targetOf(b), Reason: fmt.Sprintf("%v does not implement Factory", b.FactoryType)}
	}
	return nil
}

// collaboratorType returns the type under which the factory is resolved.
func (b *FactoryBinding) collaboratorType() reflect.Type {
	if b.FactoryType != nil {
		return b.FactoryType
	}
	return reflect.TypeOf(b.Factory)
}

// ExposedBinding publishes a target bound inside a private module. The
// target is built from the bindings of the Private registry.
type ExposedBinding struct {
	Type    reflect.Type
	Named   string
	Private *registry.Registry
}

func (b *ExposedBinding) TargetType() reflect.Type { return b.Type }
func (b *ExposedBinding) Annotation() string       { return b.Named }

// Validate checks that the private registry binds the target.
func (b *ExposedBinding) Validate() error {
	if b.Type == nil {
		return &BindingError{Reason: "target type cannot be nil"}
	}
	if b.Private == nil || !b.Private.Has(targetOf(b)) {
		return &BindingError{Target: targetOf(b), Reason: "exposed target is not bound by the private module"}
	}
	return nil
}

// ItemBinding is one element of a MultiBinding. Exactly one of Class (with
// an optional Constructor), Instance or Provider must be set.
type ItemBinding struct {
	Class       reflect.Type
	Constructor any
	Params      []ParamSpec
	Instance    any
	Provider    Provider
}

func (i ItemBinding) sources() int {
	n := 0
	if i.Class != nil || i.Constructor != nil {
		n++
	}
	if i.Instance != nil {
		n++
	}
	if i.Provider != nil {
		n++
	}
	return n
}

// MultiBinding contributes items to the []ItemType target. Every MultiBinding
// registered for the same target adds to the same sequence.
type MultiBinding struct {
	ItemType reflect.Type
	Items    []ItemBinding
	Scope    Scope
	Named    string
}

func (b *MultiBinding) TargetType() reflect.Type {
	if b.ItemType == nil {
		return nil
	}
	return reflect.SliceOf(b.ItemType)
}

func (b *MultiBinding) Annotation() string { return b.Named }

// Validate checks every item of the binding.
func (b *MultiBinding) Validate() error {
	if b.ItemType == nil {
		return &BindingError{Reason: "item type cannot be nil"}
	}
	for i, item := range b.Items {
		if err := b.validateItem(i, item); err != nil {
			return err
		}
	}
	return nil
}

func (b *MultiBinding) validateItem(i int, item ItemBinding) error {
	switch item.sources() {
	case 0:
		return &BindingError{Target: targetOf(b), Reason: fmt.Sprintf("item %d binds nothing", i)}
	case 1:
	default:
		return &BindingError{Target: targetOf(b), Reason: fmt.Sprintf("item %d binds more than one of class, instance and provider", i)}
	}
	if item.Class != nil && !item.Class.AssignableTo(b.ItemType) {
		return &BindingError{
			Target: targetOf(b),
			Reason: fmt.Sprintf("item %d: %v is not assignable to %v", i, item.Class, b.ItemType),
		}
	}
	if item.Instance != nil {
		if _, err := assignable(item.Instance, b.ItemType); err != nil {
			return &BindingError{Target: targetOf(b), Reason: fmt.Sprintf("item %d: %v", i, err)}
		}
	}
	return nil
}

// validator is implemented by every binding variant.
type validator interface {
	Validate() error
}

// bindingKind names a binding variant for logs and metrics.
func bindingKind(b registry.Binding) string {
	switch b := b.(type) {
	case *InstanceBinding:
		return "instance"
	case *ClassBinding:
		if b.IsSelf() {
			return "self"
		}
		return "class"
	case *ProviderBinding:
		return "provider"
	case *FactoryBinding:
		return "factory"
	case *MultiBinding:
		return "multi"
	case *ExposedBinding:
		return "exposed"
	default:
		return "unknown"
	}
}

func targetOf(b registry.Binding) Target {
	return registry.TargetFor(b.TargetType(), b.Annotation())
}
