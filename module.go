package nasc

import (
	"fmt"
	"reflect"

	"github.com/toutaio/toutago-nasc/registry"
)

// Module groups related binding declarations.
//
// Example:
//
//	type StorageModule struct{ DSN string }
//
//	func (m StorageModule) Configure(b *nasc.Binder) error {
//	    if err := b.Bind(nasc.TargetOf[string]("dsn"), nasc.ToInstance(m.DSN)); err != nil {
//	        return err
//	    }
//	    return b.Bind(nasc.TargetOf[Store](), nasc.ToConstructor(NewSQLStore, nasc.Param("dsn")))
//	}
type Module interface {
	Configure(b *Binder) error
}

// ModuleFunc adapts a plain function to the Module interface.
type ModuleFunc func(b *Binder) error

// Configure calls f.
func (f ModuleFunc) Configure(b *Binder) error {
	return f(b)
}

// ConditionalModule is a module that is only installed when Enabled
// reports true.
//
// Example:
//
//	type CacheModule struct{ Config *Config }
//
//	func (m CacheModule) Enabled() bool {
//	    return m.Config.CacheEnabled
//	}
type ConditionalModule interface {
	Module
	Enabled() bool
}

// BootableModule is a module with a boot phase. Boot is called once the
// injector is ready, in installation order.
//
// Example:
//
//	func (m DatabaseModule) Boot(injector *nasc.Injector) error {
//	    db, err := nasc.Get[*sql.DB](injector)
//	    if err != nil {
//	        return err
//	    }
//	    return db.Ping()
//	}
type BootableModule interface {
	Module
	Boot(injector *Injector) error
}

// Private wraps module so that its bindings are only visible to each other.
// The module publishes selected targets with Binder.Expose; everything else
// stays internal. Private bindings may depend on the bindings of the
// enclosing modules.
//
// Example:
//
//	func (StorageModule) Configure(b *nasc.Binder) error {
//	    if err := b.Bind(nasc.TargetOf[*sql.DB](), nasc.ToConstructor(openDB)); err != nil {
//	        return err
//	    }
//	    if err := b.Bind(nasc.TargetOf[UserStore](), nasc.To[*SQLUserStore]()); err != nil {
//	        return err
//	    }
//	    return b.Expose(nasc.TargetOf[UserStore]())
//	}
//
//	injector, err := nasc.New([]nasc.Module{nasc.Private(StorageModule{})})
func Private(module Module) Module {
	return privateModule{Module: module}
}

type privateModule struct {
	Module
}

// Binder records the bindings declared by modules.
type Binder struct {
	registry  *registry.Registry
	source    string
	installed map[reflect.Type]bool
	modules   *[]Module

	private bool
	exposed []Target
}

func newBinder(reg *registry.Registry) *Binder {
	return &Binder{
		registry:  reg,
		source:    "root",
		installed: make(map[reflect.Type]bool),
		modules:   new([]Module),
	}
}

// Install configures module with this binder. Modules of a named type are
// installed once; installing the same type again is a no-op. ModuleFunc
// values are always installed.
func (b *Binder) Install(module Module) error {
	private, isPrivate := module.(privateModule)
	if isPrivate {
		module = private.Module
	}
	if module == nil {
		return fmt.Errorf("module cannot be nil")
	}
	if conditional, ok := module.(ConditionalModule); ok && !conditional.Enabled() {
		return nil
	}

	moduleType := reflect.TypeOf(module)
	if moduleType.Kind() != reflect.Func {
		if b.installed[moduleType] {
			return nil
		}
		b.installed[moduleType] = true
	}
	if isPrivate {
		return b.installPrivate(module, moduleType)
	}

	child := &Binder{
		registry:  b.registry,
		source:    moduleType.String(),
		installed: b.installed,
		modules:   b.modules,
	}
	if err := module.Configure(child); err != nil {
		return fmt.Errorf("module %s: %w", child.source, err)
	}
	*b.modules = append(*b.modules, module)
	return nil
}

// installPrivate configures module against its own registry and registers
// an ExposedBinding in b for every target the module exposes.
func (b *Binder) installPrivate(module Module, moduleType reflect.Type) error {
	child := &Binder{
		registry:  b.registry.NewPrivate(),
		source:    moduleType.String(),
		installed: make(map[reflect.Type]bool),
		modules:   b.modules,
		private:   true,
	}
	if err := module.Configure(child); err != nil {
		return fmt.Errorf("module %s: %w", child.source, err)
	}
	child.registry.Freeze()

	for _, target := range child.exposed {
		binding := &ExposedBinding{Type: target.Type, Named: target.Annotation, Private: child.registry}
		if err := binding.Validate(); err != nil {
			return fmt.Errorf("module %s: %w", child.source, err)
		}
		if err := b.registry.Register(binding, child.source); err != nil {
			return err
		}
	}
	*b.modules = append(*b.modules, module)
	return nil
}

// Expose publishes targets bound by the private module being configured.
// It fails when called outside of a module installed with Private.
func (b *Binder) Expose(targets ...Target) error {
	if !b.private {
		return &BindingError{Reason: "only private modules can expose targets"}
	}
	for _, target := range targets {
		if target.IsPlaceholder() || target.Type == nil {
			return &BindingError{Target: target, Reason: "cannot expose a target without a type"}
		}
		if err := checkAnnotation(target.Annotation); err != nil {
			return err
		}
	}
	b.exposed = append(b.exposed, targets...)
	return nil
}

// boot runs the boot phase of every installed BootableModule.
func (b *Binder) boot(injector *Injector) error {
	for _, module := range *b.modules {
		bootable, ok := module.(BootableModule)
		if !ok {
			continue
		}
		if err := bootable.Boot(injector); err != nil {
			return fmt.Errorf("module %T boot failed: %w", module, err)
		}
	}
	return nil
}

// BindOption describes what a target is bound to.
type BindOption func(*bindSpec)

type bindSpec struct {
	to          reflect.Type
	constructor any
	params      []ParamSpec

	instance    any
	hasInstance bool

	provider     Provider
	providerType reflect.Type

	factory     Factory
	factoryType reflect.Type

	scope Scope
}

// kinds lists the binding kinds requested by s.
func (s *bindSpec) kinds() []string {
	var kinds []string
	if s.to != nil || s.constructor != nil {
		kinds = append(kinds, "class")
	}
	if s.hasInstance {
		kinds = append(kinds, "instance")
	}
	if s.provider != nil || s.providerType != nil {
		kinds = append(kinds, "provider")
	}
	if s.factory != nil || s.factoryType != nil {
		kinds = append(kinds, "factory")
	}
	return kinds
}

// To binds the target to the type T, built by the injector.
func To[T any]() BindOption {
	return ToType(typeOf[T]())
}

// ToType binds the target to t, built by the injector.
func ToType(t reflect.Type) BindOption {
	return func(s *bindSpec) { s.to = t }
}

// ToConstructor builds the bound value by calling constructor, whose
// parameters are declared in order by params.
func ToConstructor(constructor any, params ...ParamSpec) BindOption {
	return func(s *bindSpec) {
		s.constructor = constructor
		s.params = params
	}
}

// ToInstance binds the target to an already constructed value.
func ToInstance(instance any) BindOption {
	return func(s *bindSpec) {
		s.instance = instance
		s.hasInstance = true
	}
}

// ToProvider binds the target to the values produced by provider.
func ToProvider(provider Provider) BindOption {
	return func(s *bindSpec) { s.provider = provider }
}

// ToProviderType binds the target to the values produced by a provider of
// type t, itself built by the injector.
func ToProviderType(t reflect.Type) BindOption {
	return func(s *bindSpec) { s.providerType = t }
}

// ToFactory binds the target to the values created by factory.
func ToFactory(factory Factory) BindOption {
	return func(s *bindSpec) { s.factory = factory }
}

// ToFactoryType binds the target to the values created by a factory of
// type t, itself built by the injector.
func ToFactoryType(t reflect.Type) BindOption {
	return func(s *bindSpec) { s.factoryType = t }
}

// InScope sets the scope of the binding. Instances cannot be scoped.
func InScope(scope Scope) BindOption {
	return func(s *bindSpec) { s.scope = scope }
}

// Bind declares a binding for target. Without options the target type is
// bound to itself.
//
// Example:
//
//	b.Bind(nasc.TargetOf[Logger](), nasc.To[*ConsoleLogger]())
//	b.Bind(nasc.TargetOf[*Config](), nasc.ToInstance(cfg))
//	b.Bind(nasc.TargetOf[*Conn]("primary"), nasc.ToFactory(&ConnFactory{}), nasc.InScope(nasc.PerLookupScope{}))
func (b *Binder) Bind(target Target, opts ...BindOption) error {
	spec := &bindSpec{}
	for _, opt := range opts {
		opt(spec)
	}

	if target.IsPlaceholder() {
		return &BindingError{Target: target, Reason: "cannot bind a target known only by name"}
	}
	if target.Type == nil {
		return &BindingError{Reason: "target type cannot be nil"}
	}
	if err := checkAnnotation(target.Annotation); err != nil {
		return err
	}
	for _, p := range spec.params {
		if err := checkAnnotation(p.name); err != nil {
			return err
		}
		if err := checkAnnotation(p.named); err != nil {
			return err
		}
	}
	if kinds := spec.kinds(); len(kinds) > 1 {
		return &BindingError{Target: target, Reason: fmt.Sprintf("conflicting binding kinds %v", kinds)}
	}
	if spec.provider != nil && spec.providerType != nil {
		return &BindingError{Target: target, Reason: "cannot bind to both a provider and a provider type"}
	}
	if spec.factory != nil && spec.factoryType != nil {
		return &BindingError{Target: target, Reason: "cannot bind to both a factory and a factory type"}
	}
	if spec.hasInstance && spec.scope != nil {
		return &BindingError{Target: target, Reason: "instance bindings cannot be scoped"}
	}

	for _, binding := range spec.bindings(target) {
		if err := b.register(binding); err != nil {
			return err
		}
	}
	return nil
}

// bindings returns the bindings to register for target. Factories are also
// bound under their own type, so that they are shared and injectable.
func (s *bindSpec) bindings(target Target) []registry.Binding {
	switch {
	case s.hasInstance:
		return []registry.Binding{&InstanceBinding{Type: target.Type, Instance: s.instance, Named: target.Annotation}}

	case s.provider != nil || s.providerType != nil:
		return []registry.Binding{&ProviderBinding{
			Type:         target.Type,
			Provider:     s.provider,
			ProviderType: s.providerType,
			Scope:        s.scope,
			Named:        target.Annotation,
		}}

	case s.factoryType != nil:
		return []registry.Binding{
			&FactoryBinding{Type: target.Type, FactoryType: s.factoryType, Scope: s.scope, Named: target.Annotation},
			NewSelfBinding(s.factoryType, s.scope, target.Annotation),
		}

	case s.factory != nil:
		return []registry.Binding{
			&FactoryBinding{Type: target.Type, Factory: s.factory, Scope: s.scope, Named: target.Annotation},
			&InstanceBinding{Type: reflect.TypeOf(s.factory), Instance: s.factory, Named: target.Annotation},
		}

	default:
		return []registry.Binding{&ClassBinding{
			Type:        target.Type,
			Bound:       s.to,
			Constructor: s.constructor,
			Params:      s.params,
			Scope:       s.scope,
			Named:       target.Annotation,
		}}
	}
}

// MultiBind contributes items to the []T target of item's type T. Several
// MultiBind calls for the same target, from any module, add up in
// installation order.
//
// Example:
//
//	b.MultiBind(nasc.TargetOf[Plugin](),
//	    nasc.Item[*AuthPlugin](),
//	    nasc.ItemInstance(&LogPlugin{}),
//	)
func (b *Binder) MultiBind(item Target, items ...ItemBinding) error {
	return b.MultiBindInScope(item, nil, items...)
}

// MultiBindInScope is MultiBind with a scope for the whole sequence.
func (b *Binder) MultiBindInScope(item Target, scope Scope, items ...ItemBinding) error {
	if item.IsPlaceholder() {
		return &BindingError{Target: item, Reason: "cannot bind a target known only by name"}
	}
	if err := checkAnnotation(item.Annotation); err != nil {
		return err
	}
	return b.register(&MultiBinding{ItemType: item.Type, Items: items, Scope: scope, Named: item.Annotation})
}

func (b *Binder) register(binding registry.Binding) error {
	if v, ok := binding.(validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return b.registry.Register(binding, b.source)
}

// Item is a multi-binding item built from the type T.
func Item[T any]() ItemBinding {
	return ItemBinding{Class: typeOf[T]()}
}

// ItemInstance is a multi-binding item bound to an existing value.
func ItemInstance(instance any) ItemBinding {
	return ItemBinding{Instance: instance}
}

// ItemProvider is a multi-binding item produced by provider.
func ItemProvider(provider Provider) ItemBinding {
	return ItemBinding{Provider: provider}
}

// ItemConstructor is a multi-binding item built by calling constructor.
func ItemConstructor(constructor any, params ...ParamSpec) ItemBinding {
	return ItemBinding{Constructor: constructor, Params: params}
}
