package nasc

import (
	"fmt"
	"reflect"
	"time"

	"github.com/toutaio/toutago-nasc/registry"
	"go.uber.org/zap"
)

// builtinSource is the registration source of the built-in scopes.
const builtinSource = "nasc"

// Injector resolves targets into instances from the bindings of its modules.
// It is safe for concurrent use once created.
type Injector struct {
	registry *registry.Registry
	state    *InjectionState
	options  *Options
}

// New installs modules in order, freezes the resulting bindings and returns
// the injector serving them. Bindings scoped with ImmediateScope are built
// before New returns, so their failures surface here.
//
// Example:
//
//	injector, err := nasc.New([]nasc.Module{
//	    nasc.ModuleFunc(func(b *nasc.Binder) error {
//	        return b.Bind(nasc.TargetOf[Logger](), nasc.To[*ConsoleLogger]())
//	    }),
//	})
//	logger, err := nasc.Get[Logger](injector)
func New(modules []Module, opts ...Option) (*Injector, error) {
	options, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	reg := registry.New(registry.WithLogger(options.Logger))
	if err := registerBuiltinScopes(reg); err != nil {
		return nil, err
	}

	binder := newBinder(reg)
	for _, module := range modules {
		if err := binder.Install(module); err != nil {
			return nil, err
		}
	}

	injector, err := newInjector(reg, options)
	if err != nil {
		return nil, err
	}
	if err := binder.boot(injector); err != nil {
		return nil, err
	}
	return injector, nil
}

// NewFromRegistry returns an injector serving the bindings already held by
// reg. The built-in scopes are added when missing and reg is frozen.
func NewFromRegistry(reg *registry.Registry, opts ...Option) (*Injector, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	options, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if !reg.Frozen() {
		if err := registerBuiltinScopes(reg); err != nil {
			return nil, err
		}
	}
	for _, target := range reg.Targets() {
		for _, rb := range reg.Get(target) {
			if v, ok := rb.Binding.(validator); ok {
				if err := v.Validate(); err != nil {
					return nil, err
				}
			}
		}
	}
	return newInjector(reg, options)
}

func applyOptions(opts []Option) (*Options, error) {
	options := defaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return options, nil
}

// registerBuiltinScopes binds every built-in scope to an instance of itself,
// so that scopes are resolved like any other target.
func registerBuiltinScopes(reg *registry.Registry) error {
	for _, scope := range builtinScopes() {
		target := registry.TargetFor(reflect.TypeOf(scope), "")
		if reg.Has(target) {
			continue
		}
		binding := &InstanceBinding{Type: target.Type, Instance: scope}
		if err := reg.Register(binding, builtinSource); err != nil {
			return err
		}
	}
	return nil
}

func newInjector(reg *registry.Registry, options *Options) (*Injector, error) {
	m, err := newMetrics(options.Metrics, options.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	reg.Freeze()

	injector := &Injector{
		registry: reg,
		state:    newInjectionState(reg, options, m),
		options:  options,
	}
	if err := injector.buildImmediate(injector.state, make(map[*registry.Registry]bool)); err != nil {
		return nil, err
	}

	options.Logger.Debug("injector ready",
		zap.Int("targets", reg.Len()),
		zap.Bool("auto_bindings", options.AutoBindings))
	return injector, nil
}

// buildImmediate builds the providers of eagerly scoped bindings, including
// those of the private modules reachable from state.
func (i *Injector) buildImmediate(state *InjectionState, seen map[*registry.Registry]bool) error {
	for _, target := range state.registry.Targets() {
		bindings := state.registry.Get(target)
		for _, rb := range bindings {
			exposed, ok := rb.Binding.(*ExposedBinding)
			if !ok || seen[exposed.Private] {
				continue
			}
			seen[exposed.Private] = true
			if err := i.buildImmediate(state.private(exposed.Private), seen); err != nil {
				return err
			}
		}

		if len(bindings) == 0 || !i.isImmediate(bindings[len(bindings)-1].Binding) {
			continue
		}
		if _, err := state.creator.getProvider(newInjectionContext(target, state)); err != nil {
			return &ResolutionError{Target: target, Cause: err}
		}
	}
	return nil
}

func (i *Injector) isImmediate(b registry.Binding) bool {
	var scope Scope
	switch b := b.(type) {
	case *ClassBinding:
		scope = b.Scope
	case *ProviderBinding:
		scope = b.Scope
	case *FactoryBinding:
		scope = b.Scope
	case *MultiBinding:
		scope = b.Scope
	default:
		return false
	}
	if scope == nil {
		scope = i.options.DefaultScope
	}
	_, ok := scope.(ImmediateScope)
	return ok
}

// GetProvider returns the provider of target without building an instance,
// unless the target is eagerly scoped.
func (i *Injector) GetProvider(target Target) (Provider, error) {
	provider, err := i.state.creator.getProvider(newInjectionContext(target, i.state))
	if err != nil {
		return nil, &ResolutionError{Target: target, Cause: err}
	}
	return provider, nil
}

// Get resolves target into an instance.
//
// Example:
//
//	value, err := injector.Get(nasc.TargetOf[Logger]("file"))
func (i *Injector) Get(target Target) (any, error) {
	start := time.Now()
	value, err := i.get(target)
	i.state.metrics.observeResolution(start, err)
	if err != nil {
		i.options.Logger.Debug("resolution failed",
			zap.Stringer("target", target),
			zap.Error(err))
		return nil, err
	}
	return value, nil
}

func (i *Injector) get(target Target) (any, error) {
	provider, err := i.GetProvider(target)
	if err != nil {
		return nil, err
	}
	value, err := provider.Get()
	if err != nil {
		return nil, &ResolutionError{Target: target, Cause: err}
	}
	return value, nil
}

// Validate builds the provider of every registered target, plus extra, and
// reports every failure. No instance is built except for eagerly scoped
// bindings.
func (i *Injector) Validate(extra ...Target) error {
	var errs []error
	targets := append(i.registry.Targets(), extra...)
	for _, target := range targets {
		if _, err := i.GetProvider(target); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ReleaseThread drops every thread-scoped instance cached for the calling
// goroutine. The next resolution from this goroutine builds new instances.
//
// Example:
//
//	func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
//	    defer h.injector.ReleaseThread()
//	    ...
//	}
func (i *Injector) ReleaseThread() {
	value, err := i.get(TargetOf[ThreadScope]())
	if err != nil {
		return
	}
	if scope, ok := value.(ThreadScope); ok {
		released := scope.threads.release(goroutineID())
		if released > 0 {
			i.options.Logger.Debug("thread-scoped instances released", zap.Int("count", released))
		}
	}
}

// Registry returns the frozen registry of the injector.
func (i *Injector) Registry() *registry.Registry {
	return i.registry
}

// Get resolves the target of T with an optional annotation.
//
// Example:
//
//	logger, err := nasc.Get[Logger](injector)
//	plugins, err := nasc.Get[[]Plugin](injector)
func Get[T any](injector *Injector, annotation ...string) (T, error) {
	var zero T
	value, err := injector.Get(TargetOf[T](annotation...))
	if err != nil {
		return zero, err
	}
	return valueAs[T](value)
}

// MustGet is like Get but panics if the target cannot be resolved.
func MustGet[T any](injector *Injector, annotation ...string) T {
	value, err := Get[T](injector, annotation...)
	if err != nil {
		panic(err)
	}
	return value
}

// GetProviderOf returns a typed provider of the target of T.
func GetProviderOf[T any](injector *Injector, annotation ...string) (ProviderOf[T], error) {
	provider, err := injector.GetProvider(TargetOf[T](annotation...))
	if err != nil {
		return ProviderOf[T]{}, err
	}
	return ProviderOf[T]{provider: provider}, nil
}
