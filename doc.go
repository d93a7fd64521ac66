// Package nasc provides a reflection-based dependency injection engine for Go.
//
// Nasc (Old Irish: "Link" or "Bond") turns a set of binding declarations into
// providers: objects that produce instances of a target type on demand. A
// target is a Go type plus an optional annotation that tells apart several
// bindings of the same type.
//
// # Features
//
//   - Instance, class, constructor, provider, factory and multi bindings
//   - Singleton, immediate, per-goroutine and per-lookup scopes
//   - Custom scopes, resolved through the injector like any other target
//   - Optional, Tuple, ProviderOf, slice and set shaped targets
//   - Named parameters and default values
//   - Just-in-time binding of unbound struct types
//   - Circular dependency detection
//   - Concurrent resolution
//
// # Quick Start
//
// Declare bindings in modules and resolve targets from the injector:
//
//	injector, err := nasc.New([]nasc.Module{
//	    nasc.ModuleFunc(func(b *nasc.Binder) error {
//	        return b.Bind(nasc.TargetOf[Logger](), nasc.To[*ConsoleLogger]())
//	    }),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger, err := nasc.Get[Logger](injector)
//
// # Bindings
//
// A target is bound to a type built by the injector, an existing instance, a
// Provider or a Factory:
//
//	b.Bind(nasc.TargetOf[Logger](), nasc.To[*ConsoleLogger]())
//	b.Bind(nasc.TargetOf[*Config](), nasc.ToInstance(cfg))
//	b.Bind(nasc.TargetOf[*Conn](), nasc.ToFactory(&ConnFactory{}))
//
// When a target is bound several times, the last binding wins. Multi bindings
// are the exception: every contribution to a []T target is kept.
//
//	b.MultiBind(nasc.TargetOf[Plugin](), nasc.Item[*AuthPlugin](), nasc.ItemInstance(&LogPlugin{}))
//
// # Constructors
//
// Struct types are built by injecting their exported fields. Other types use a
// constructor function whose parameters are declared in order:
//
//	b.Bind(nasc.TargetOf[*Server](),
//	    nasc.ToConstructor(NewServer,
//	        nasc.Param("addr").Default(":8080"),
//	        nasc.Param("logger").Named("access"),
//	    ))
//
// A parameter is looked up by its name as annotation when something is bound
// under that name, then by its type alone, then falls back to its default.
//
// # Scopes
//
// Class, provider, factory and multi bindings are singletons unless another
// scope is given:
//
//	b.Bind(nasc.TargetOf[*Request](), nasc.InScope(nasc.PerLookupScope{}))
//
// Thread-scoped instances are kept per goroutine until ReleaseThread is called
// on that goroutine:
//
//	defer injector.ReleaseThread()
//
// # Private Modules
//
// A module installed with Private binds into a registry of its own and
// publishes only what it exposes. It still sees the bindings of the injector.
//
//	b.Install(nasc.Private(StorageModule{}))
//
// # Shapes
//
// Some target types are served without a binding of their own:
//
//	[]T                  every binding of T
//	map[T]struct{}       the same items as a set
//	nasc.Tuple[T]        the same items, immutable
//	nasc.Optional[T]     T when bound, empty otherwise
//	nasc.ProviderOf[T]   a lazy provider of T
//
// # Error Handling
//
// Errors are typed and match sentinels with errors.Is:
//
//	_, err := nasc.Get[Service](injector)
//	if errors.Is(err, nasc.ErrNoBindingFound) {
//	    // ...
//	}
//
// # Thread Safety
//
// An injector is read-only once created and can be used concurrently.
package nasc
