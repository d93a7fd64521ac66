package nasc

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toutaio/toutago-nasc/registry"
)

type loggingModule struct {
	configured *int
}

func (m loggingModule) Configure(b *Binder) error {
	*m.configured++
	return b.Bind(TargetOf[Logger](), To[*ConsoleLogger]())
}

type databaseModule struct{}

func (databaseModule) Configure(b *Binder) error {
	if err := b.Install(loggingModule{configured: new(int)}); err != nil {
		return err
	}
	return b.Bind(TargetOf[Database](), To[*MockDB]())
}

type cacheModule struct {
	enabled bool
}

func (m cacheModule) Configure(b *Binder) error {
	return b.Bind(TargetOf[Database]("cache"), To[*MockDB]())
}

func (m cacheModule) Enabled() bool {
	return m.enabled
}

type bootModule struct {
	booted *bool
	err    error
}

func (m bootModule) Configure(b *Binder) error {
	return b.Bind(TargetOf[Database](), To[*MockDB]())
}

func (m bootModule) Boot(injector *Injector) error {
	if m.err != nil {
		return m.err
	}
	db, err := Get[Database](injector)
	if err != nil {
		return err
	}
	*m.booted = true
	return db.Connect()
}

func TestInstall_DeduplicatesByType(t *testing.T) {
	configured := 0
	injector, err := New([]Module{
		loggingModule{configured: &configured},
		loggingModule{configured: &configured},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, configured)
	assert.Len(t, injector.Registry().Get(TargetOf[Logger]()), 1)
}

func TestInstall_Nested(t *testing.T) {
	injector, err := New([]Module{databaseModule{}})
	require.NoError(t, err)

	assert.NoError(t, injector.Validate())
	bindings := injector.Registry().Get(TargetOf[Logger]())
	require.Len(t, bindings, 1)
	assert.Equal(t, "nasc.loggingModule", bindings[0].Source)
}

func TestInstall_ModuleFuncsAreNeverDeduplicated(t *testing.T) {
	calls := 0
	fn := func(b *Binder) error {
		calls++
		return nil
	}
	_, err := New([]Module{ModuleFunc(fn), ModuleFunc(fn)})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInstall_Conditional(t *testing.T) {
	injector, err := New([]Module{cacheModule{enabled: false}})
	require.NoError(t, err)
	assert.False(t, injector.Registry().Has(TargetOf[Database]("cache")))

	injector, err = New([]Module{cacheModule{enabled: true}})
	require.NoError(t, err)
	assert.True(t, injector.Registry().Has(TargetOf[Database]("cache")))
}

func TestInstall_Nil(t *testing.T) {
	_, err := New([]Module{nil})
	assert.Error(t, err)
}

func TestBootableModule(t *testing.T) {
	booted := false
	_, err := New([]Module{bootModule{booted: &booted}})
	require.NoError(t, err)
	assert.True(t, booted)

	boom := errors.New("boom")
	_, err = New([]Module{bootModule{booted: &booted, err: boom}})
	assert.ErrorIs(t, err, boom)
}

func TestBind_RegistersBindingKinds(t *testing.T) {
	reg := registry.New()
	b := newBinder(reg)

	require.NoError(t, b.Bind(TargetOf[*MockDB]()))
	require.NoError(t, b.Bind(TargetOf[Logger](), To[*ConsoleLogger]()))
	require.NoError(t, b.Bind(TargetOf[Logger]("file"), ToInstance(&FileLogger{})))
	require.NoError(t, b.Bind(TargetOf[string]("dsn"), ToProvider(ProviderFunc(func() (any, error) { return "", nil }))))
	require.NoError(t, b.Bind(TargetOf[Database]("factory"), ToFactoryType(reflect.TypeOf(&dbFactory{})), InScope(PerLookupScope{})))

	kinds := func(target Target) []string {
		var out []string
		for _, rb := range reg.Get(target) {
			out = append(out, bindingKind(rb.Binding))
		}
		return out
	}

	assert.Equal(t, []string{"self"}, kinds(TargetOf[*MockDB]()))
	assert.Equal(t, []string{"class"}, kinds(TargetOf[Logger]()))
	assert.Equal(t, []string{"instance"}, kinds(TargetOf[Logger]("file")))
	assert.Equal(t, []string{"provider"}, kinds(TargetOf[string]("dsn")))
	assert.Equal(t, []string{"factory"}, kinds(TargetOf[Database]("factory")))

	// The factory type is bound to itself under the same annotation and scope.
	factoryBindings := reg.Get(TargetOf[*dbFactory]("factory"))
	require.Len(t, factoryBindings, 1)
	self := factoryBindings[0].Binding.(*ClassBinding)
	assert.True(t, self.IsSelf())
	assert.Equal(t, PerLookupScope{}, self.Scope)
}

func TestBind_FactoryInstanceIsBoundToItself(t *testing.T) {
	reg := registry.New()
	factory := &dbFactory{}
	require.NoError(t, newBinder(reg).Bind(TargetOf[Database](), ToFactory(factory)))

	bindings := reg.Get(TargetOf[*dbFactory]())
	require.Len(t, bindings, 1)
	assert.Same(t, factory, bindings[0].Binding.(*InstanceBinding).Instance)
}

func TestBind_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		opts    []BindOption
		wantErr error
	}{
		{"placeholder target", TargetByName("Logger"), nil, ErrBinding},
		{"nil target", Target{}, nil, ErrBinding},
		{"conflicting kinds", TargetOf[Logger](), []BindOption{ToInstance(&ConsoleLogger{}), To[*ConsoleLogger]()}, ErrBinding},
		{"instance and factory", TargetOf[Database](), []BindOption{ToInstance(&MockDB{}), ToFactory(failingFactory{})}, ErrBinding},
		{"scoped instance", TargetOf[Logger](), []BindOption{ToInstance(&ConsoleLogger{}), InScope(PerLookupScope{})}, ErrBinding},
		{"interface without implementation", TargetOf[Logger](), nil, ErrBinding},
		{"unrelated implementation", TargetOf[Logger](), []BindOption{To[*MockDB]()}, ErrBinding},
		{"instance of the wrong type", TargetOf[Logger](), []BindOption{ToInstance(42)}, ErrBinding},
		{"factory type not a factory", TargetOf[Database](), []BindOption{ToFactoryType(reflect.TypeOf(&MockDB{}))}, ErrBinding},
		{"provider type not a provider", TargetOf[Database](), []BindOption{ToProviderType(reflect.TypeOf(&MockDB{}))}, ErrBinding},
		{"padded annotation", TargetOf[Logger](" file"), []BindOption{To[*ConsoleLogger]()}, ErrAnnotation},
		{"padded parameter", TargetOf[ConstructorService](), []BindOption{ToConstructor(NewServiceWithLogger, Param("logger "))}, ErrAnnotation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newBinder(registry.New()).Bind(tt.target, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMultiBind_Invalid(t *testing.T) {
	b := newBinder(registry.New())

	assert.ErrorIs(t, b.MultiBind(TargetOf[Logger](), ItemBinding{}), ErrBinding)
	assert.ErrorIs(t, b.MultiBind(TargetOf[Logger](), ItemBinding{Class: typeOf[*ConsoleLogger](), Instance: &ConsoleLogger{}}), ErrBinding)
	assert.ErrorIs(t, b.MultiBind(TargetOf[Logger](), Item[*MockDB]()), ErrBinding)
	assert.ErrorIs(t, b.MultiBind(TargetByName("Logger"), Item[*ConsoleLogger]()), ErrBinding)
	assert.ErrorIs(t, b.MultiBind(Target{}, Item[*ConsoleLogger]()), ErrBinding)
}

func TestNewFromRegistry(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(&InstanceBinding{Type: typeOf[Logger](), Instance: &ConsoleLogger{}}, "test"))

	injector, err := NewFromRegistry(reg)
	require.NoError(t, err)
	assert.True(t, reg.Frozen())

	_, err = Get[Logger](injector)
	assert.NoError(t, err)

	invalid := registry.New()
	require.NoError(t, invalid.Register(&InstanceBinding{Type: typeOf[Logger](), Instance: 42}, "test"))
	_, err = NewFromRegistry(invalid)
	assert.ErrorIs(t, err, ErrBinding)

	_, err = NewFromRegistry(nil)
	assert.Error(t, err)
}

type privateStorageModule struct{}

func (privateStorageModule) Configure(b *Binder) error {
	if err := b.Bind(TargetOf[Database](), To[*MockDB]()); err != nil {
		return err
	}
	if err := b.Bind(TargetOf[*UserService]()); err != nil {
		return err
	}
	return b.Expose(TargetOf[*UserService]())
}

func TestPrivateModule_ExposesOnlySelectedTargets(t *testing.T) {
	logger := &ConsoleLogger{}
	injector, err := New([]Module{
		ModuleFunc(func(b *Binder) error {
			return b.Bind(TargetOf[Logger](), ToInstance(logger))
		}),
		Private(privateStorageModule{}),
	})
	require.NoError(t, err)
	require.NoError(t, injector.Validate())

	svc, err := Get[*UserService](injector)
	require.NoError(t, err)
	assert.Same(t, logger, svc.Logger, "private bindings see the enclosing bindings")
	assert.IsType(t, &MockDB{}, svc.DB)
	assert.Same(t, svc, MustGet[*UserService](injector))

	_, err = Get[Database](injector)
	assert.ErrorIs(t, err, ErrNoBindingFound, "unexposed bindings stay private")

	bindings := injector.Registry().Get(TargetOf[*UserService]())
	require.Len(t, bindings, 1)
	assert.Equal(t, "exposed", bindingKind(bindings[0].Binding))
	assert.Equal(t, "nasc.privateStorageModule", bindings[0].Source)
}

func TestPrivateModule_Isolation(t *testing.T) {
	store := func(name string, db *MockDB) Module {
		return Private(ModuleFunc(func(b *Binder) error {
			if err := b.Bind(TargetOf[Database](), ToInstance(db)); err != nil {
				return err
			}
			if err := b.Bind(TargetOf[*UserService](name)); err != nil {
				return err
			}
			return b.Expose(TargetOf[*UserService](name))
		}))
	}
	primary, replica := &MockDB{}, &MockDB{}

	injector, err := New([]Module{
		ModuleFunc(func(b *Binder) error {
			return b.Bind(TargetOf[Logger](), To[*ConsoleLogger]())
		}),
		store("primary", primary),
		store("replica", replica),
	})
	require.NoError(t, err)

	assert.Same(t, primary, MustGet[*UserService](injector, "primary").DB)
	assert.Same(t, replica, MustGet[*UserService](injector, "replica").DB)
	assert.Same(t,
		MustGet[*UserService](injector, "primary").Logger,
		MustGet[*UserService](injector, "replica").Logger,
		"enclosing singletons are shared")
}

func TestPrivateModule_Immediate(t *testing.T) {
	c := &counter{}
	_, err := New([]Module{Private(ModuleFunc(func(b *Binder) error {
		if err := b.Bind(TargetOf[Logger](), ToConstructor(c.newConsoleLogger), InScope(ImmediateScope{})); err != nil {
			return err
		}
		return b.Expose(TargetOf[Logger]())
	}))})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.calls.Load())
}

func TestPrivateModule_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		module Module
	}{
		{"expose outside a private module", ModuleFunc(func(b *Binder) error {
			return b.Expose(TargetOf[Logger]())
		})},
		{"expose an unbound target", Private(ModuleFunc(func(b *Binder) error {
			return b.Expose(TargetOf[Logger]())
		}))},
		{"expose a placeholder", Private(ModuleFunc(func(b *Binder) error {
			return b.Expose(TargetByName("Logger"))
		}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]Module{tt.module})
			assert.ErrorIs(t, err, ErrBinding)
		})
	}

	_, err := New([]Module{Private(nil)})
	assert.Error(t, err)
}
