package nasc

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loggerProvider builds loggers and counts them.
type loggerProvider struct {
	built atomic.Int64
}

func (p *loggerProvider) Get() (any, error) {
	p.built.Add(1)
	return &ConsoleLogger{}, nil
}

// dbFactory is built by the injector, so its own fields are injected.
type dbFactory struct {
	Logger Logger
}

func (f *dbFactory) Create() (any, error) {
	f.Logger.Log("creating database")
	return &MockDB{}, nil
}

type failingFactory struct{}

func (failingFactory) Create() (any, error) {
	return nil, errors.New("factory failed")
}

func TestProviderBinding_Instance(t *testing.T) {
	provider := &loggerProvider{}
	injector := newTestInjector(t, func(b *Binder) error {
		return b.Bind(TargetOf[Logger](), ToProvider(provider))
	})

	first := MustGet[Logger](injector)
	second := MustGet[Logger](injector)

	assert.Same(t, first, second, "provider bindings are singletons by default")
	assert.Equal(t, int64(1), provider.built.Load())
}

func TestProviderBinding_PerLookup(t *testing.T) {
	provider := &loggerProvider{}
	injector := newTestInjector(t, func(b *Binder) error {
		return b.Bind(TargetOf[Logger](), ToProvider(provider), InScope(PerLookupScope{}))
	})

	assert.NotSame(t, MustGet[Logger](injector), MustGet[Logger](injector))
	assert.Equal(t, int64(2), provider.built.Load())
}

func TestProviderBinding_Func(t *testing.T) {
	injector := newTestInjector(t, func(b *Binder) error {
		return b.Bind(TargetOf[string]("dsn"), ToProvider(ProviderFunc(func() (any, error) {
			return "postgres://localhost", nil
		})))
	})

	dsn, err := Get[string](injector, "dsn")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost", dsn)
}

func TestProviderBinding_Type(t *testing.T) {
	injector := newTestInjector(t, func(b *Binder) error {
		return b.Bind(TargetOf[Logger](), ToProviderType(reflect.TypeOf(&loggerProvider{})))
	})

	logger, err := Get[Logger](injector)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleLogger{}, logger)
}

func TestFactoryBinding_Instance(t *testing.T) {
	factory := &dbFactory{Logger: &ConsoleLogger{}}
	injector := newTestInjector(t, func(b *Binder) error {
		return b.Bind(TargetOf[Database](), ToFactory(factory))
	})

	db, err := Get[Database](injector)
	require.NoError(t, err)
	assert.IsType(t, &MockDB{}, db)

	registered, err := Get[*dbFactory](injector)
	require.NoError(t, err)
	assert.Same(t, factory, registered, "the factory instance is bound under its own type")
}

func TestFactoryBinding_Type(t *testing.T) {
	logger := &ConsoleLogger{}
	injector := newTestInjector(t, func(b *Binder) error {
		if err := b.Bind(TargetOf[Logger](), ToInstance(logger)); err != nil {
			return err
		}
		return b.Bind(TargetOf[Database](), ToFactoryType(reflect.TypeOf(&dbFactory{})), InScope(PerLookupScope{}))
	})

	first := MustGet[Database](injector)
	second := MustGet[Database](injector)
	assert.NotSame(t, first, second)
	assert.Equal(t, []string{"creating database", "creating database"}, logger.messages)

	factory, err := Get[*dbFactory](injector)
	require.NoError(t, err)
	assert.Same(t, logger, factory.Logger, "the factory is built by the injector")
}

func TestFactoryBinding_Error(t *testing.T) {
	injector := newTestInjector(t, func(b *Binder) error {
		return b.Bind(TargetOf[Database](), ToFactory(failingFactory{}))
	})

	_, err := Get[Database](injector)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "factory failed")
}

func TestFromProviderProvider_NotAProvider(t *testing.T) {
	p := &fromProviderProvider{outer: &instanceProvider{instance: 42}}
	_, err := p.Get()
	assert.Error(t, err)
}

func TestAssignable(t *testing.T) {
	type celsius float64

	rv, err := assignable(nil, typeOf[Logger]())
	require.NoError(t, err)
	assert.True(t, rv.IsZero())

	rv, err = assignable(3.5, typeOf[celsius]())
	require.NoError(t, err)
	assert.Equal(t, celsius(3.5), rv.Interface())

	_, err = assignable("x", typeOf[int]())
	assert.Error(t, err)
}
