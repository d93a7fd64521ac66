package registry

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Test types for registry tests
type testInterface interface {
	DoSomething()
}

type testImplementation struct{}

func (t *testImplementation) DoSomething() {}

type fakeBinding struct {
	typ        reflect.Type
	annotation string
	label      string
}

func (b *fakeBinding) TargetType() reflect.Type { return b.typ }
func (b *fakeBinding) Annotation() string       { return b.annotation }

var (
	interfaceType = reflect.TypeOf((*testInterface)(nil)).Elem()
	implType      = reflect.TypeOf(&testImplementation{})
)

func labels(list []*RegisteredBinding) []string {
	out := make([]string, len(list))
	for i, rb := range list {
		out[i] = rb.Binding.(*fakeBinding).label
	}
	return out
}

func TestNew(t *testing.T) {
	reg := New()
	require.NotNil(t, reg)
	assert.NotNil(t, reg.bindings)
	assert.Equal(t, 0, reg.Len())
}

func TestRegister_AppendsInOrder(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(&fakeBinding{typ: interfaceType, label: "first"}, "a"))
	require.NoError(t, reg.Register(&fakeBinding{typ: interfaceType, label: "second"}, "b"))

	got := reg.Get(TargetFor(interfaceType, ""))
	assert.Equal(t, []string{"first", "second"}, labels(got))
	assert.Equal(t, "a", got[0].Source)
	assert.Equal(t, "b", got[1].Source)
}

func TestRegister_AnnotationSeparatesTargets(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(&fakeBinding{typ: interfaceType, label: "plain"}, ""))
	require.NoError(t, reg.Register(&fakeBinding{typ: interfaceType, annotation: "named", label: "named"}, ""))

	assert.Equal(t, []string{"plain"}, labels(reg.Get(TargetFor(interfaceType, ""))))
	assert.Equal(t, []string{"named"}, labels(reg.Get(TargetFor(interfaceType, "named"))))
	assert.Len(t, reg.Targets(), 2)
}

func TestRegister_Invalid(t *testing.T) {
	reg := New()
	assert.Error(t, reg.Register(nil, ""))
	assert.Error(t, reg.Register(&fakeBinding{}, ""))
}

func TestRegister_Frozen(t *testing.T) {
	reg := New()
	reg.Freeze()
	assert.True(t, reg.Frozen())

	err := reg.Register(&fakeBinding{typ: implType}, "")
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestGet_NotFound(t *testing.T) {
	reg := New()
	assert.Empty(t, reg.Get(TargetFor(interfaceType, "")))
	assert.False(t, reg.Has(TargetFor(interfaceType, "")))
}

func TestUpdate_ConcatenatesPerTarget(t *testing.T) {
	first := New()
	second := New()
	require.NoError(t, first.Register(&fakeBinding{typ: interfaceType, label: "1"}, "first"))
	require.NoError(t, second.Register(&fakeBinding{typ: implType, label: "impl"}, "second"))
	require.NoError(t, second.Register(&fakeBinding{typ: interfaceType, label: "2"}, "second"))

	require.NoError(t, first.Update(second))

	assert.Equal(t, []string{"1", "2"}, labels(first.Get(TargetFor(interfaceType, ""))))
	assert.Equal(t, []string{"impl"}, labels(first.Get(TargetFor(implType, ""))))
	assert.Equal(t, 3, first.Len())
	assert.Equal(t, 2, second.Len())
}

func TestGet_PlaceholderSingleCandidate(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(&fakeBinding{typ: interfaceType, label: "iface"}, ""))

	got := reg.Get(Placeholder("testInterface", ""))
	assert.Equal(t, []string{"iface"}, labels(got))

	resolved, err := reg.Resolve(Placeholder("registry.testInterface", ""))
	require.NoError(t, err)
	assert.Equal(t, interfaceType, resolved.Type)
}

func TestGet_PlaceholderAmbiguous(t *testing.T) {
	type Shared struct{}
	// Two distinct named types sharing a bare name.
	first := reflect.TypeOf(Shared{})
	second := reflect.TypeOf(func() any {
		type Shared struct{ X int }
		return Shared{}
	}())
	require.Equal(t, first.Name(), second.Name())

	core, logs := observer.New(zapcore.ErrorLevel)
	reg := New(WithLogger(zap.New(core)))
	require.NoError(t, reg.Register(&fakeBinding{typ: first, label: "a"}, ""))
	require.NoError(t, reg.Register(&fakeBinding{typ: second, label: "b"}, ""))

	assert.Empty(t, reg.Get(Placeholder("Shared", "")))
	assert.Equal(t, 1, logs.Len())

	_, err := reg.Resolve(Placeholder("Shared", ""))
	var ambiguous *AmbiguousTypeError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Candidates, 2)
}

func TestResolve_Unknown(t *testing.T) {
	reg := New()
	_, err := reg.Resolve(Placeholder("Missing", ""))
	var notFound *BindingNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestTarget_String(t *testing.T) {
	assert.Equal(t, "registry.testImplementation", TargetFor(reflect.TypeOf(testImplementation{}), "").String())
	assert.Equal(t, `Foo (annotation="x")`, Placeholder("Foo", "x").String())
	assert.True(t, Placeholder("Foo", "").IsPlaceholder())
	assert.False(t, TargetFor(implType, "").IsPlaceholder())
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(&fakeBinding{typ: interfaceType}, ""))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = reg.Register(&fakeBinding{typ: implType}, "")
		}()
		go func() {
			defer wg.Done()
			assert.True(t, reg.Has(TargetFor(interfaceType, "")))
		}()
	}
	wg.Wait()

	assert.Len(t, reg.Get(TargetFor(implType, "")), 50)
}
