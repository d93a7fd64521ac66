package nasc

import (
	"fmt"
	"reflect"
	"strings"
)

// ParamSpec describes one parameter of a constructor function: the name used
// as its annotation during lookup, an optional explicit annotation overriding
// that name, and an optional default value used when nothing is bound.
//
// Example:
//
//	nasc.ToConstructor(NewServer,
//	    nasc.Param("addr").Default(":8080"),
//	    nasc.Param("logger").Named("access"),
//	)
type ParamSpec struct {
	name       string
	named      string
	def        any
	hasDefault bool
}

// Param declares the name of the constructor parameter at the same position.
func Param(name string) ParamSpec {
	return ParamSpec{name: name}
}

// Named overrides the annotation used to look the parameter up.
func (p ParamSpec) Named(annotation string) ParamSpec {
	p.named = annotation
	return p
}

// Default sets the value used when no binding exists for the parameter.
func (p ParamSpec) Default(value any) ParamSpec {
	p.def = value
	p.hasDefault = true
	return p
}

// parameter is one injection point of a constructible type.
type parameter struct {
	name         string
	typ          reflect.Type
	named        string
	defaultValue reflect.Value
	hasDefault   bool
}

// constructorInfo holds what is needed to build one instance of a type.
type constructorInfo struct {
	bound  reflect.Type
	params []parameter
	build  func(args []reflect.Value) (any, error)
}

// constructible reports whether t can be built without a constructor function.
func constructible(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// introspect returns the injection points of bound. A constructor function,
// when given, takes precedence over struct field injection.
func introspect(cache *reflectionCache, bound reflect.Type, constructor any, specs []ParamSpec) (*constructorInfo, error) {
	if constructor != nil {
		return parseConstructor(bound, constructor, specs)
	}
	if len(specs) > 0 {
		return nil, &BindingError{
			Target: Target{Type: bound},
			Reason: "parameter declarations require a constructor function",
		}
	}
	if !constructible(bound) {
		return nil, &NonInjectableTypeError{
			Type:   bound,
			Reason: "type is neither a struct nor a pointer to struct and has no constructor",
		}
	}
	return structConstructor(cache, bound)
}

// parseConstructor analyzes a constructor function and extracts metadata.
// Supported signatures are func(A, B, ...C) T and func(A, B, ...C) (T, error)
// where T is assignable to bound.
func parseConstructor(bound reflect.Type, constructor any, specs []ParamSpec) (*constructorInfo, error) {
	fnValue := reflect.ValueOf(constructor)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func {
		return nil, &BindingError{Reason: fmt.Sprintf("constructor must be a function, got %v", fnType)}
	}

	numOut := fnType.NumOut()
	if numOut == 0 || numOut > 2 {
		return nil, &BindingError{
			Reason: fmt.Sprintf("constructor must return (T) or (T, error), got %d return values", numOut),
		}
	}

	returnType := fnType.Out(0)
	if bound != nil && !returnType.AssignableTo(bound) {
		return nil, &BindingError{
			Target: Target{Type: bound},
			Reason: fmt.Sprintf("constructor returns %v which is not assignable to %v", returnType, bound),
		}
	}

	returnsError := false
	if numOut == 2 {
		errorInterface := reflect.TypeOf((*error)(nil)).Elem()
		if !fnType.Out(1).Implements(errorInterface) {
			return nil, &BindingError{
				Reason: fmt.Sprintf("constructor's second return value must be error, got %v", fnType.Out(1)),
			}
		}
		returnsError = true
	}

	numParams := fnType.NumIn()
	if len(specs) > numParams {
		return nil, &AnnotationError{
			Annotation: specs[numParams].name,
			Reason:     fmt.Sprintf("constructor %v only takes %d parameters", fnType, numParams),
		}
	}

	params := make([]parameter, numParams)
	for i := 0; i < numParams; i++ {
		p := parameter{typ: fnType.In(i)}
		if i < len(specs) {
			if err := applySpec(&p, specs[i]); err != nil {
				return nil, err
			}
		}
		if fnType.IsVariadic() && i == numParams-1 && !p.hasDefault {
			// A variadic parameter receives nothing when no item is bound.
			p.defaultValue = reflect.MakeSlice(p.typ, 0, 0)
			p.hasDefault = true
		}
		params[i] = p
	}

	variadic := fnType.IsVariadic()
	build := func(args []reflect.Value) (any, error) {
		var results []reflect.Value
		if variadic {
			results = fnValue.CallSlice(args)
		} else {
			results = fnValue.Call(args)
		}

		if returnsError {
			if errValue := results[1]; !errValue.IsNil() {
				return nil, fmt.Errorf("constructor returned error: %w", errValue.Interface().(error))
			}
		}
		return results[0].Interface(), nil
	}

	if bound == nil {
		bound = returnType
	}
	return &constructorInfo{bound: bound, params: params, build: build}, nil
}

func applySpec(p *parameter, spec ParamSpec) error {
	if err := checkAnnotation(spec.name); err != nil {
		return err
	}
	if err := checkAnnotation(spec.named); err != nil {
		return err
	}
	p.name = spec.name
	p.named = spec.named
	if spec.hasDefault {
		value, err := assignable(spec.def, p.typ)
		if err != nil {
			return &BindingError{Reason: fmt.Sprintf("default of parameter %q: %v", spec.name, err)}
		}
		p.defaultValue = value
		p.hasDefault = true
	}
	return nil
}

// structConstructor injects the exported fields of a struct (or pointer to
// struct) type. Fields tagged `inject:"-"` are left alone.
func structConstructor(cache *reflectionCache, bound reflect.Type) (*constructorInfo, error) {
	isPtr := bound.Kind() == reflect.Ptr
	structType := bound
	if isPtr {
		structType = bound.Elem()
	}

	var params []parameter
	var indexes []int
	for _, field := range cache.getFieldInfo(structType) {
		if !field.injectable() {
			continue
		}
		if err := checkAnnotation(field.options.name); err != nil {
			return nil, err
		}
		p := parameter{name: field.name, typ: field.typ, named: field.options.name}
		if field.options.optional {
			p.defaultValue = reflect.Zero(field.typ)
			p.hasDefault = true
		}
		params = append(params, p)
		indexes = append(indexes, field.index)
	}

	build := func(args []reflect.Value) (any, error) {
		instance := reflect.New(structType)
		elem := instance.Elem()
		for i, arg := range args {
			elem.Field(indexes[i]).Set(arg)
		}
		if isPtr {
			return instance.Interface(), nil
		}
		return elem.Interface(), nil
	}

	return &constructorInfo{bound: bound, params: params, build: build}, nil
}

// checkAnnotation rejects annotations that can never match a binding.
func checkAnnotation(annotation string) error {
	if annotation != strings.TrimSpace(annotation) {
		return &AnnotationError{Annotation: annotation, Reason: "annotation cannot have leading or trailing spaces"}
	}
	return nil
}

// classProvider builds a new instance on every Get from its argument providers.
type classProvider struct {
	info *constructorInfo
	args []Provider
}

func (p *classProvider) Get() (any, error) {
	args := make([]reflect.Value, len(p.args))
	for i, provider := range p.args {
		value, err := provider.Get()
		if err != nil {
			return nil, fmt.Errorf("parameter %q of %v: %w", p.info.params[i].name, p.info.bound, err)
		}
		rv, err := assignable(value, p.info.params[i].typ)
		if err != nil {
			return nil, fmt.Errorf("parameter %q of %v: %w", p.info.params[i].name, p.info.bound, err)
		}
		args[i] = rv
	}

	instance, err := p.info.build(args)
	if err != nil {
		return nil, err
	}

	if initializable, ok := instance.(Initializable); ok {
		if err := initializable.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize %v: %w", p.info.bound, err)
		}
	}
	return instance, nil
}
