package nasc

import (
	"fmt"
	"reflect"
	"strings"
)

// tagOptions represents parsed options from an inject tag.
type tagOptions struct {
	skip     bool   // Don't inject this field
	optional bool   // Keep the zero value if nothing is bound
	name     string // Annotation to look the field up with
}

// parseInjectTag parses an inject struct tag and returns options.
// Supported formats:
//   - `inject:""` - basic injection
//   - `inject:"-"` - never injected
//   - `inject:"optional"` - optional injection
//   - `inject:"name=foo"` - annotated binding
//   - `inject:"optional,name=foo"` - combined options
func parseInjectTag(tag string) tagOptions {
	opts := tagOptions{}

	if tag == "" {
		return opts
	}

	if tag == "-" {
		opts.skip = true
		return opts
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)

		if part == "optional" {
			opts.optional = true
		} else if strings.HasPrefix(part, "name=") {
			opts.name = strings.TrimPrefix(part, "name=")
		}
	}

	return opts
}

// AutoWire injects dependencies into the `inject`-tagged fields of an
// existing struct. Fields are looked up exactly like constructor parameters:
// by annotation when `name=` is given, otherwise by field name and then by
// type alone.
//
// Example:
//
//	type Handler struct {
//	    Logger  Logger  `inject:""`
//	    Cache   Cache   `inject:"optional"`
//	    FileLog Logger  `inject:"name=file"`
//	}
//
//	h := &Handler{}
//	err := injector.AutoWire(h)
func (i *Injector) AutoWire(instance any) error {
	if instance == nil {
		return fmt.Errorf("cannot auto-wire nil instance")
	}

	value := reflect.ValueOf(instance)
	if value.Kind() != reflect.Ptr {
		return fmt.Errorf("AutoWire requires a pointer to struct, got %T", instance)
	}

	elem := value.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("AutoWire requires a pointer to struct, got pointer to %v", elem.Kind())
	}

	ctx := newInjectionContext(Target{Type: value.Type()}, i.state)
	for _, field := range i.state.cache.getFieldInfo(elem.Type()) {
		if !field.tagged || field.options.skip {
			continue
		}
		if err := i.injectField(ctx, elem, field); err != nil {
			return fmt.Errorf("failed to inject field %s: %w", field.name, err)
		}
	}

	return nil
}

// injectField resolves and sets a single field.
func (i *Injector) injectField(ctx *InjectionContext, elem reflect.Value, field fieldInfo) error {
	fieldValue := elem.Field(field.index)
	if !fieldValue.CanSet() {
		return fmt.Errorf("field %s is not settable", field.name)
	}
	if err := checkAnnotation(field.options.name); err != nil {
		return err
	}

	p := parameter{name: field.name, typ: field.typ, named: field.options.name}
	if field.options.optional {
		// Optional fields keep whatever value they already hold.
		p.defaultValue = fieldValue
		p.hasDefault = true
	}

	provider, err := resolveParameter(ctx, elem.Type(), p)
	if err != nil {
		return err
	}

	resolved, err := provider.Get()
	if err != nil {
		return err
	}
	rv, err := assignable(resolved, field.typ)
	if err != nil {
		return err
	}
	fieldValue.Set(rv)
	return nil
}
