package registry

import (
	"fmt"
	"reflect"
)

// Target identifies an injection point: a type and an optional annotation.
//
// A Target whose Type is nil and whose TypeName is set is a placeholder
// (forward reference by name). It only becomes meaningful once it has been
// resolved against the concrete types registered in a Registry.
type Target struct {
	Type       reflect.Type
	TypeName   string
	Annotation string
}

// TargetFor returns the target for t with the given annotation.
func TargetFor(t reflect.Type, annotation string) Target {
	return Target{Type: t, Annotation: annotation}
}

// Placeholder returns a target that refers to a type by name only.
func Placeholder(typeName, annotation string) Target {
	return Target{TypeName: typeName, Annotation: annotation}
}

// IsPlaceholder reports whether the target still refers to its type by name.
func (t Target) IsPlaceholder() bool {
	return t.Type == nil && t.TypeName != ""
}

// WithType returns a copy of the target pointing at typ, keeping the annotation.
func (t Target) WithType(typ reflect.Type) Target {
	return Target{Type: typ, Annotation: t.Annotation}
}

func (t Target) String() string {
	name := t.TypeName
	if t.Type != nil {
		name = t.Type.String()
	}
	if name == "" {
		name = "<nil>"
	}
	if t.Annotation != "" {
		return fmt.Sprintf("%s (annotation=%q)", name, t.Annotation)
	}
	return name
}

// matchesName reports whether typ is known under name, either by its bare
// name or by its package-qualified string form.
func matchesName(typ reflect.Type, name string) bool {
	if typ == nil {
		return false
	}
	if typ.Name() == name || typ.String() == name {
		return true
	}
	if typ.Kind() == reflect.Ptr && typ.Elem().Name() != "" {
		return "*"+typ.Elem().Name() == name
	}
	return false
}
