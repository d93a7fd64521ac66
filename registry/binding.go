package registry

import "reflect"

// Binding is a declarative rule describing how the value of a Target is produced.
// Concrete variants live in the nasc package; the registry only needs to know
// which target a binding is stored under.
type Binding interface {
	// TargetType is the type the binding provides.
	TargetType() reflect.Type

	// Annotation is the optional name qualifying the target.
	Annotation() string
}

// RegisteredBinding wraps a raw Binding with the place it was declared in, so
// errors raised while building its provider can point back to the source.
type RegisteredBinding struct {
	Binding Binding
	Source  string
}

// Target returns the target the binding is stored under.
func (rb *RegisteredBinding) Target() Target {
	return TargetFor(rb.Binding.TargetType(), rb.Binding.Annotation())
}
