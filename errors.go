package nasc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinels for errors.Is matching of the typed errors below.
var (
	ErrNoBindingFound     = errors.New("no binding found")
	ErrNonInjectable      = errors.New("non-injectable type")
	ErrBinding            = errors.New("invalid binding")
	ErrAnnotation         = errors.New("invalid annotation")
	ErrCircularDependency = errors.New("circular dependency")
)

// NoBindingFoundError is returned when no registered or synthesizable provider
// exists for a target.
type NoBindingFoundError struct {
	Target Target
	Path   []Target
}

func (e *NoBindingFoundError) Error() string {
	msg := fmt.Sprintf("no binding found for %v", e.Target)
	if len(e.Path) > 1 {
		msg += " (required by " + formatPath(e.Path[:len(e.Path)-1]) + ")"
	}
	return msg
}

func (e *NoBindingFoundError) Is(target error) bool {
	return target == ErrNoBindingFound
}

// NonInjectableTypeError is returned when a type cannot be built: a required
// parameter has no binding and no default, or an eager scope cannot be satisfied.
type NonInjectableTypeError struct {
	Type      reflect.Type
	Parameter string
	Reason    string
	Path      []Target
	Cause     error
}

func (e *NonInjectableTypeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cannot inject %v", e.Type)
	if e.Parameter != "" {
		fmt.Fprintf(&b, ": parameter %q", e.Parameter)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " [path: %s]", formatPath(e.Path))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *NonInjectableTypeError) Is(target error) bool {
	return target == ErrNonInjectable
}

// Unwrap returns the underlying cause error.
func (e *NonInjectableTypeError) Unwrap() error {
	return e.Cause
}

// BindingError reports a malformed binding declaration.
type BindingError struct {
	Target Target
	Reason string
}

func (e *BindingError) Error() string {
	if e.Target.Type == nil && e.Target.TypeName == "" {
		return fmt.Sprintf("invalid binding: %s", e.Reason)
	}
	return fmt.Sprintf("invalid binding for %v: %s", e.Target, e.Reason)
}

func (e *BindingError) Is(target error) bool {
	return target == ErrBinding
}

// AnnotationError reports an invalid annotation or parameter name.
type AnnotationError struct {
	Annotation string
	Reason     string
}

func (e *AnnotationError) Error() string {
	return fmt.Sprintf("invalid annotation %q: %s", e.Annotation, e.Reason)
}

func (e *AnnotationError) Is(target error) bool {
	return target == ErrAnnotation
}

// CircularDependencyError indicates a target that depends on itself eagerly.
type CircularDependencyError struct {
	Path []Target
}

func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return "circular dependency detected"
	}
	return fmt.Sprintf("circular dependency detected: %s", formatPath(e.Path))
}

func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// ResolutionError is returned by the injector entry points and records which
// top-level target failed.
type ResolutionError struct {
	Target Target
	Cause  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %v: %v", e.Target, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// ValidationError collects the problems found by Injector.Validate.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation failed: %v", e.Errors[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %v\n", i+1, err)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() []error {
	return e.Errors
}

// noBindingFor reports whether err says that target itself has no binding,
// as opposed to one of target's own dependencies.
func noBindingFor(err error, target Target) bool {
	var nbf *NoBindingFoundError
	return errors.As(err, &nbf) && nbf.Target == target
}

func formatPath(path []Target) string {
	parts := make([]string, len(path))
	for i, t := range path {
		parts[i] = t.String()
	}
	return strings.Join(parts, " -> ")
}
