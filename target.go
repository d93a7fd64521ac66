package nasc

import (
	"reflect"

	"github.com/toutaio/toutago-nasc/registry"
)

// Target identifies an injection point: a type and an optional annotation.
type Target = registry.Target

// TargetOf returns the target for T with an optional annotation.
//
// Example:
//
//	nasc.TargetOf[Logger]()
//	nasc.TargetOf[[]Plugin]("enabled")
func TargetOf[T any](annotation ...string) Target {
	return registry.TargetFor(typeOf[T](), firstOr(annotation, ""))
}

// TargetByName returns a placeholder target that refers to a type by name.
// It is resolved against the registered types at lookup time.
func TargetByName(typeName string, annotation ...string) Target {
	return registry.Placeholder(typeName, firstOr(annotation, ""))
}

// typeOf returns the reflect.Type of T, including interface types.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
