// Package registry provides thread-safe storage and retrieval of dependency bindings.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrFrozen is returned when a binding is registered after the registry was frozen.
var ErrFrozen = errors.New("registry is frozen")

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report lookup problems.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry stores bindings keyed by Target.
// Bindings registered for the same target are kept in insertion order.
type Registry struct {
	mu       sync.RWMutex
	bindings map[Target][]*RegisteredBinding
	order    []Target
	frozen   bool
	logger   *zap.Logger
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		bindings: make(map[Target][]*RegisteredBinding),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewPrivate returns an empty registry that logs through r's logger. It
// holds the bindings of a private module.
func (r *Registry) NewPrivate() *Registry {
	return New(WithLogger(r.logger))
}

// Register appends a binding to the list of its target.
//
// This method is goroutine-safe.
func (r *Registry) Register(binding Binding, source string) error {
	if binding == nil {
		return fmt.Errorf("binding cannot be nil")
	}
	if binding.TargetType() == nil {
		return fmt.Errorf("binding target type cannot be nil")
	}
	return r.add(&RegisteredBinding{Binding: binding, Source: source})
}

func (r *Registry) add(rb *RegisteredBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("cannot register %v: %w", rb.Target(), ErrFrozen)
	}

	target := rb.Target()
	if _, exists := r.bindings[target]; !exists {
		r.order = append(r.order, target)
	}
	r.bindings[target] = append(r.bindings[target], rb)
	return nil
}

// Update merges every binding of other into r, after r's own bindings.
// Target order and per-target order of other are preserved.
func (r *Registry) Update(other *Registry) error {
	if other == nil || other == r {
		return nil
	}
	for _, target := range other.Targets() {
		for _, rb := range other.Get(target) {
			if err := r.add(rb); err != nil {
				return err
			}
		}
	}
	return nil
}

// Get returns the bindings registered for target, oldest first.
//
// An exact match is tried first. If the target is a placeholder, every
// registered concrete type with a matching name is considered: a single
// candidate resolves the placeholder, several candidates are ambiguous and
// yield no bindings.
//
// This method is goroutine-safe.
func (r *Registry) Get(target Target) []*RegisteredBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if found, ok := r.bindings[target]; ok {
		return append([]*RegisteredBinding(nil), found...)
	}
	if !target.IsPlaceholder() {
		return nil
	}

	candidates := r.candidatesLocked(target.TypeName)
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		found := r.bindings[target.WithType(candidates[0])]
		return append([]*RegisteredBinding(nil), found...)
	default:
		r.logger.Error("could not find binding: multiple types share this name",
			zap.String("type_name", target.TypeName),
			zap.Strings("candidates", typeNames(candidates)))
		return nil
	}
}

// Has reports whether at least one binding exists for target.
func (r *Registry) Has(target Target) bool {
	return len(r.Get(target)) > 0
}

// Resolve turns a placeholder target into a concrete one.
// Targets that already carry a type are returned unchanged.
func (r *Registry) Resolve(target Target) (Target, error) {
	if !target.IsPlaceholder() {
		return target, nil
	}

	r.mu.RLock()
	candidates := r.candidatesLocked(target.TypeName)
	r.mu.RUnlock()

	switch len(candidates) {
	case 0:
		return target, &BindingNotFoundError{Target: target}
	case 1:
		return target.WithType(candidates[0]), nil
	default:
		return target, &AmbiguousTypeError{Name: target.TypeName, Candidates: candidates}
	}
}

// candidatesLocked lists distinct registered types known under name.
// The caller must hold at least a read lock.
func (r *Registry) candidatesLocked(name string) []reflect.Type {
	seen := make(map[reflect.Type]bool)
	var out []reflect.Type
	for _, t := range r.order {
		if t.Type == nil || seen[t.Type] || !matchesName(t.Type, name) {
			continue
		}
		seen[t.Type] = true
		out = append(out, t.Type)
	}
	return out
}

// Targets returns all targets that have bindings, in first-registration order.
func (r *Registry) Targets() []Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Target(nil), r.order...)
}

// Len returns the total number of registered bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, list := range r.bindings {
		n += len(list)
	}
	return n
}

// Freeze makes the registry read-only. Later registrations fail with ErrFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// BindingNotFoundError is returned when a placeholder matches no registered type.
type BindingNotFoundError struct {
	Target Target
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("binding not found for %v", e.Target)
}

// AmbiguousTypeError is returned when a placeholder name matches several types.
type AmbiguousTypeError struct {
	Name       string
	Candidates []reflect.Type
}

func (e *AmbiguousTypeError) Error() string {
	return fmt.Sprintf("type name %q is ambiguous: %s", e.Name, strings.Join(typeNames(e.Candidates), ", "))
}

func typeNames(types []reflect.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	sort.Strings(names)
	return names
}
