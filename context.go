package nasc

import (
	"sync"

	"github.com/toutaio/toutago-nasc/registry"
	"go.uber.org/zap"
)

// InjectionState is shared by every resolution of one injector. Each private
// module gets a state of its own whose parent is the state it is exposed to.
type InjectionState struct {
	registry *registry.Registry
	creator  *providerCreator
	options  *Options
	logger   *zap.Logger
	metrics  *metrics
	cache    *reflectionCache

	parent   *InjectionState
	privates *sync.Map // *registry.Registry -> *InjectionState
}

func newInjectionState(reg *registry.Registry, options *Options, m *metrics) *InjectionState {
	return &InjectionState{
		registry: reg,
		creator:  newProviderCreator(),
		options:  options,
		logger:   options.Logger,
		metrics:  m,
		cache:    newReflectionCache(),
		privates: &sync.Map{},
	}
}

// private returns the state resolving the bindings of a private registry
// exposed to s.
func (s *InjectionState) private(reg *registry.Registry) *InjectionState {
	if state, ok := s.privates.Load(reg); ok {
		return state.(*InjectionState)
	}
	state := &InjectionState{
		registry: reg,
		creator:  newProviderCreator(),
		options:  s.options,
		logger:   s.logger,
		metrics:  s.metrics,
		cache:    s.cache,
		parent:   s,
		privates: s.privates,
	}
	actual, _ := s.privates.LoadOrStore(reg, state)
	return actual.(*InjectionState)
}

// has reports whether target is bound in s or in one of its parents.
func (s *InjectionState) has(target Target) bool {
	for state := s; state != nil; state = state.parent {
		if state.registry.Has(target) {
			return true
		}
	}
	return false
}

// InjectionContext is one step of a resolution: the target being built and
// the chain of targets that led to it.
type InjectionContext struct {
	target Target
	state  *InjectionState
	parent *InjectionContext
	depth  int
}

func newInjectionContext(target Target, state *InjectionState) *InjectionContext {
	return &InjectionContext{target: target, state: state}
}

// Target returns the target resolved by this step.
func (c *InjectionContext) Target() Target {
	return c.target
}

// Child returns the context resolving target on behalf of c.
// It fails when target is already being resolved further up the chain or
// when the chain grows beyond the configured maximum depth.
func (c *InjectionContext) Child(target Target) (*InjectionContext, error) {
	for p := c; p != nil; p = p.parent {
		if p.target == target {
			return nil, &CircularDependencyError{Path: append(c.Path(), target)}
		}
	}
	if max := c.state.options.MaxDepth; max > 0 && c.depth+1 > max {
		return nil, &NonInjectableTypeError{
			Type:   target.Type,
			Reason: "maximum resolution depth exceeded",
			Path:   append(c.Path(), target),
		}
	}
	return &InjectionContext{target: target, state: c.state, parent: c, depth: c.depth + 1}, nil
}

// retarget replaces the target of c, used once a placeholder is resolved.
func (c *InjectionContext) retarget(target Target) *InjectionContext {
	return &InjectionContext{target: target, state: c.state, parent: c.parent, depth: c.depth}
}

// withState returns a copy of c resolved against state.
func (c *InjectionContext) withState(state *InjectionState) *InjectionContext {
	return &InjectionContext{target: c.target, state: state, parent: c.parent, depth: c.depth}
}

// Path returns the targets from the top-level request down to c.
func (c *InjectionContext) Path() []Target {
	var path []Target
	for p := c; p != nil; p = p.parent {
		path = append(path, p.target)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
