package nasc

import (
	"sync"
	"sync/atomic"
)

// singletonProvider holds a singleton value and ensures it's created only once.
// A failed computation is not cached: the next Get tries again.
type singletonProvider struct {
	inner Provider

	mu    sync.Mutex
	done  atomic.Bool
	owner atomic.Int64 // goroutine currently computing the value, 0 if none

	value any
}

func newSingletonProvider(inner Provider) *singletonProvider {
	return &singletonProvider{inner: inner}
}

// Get returns the cached value, computing it on first use.
// A computation that re-enters Get from its own goroutine reports a
// circular dependency instead of deadlocking.
//
// This method is goroutine-safe.
func (p *singletonProvider) Get() (any, error) {
	if p.done.Load() {
		return p.value, nil
	}

	gid := goroutineID()
	if p.owner.Load() == gid {
		return nil, &CircularDependencyError{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring the lock.
	if p.done.Load() {
		return p.value, nil
	}

	p.owner.Store(gid)
	defer p.owner.Store(0)

	value, err := p.inner.Get()
	if err != nil {
		return nil, err
	}
	p.value = value
	p.done.Store(true)
	return value, nil
}
