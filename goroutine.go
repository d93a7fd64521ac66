package nasc

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// goroutineID returns the identifier of the calling goroutine, parsed from
// its stack header ("goroutine 42 [running]:").
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))
	if len(fields) == 0 {
		return 0
	}
	id, _ := strconv.ParseInt(fields[0], 10, 64)
	return id
}

// threadScopedProvider caches one value per goroutine.
type threadScopedProvider struct {
	inner     Provider
	instances sync.Map // goroutine id -> value
}

func (p *threadScopedProvider) Get() (any, error) {
	gid := goroutineID()
	if value, ok := p.instances.Load(gid); ok {
		return value, nil
	}

	value, err := p.inner.Get()
	if err != nil {
		return nil, err
	}
	p.instances.Store(gid, value)
	return value, nil
}

// threadRegistry tracks the thread-scoped providers of one injector so that
// a goroutine can drop its instances from all of them. A nil registry tracks
// nothing.
type threadRegistry struct {
	mu        sync.Mutex
	providers []*threadScopedProvider
}

func newThreadRegistry() *threadRegistry {
	return &threadRegistry{}
}

func (r *threadRegistry) add(p *threadScopedProvider) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.providers = append(r.providers, p)
	r.mu.Unlock()
}

// release removes the values cached for goroutine gid and returns how many
// were dropped.
func (r *threadRegistry) release(gid int64) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	providers := append([]*threadScopedProvider(nil), r.providers...)
	r.mu.Unlock()

	released := 0
	for _, p := range providers {
		if _, ok := p.instances.LoadAndDelete(gid); ok {
			released++
		}
	}
	return released
}
